package admin

import (
	"strings"
	"time"

	"github.com/vipo-core/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetReconciliationReport 生成指定日期的对账报告，默认对前一天。
func (h *Handler) GetReconciliationReport(c *gin.Context) {
	log := requestLog(c)
	if h.ReconciliationService == nil {
		respondError(c, response.CodeInternal, "reconciliation service unavailable", nil)
		return
	}

	dateParam := strings.TrimSpace(c.Query("date"))
	day := time.Now().UTC().Add(-24 * time.Hour)
	if dateParam != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateParam, time.UTC)
		if err != nil {
			respondError(c, response.CodeBadRequest, "date must be YYYY-MM-DD", err)
			return
		}
		day = parsed
	}

	report, err := h.ReconciliationService.Run(day)
	if err != nil {
		log.Warnw("admin_reconciliation_report_failed", "date", dateParam, "error", err)
		respondError(c, response.CodeInternal, "reconciliation report failed", err)
		return
	}
	response.Success(c, report)
}
