package public

import (
	"strings"
	"time"

	"github.com/vipo-core/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CronReleaseCommissions 解冻到期佣金。
func (h *Handler) CronReleaseCommissions(c *gin.Context) {
	log := requestLog(c)
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "commission service unavailable", nil)
		return
	}
	summary, err := h.CommissionService.ReleaseDue(time.Now())
	if err != nil {
		log.Warnw("cron_release_commissions_failed", "error", err)
		respondError(c, response.CodeInternal, "commission release failed", err)
		return
	}
	log.Infow("cron_release_commissions_done",
		"released", summary.Released,
		"errors", summary.Errors,
		"total", summary.Total,
	)
	response.Success(c, summary)
}

// CronRetrySweep 扫描并重试到期的待处理支付事件。
func (h *Handler) CronRetrySweep(c *gin.Context) {
	log := requestLog(c)
	if h.PaymentEventService == nil {
		respondError(c, response.CodeInternal, "payment event service unavailable", nil)
		return
	}
	processed, failed, err := h.PaymentEventService.RetryDue(time.Now())
	if err != nil {
		log.Warnw("cron_retry_sweep_failed", "error", err)
		respondError(c, response.CodeInternal, "retry sweep failed", err)
		return
	}
	log.Infow("cron_retry_sweep_done", "processed", processed, "failed", failed)
	response.Success(c, gin.H{
		"processed": processed,
		"failed":    failed,
	})
}

// CronReconciliation 执行对账，默认对前一天，支持 ?date=YYYY-MM-DD 指定日期。
func (h *Handler) CronReconciliation(c *gin.Context) {
	log := requestLog(c)
	if h.ReconciliationService == nil {
		respondError(c, response.CodeInternal, "reconciliation service unavailable", nil)
		return
	}

	dateParam := strings.TrimSpace(c.Query("date"))
	var (
		report interface{}
		err    error
	)
	if dateParam != "" {
		day, parseErr := time.ParseInLocation("2006-01-02", dateParam, time.UTC)
		if parseErr != nil {
			respondError(c, response.CodeBadRequest, "date must be YYYY-MM-DD", parseErr)
			return
		}
		report, err = h.ReconciliationService.Run(day)
	} else {
		report, err = h.ReconciliationService.RunPreviousDay(time.Now())
	}
	if err != nil {
		log.Warnw("cron_reconciliation_failed", "date", dateParam, "error", err)
		respondError(c, response.CodeInternal, "reconciliation failed", err)
		return
	}
	response.Success(c, report)
}
