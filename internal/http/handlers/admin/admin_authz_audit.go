package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/vipo-core/internal/http/handlers/shared"
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuthzAuditLogs 获取权限审计日志列表
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	if h.AuthzAuditService == nil {
		respondError(c, response.CodeInternal, "audit service unavailable", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.AuthzAuditLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
		Role:     strings.TrimSpace(c.Query("role")),
		Object:   strings.TrimSpace(c.Query("object")),
		Method:   strings.TrimSpace(c.Query("method")),
	}
	if raw := strings.TrimSpace(c.Query("operator_admin_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "operator_admin_id invalid", err)
			return
		}
		filter.OperatorAdminID = uint(parsed)
	}
	if raw := strings.TrimSpace(c.Query("target_admin_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "target_admin_id invalid", err)
			return
		}
		filter.TargetAdminID = uint(parsed)
	}
	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			respondError(c, response.CodeBadRequest, "created_from must be YYYY-MM-DD", err)
			return
		}
		filter.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			respondError(c, response.CodeBadRequest, "created_to must be YYYY-MM-DD", err)
			return
		}
		end := to.Add(24 * time.Hour)
		filter.CreatedTo = &end
	}

	items, total, err := h.AuthzAuditService.ListForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "audit log list failed", err)
		return
	}

	response.SuccessWithPage(c, items, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
