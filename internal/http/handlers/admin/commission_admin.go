package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/service"

	"github.com/gin-gonic/gin"
)

// ReleaseAllCommissions 解冻全部到期佣金。
func (h *Handler) ReleaseAllCommissions(c *gin.Context) {
	log := requestLog(c)
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "commission service unavailable", nil)
		return
	}
	summary, err := h.CommissionService.ReleaseDue(time.Now())
	if err != nil {
		log.Warnw("admin_release_all_commissions_failed", "error", err)
		respondError(c, response.CodeInternal, "commission release failed", err)
		return
	}
	log.Infow("admin_release_all_commissions_done",
		"released", summary.Released,
		"errors", summary.Errors,
		"total", summary.Total,
	)
	response.Success(c, summary)
}

// ReleaseCommission 解冻单笔佣金。
func (h *Handler) ReleaseCommission(c *gin.Context) {
	log := requestLog(c)
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "commission service unavailable", nil)
		return
	}
	result, err := h.CommissionService.ReleaseSingle(orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrCommissionNotEligible):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			log.Warnw("admin_release_commission_failed", "order_id", orderID, "error", err)
			respondError(c, response.CodeInternal, "commission release failed", err)
		}
		return
	}
	response.Success(c, result)
}

// CancelCommissionRequest 取消佣金请求体
type CancelCommissionRequest struct {
	Reason string `json:"reason"`
}

// CancelCommission 取消订单佣金，已入账的执行冲正。
func (h *Handler) CancelCommission(c *gin.Context) {
	log := requestLog(c)
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "commission service unavailable", nil)
		return
	}
	var req CancelCommissionRequest
	_ = c.ShouldBindJSON(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "admin_cancel"
	}
	if err := h.CommissionService.Cancel(orderID, reason); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrCommissionNotEligible):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			log.Warnw("admin_cancel_commission_failed", "order_id", orderID, "error", err)
			respondError(c, response.CodeInternal, "commission cancel failed", err)
		}
		return
	}
	log.Infow("admin_cancel_commission_done", "order_id", orderID, "reason", reason)
	response.Success(c, gin.H{"order_id": orderID})
}

// FixCommissionBalance 补记漏结算的佣金。
func (h *Handler) FixCommissionBalance(c *gin.Context) {
	log := requestLog(c)
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "commission service unavailable", nil)
		return
	}
	result, err := h.CommissionService.FixBalance(orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrCommissionNotEligible):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			log.Warnw("admin_fix_commission_balance_failed", "order_id", orderID, "error", err)
			respondError(c, response.CodeInternal, "commission fix failed", err)
		}
		return
	}
	log.Infow("admin_fix_commission_balance_done", "order_id", orderID)
	response.Success(c, result)
}

func parseOrderIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", nil)
		return 0, false
	}
	return uint(id), true
}
