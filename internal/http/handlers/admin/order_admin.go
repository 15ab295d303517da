package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/vipo-core/internal/http/handlers/shared"
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/models"
	"github.com/vipo-core/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminOrderDetail 管理端订单详情返回
type AdminOrderDetail struct {
	models.Order
	SyncRecord *models.SyncRecord `json:"sync_record,omitempty"`
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	log := requestLog(c)
	if h.OrderRepo == nil {
		respondError(c, response.CodeInternal, "order repository unavailable", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:             page,
		PageSize:         pageSize,
		TenantID:         strings.TrimSpace(c.Query("tenant_id")),
		Status:           strings.TrimSpace(c.Query("status")),
		PaymentStatus:    strings.TrimSpace(c.Query("payment_status")),
		OrderNo:          strings.TrimSpace(c.Query("order_no")),
		CommissionStatus: strings.TrimSpace(c.Query("commission_status")),
		SettledOnly:      c.Query("settled") == "true",
		ReviewFlagged:    c.Query("review_flagged") == "true",
	}
	if raw := strings.TrimSpace(c.Query("ref_agent_id")); raw != "" {
		if agentID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.RefAgentID = uint(agentID)
		}
	}
	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		if from, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
			filter.CreatedFrom = &from
		}
	}
	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		if to, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
			end := to.Add(24 * time.Hour)
			filter.CreatedTo = &end
		}
	}

	orders, total, err := h.OrderRepo.ListAdmin(filter)
	if err != nil {
		log.Warnw("admin_list_orders_failed", "error", err)
		respondError(c, response.CodeInternal, "order list failed", err)
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// AdminGetOrder 管理端订单详情，附带同步对账记录。
func (h *Handler) AdminGetOrder(c *gin.Context) {
	log := requestLog(c)
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	if h.OrderRepo == nil {
		respondError(c, response.CodeInternal, "order repository unavailable", nil)
		return
	}

	order, err := h.OrderRepo.GetByID(orderID)
	if err != nil {
		log.Warnw("admin_get_order_failed", "order_id", orderID, "error", err)
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "order not found", nil)
		return
	}

	detail := AdminOrderDetail{Order: *order}
	if h.SyncRecordRepo != nil {
		record, err := h.SyncRecordRepo.GetByOrderID(orderID)
		if err != nil {
			log.Warnw("admin_get_order_sync_record_failed", "order_id", orderID, "error", err)
		} else {
			detail.SyncRecord = record
		}
	}
	response.Success(c, detail)
}
