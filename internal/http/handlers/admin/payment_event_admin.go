package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/vipo-core/internal/http/handlers/shared"
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/repository"
	"github.com/vipo-core/internal/service"

	"github.com/gin-gonic/gin"
)

// ListPaymentEvents 管理端支付事件列表。
func (h *Handler) ListPaymentEvents(c *gin.Context) {
	log := requestLog(c)
	if h.PaymentEventRepo == nil {
		respondError(c, response.CodeInternal, "payment event repository unavailable", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.PaymentEventListFilter{
		Page:           page,
		PageSize:       pageSize,
		Type:           strings.TrimSpace(c.Query("type")),
		Status:         strings.TrimSpace(c.Query("status")),
		DeadLetterOnly: c.Query("dead_letter") == "true",
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if orderID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(orderID)
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

	events, total, err := h.PaymentEventRepo.ListAdmin(filter)
	if err != nil {
		log.Warnw("admin_list_payment_events_failed", "error", err)
		respondError(c, response.CodeInternal, "payment event list failed", err)
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, events, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// RetryPaymentEvent 手动重试死信事件。
func (h *Handler) RetryPaymentEvent(c *gin.Context) {
	log := requestLog(c)
	eventID := strings.TrimSpace(c.Param("event_id"))
	if eventID == "" {
		respondError(c, response.CodeBadRequest, "event id is required", nil)
		return
	}
	if h.PaymentEventService == nil {
		respondError(c, response.CodeInternal, "payment event service unavailable", nil)
		return
	}

	if err := h.PaymentEventService.ManualRetry(eventID); err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			respondError(c, response.CodeNotFound, "payment event not found", nil)
		case errors.Is(err, service.ErrEventNotDeadLettered):
			respondError(c, response.CodeBadRequest, "payment event is not in dead letter", nil)
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeBadRequest, "order not found for event", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			log.Warnw("admin_retry_payment_event_failed", "event_id", eventID, "error", err)
			respondError(c, response.CodeInternal, "payment event retry failed", err)
		}
		return
	}
	log.Infow("admin_retry_payment_event_done", "event_id", eventID)
	response.Success(c, gin.H{"event_id": eventID})
}
