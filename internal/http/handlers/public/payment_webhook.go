package public

import (
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentEventWebhookRequest 支付事件 webhook 请求体
type PaymentEventWebhookRequest struct {
	EventID string  `json:"event_id" binding:"required"`
	OrderID uint    `json:"order_id" binding:"required"`
	Type    string  `json:"type" binding:"required"`
	Amount  float64 `json:"amount"`
	Payload string  `json:"payload"`
}

// PaymentEventWebhook 接收上游支付网关的事件推送。
// 按 event_id 去重：重复事件直接回执，不重复处理。
func (h *Handler) PaymentEventWebhook(c *gin.Context) {
	log := requestLog(c)
	var req PaymentEventWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnw("payment_event_webhook_body_invalid", "error", err)
		respondError(c, response.CodeBadRequest, "payment event payload invalid", err)
		return
	}
	if h.PaymentEventService == nil {
		respondError(c, response.CodeInternal, "payment event service unavailable", nil)
		return
	}

	event, duplicate, err := h.PaymentEventService.Ingest(service.IngestPaymentEventInput{
		EventID:    req.EventID,
		OrderID:    req.OrderID,
		Type:       req.Type,
		Amount:     decimal.NewFromFloat(req.Amount),
		RawPayload: req.Payload,
	})
	if err != nil {
		log.Warnw("payment_event_webhook_ingest_failed",
			"event_id", req.EventID,
			"order_id", req.OrderID,
			"error", err,
		)
		respondWebhookIngestError(c, err)
		return
	}
	if duplicate {
		log.Infow("payment_event_webhook_duplicate",
			"event_id", event.EventID,
			"order_id", event.OrderID,
			"status", event.Status,
		)
		response.SuccessWithMsg(c, "duplicate event", gin.H{
			"event_id":  event.EventID,
			"duplicate": true,
			"status":    event.Status,
		})
		return
	}

	// 队列可用时异步处理，否则同步处理；处理失败由重试机制兜底
	if !h.PaymentEventService.EnqueueProcess(event.EventID, 0) {
		if err := h.PaymentEventService.ProcessEvent(event.EventID); err != nil {
			log.Warnw("payment_event_webhook_inline_process_failed",
				"event_id", event.EventID,
				"order_id", event.OrderID,
				"error", err,
			)
		}
	}

	response.Success(c, gin.H{
		"event_id":  event.EventID,
		"duplicate": false,
	})
}
