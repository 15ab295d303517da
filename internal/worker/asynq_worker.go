package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/provider"
	"github.com/vipo-core/internal/queue"
	"github.com/vipo-core/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentEventProcess, c.handlePaymentEventProcess)
	mux.HandleFunc(queue.TaskAlertDispatch, c.handleAlertDispatch)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

// handlePaymentEventProcess 处理支付事件
// 业务失败由 PaymentEventService 自行记录重试/死信，返回 nil 避免 asynq 再叠加一层重试。
func (c *Consumer) handlePaymentEventProcess(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentEventProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_event_unmarshal_failed", "error", err)
		return err
	}
	eventID := strings.TrimSpace(payload.EventID)
	if eventID == "" {
		logger.Debugw("worker_payment_event_skip_invalid_payload")
		return nil
	}
	if c.PaymentEventService == nil {
		logger.Warnw("worker_payment_event_skip_service_nil", "event_id", eventID)
		return nil
	}
	if err := c.PaymentEventService.ProcessEvent(eventID); err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			logger.Debugw("worker_payment_event_skip_not_found", "event_id", eventID)
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_payment_event_order_not_found", "event_id", eventID)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			logger.Debugw("worker_payment_event_invalid_transition", "event_id", eventID)
		default:
			logger.Warnw("worker_payment_event_process_failed", "event_id", eventID, "error", err)
		}
		return nil
	}
	return nil
}

func (c *Consumer) handleAlertDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_alert_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AlertDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_alert_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if c.AlertService == nil {
		logger.Warnw("worker_alert_dispatch_skip_service_nil", "subject", payload.Subject)
		return nil
	}
	if err := c.AlertService.Dispatch(service.AlertInput{
		Level:   payload.Level,
		Subject: payload.Subject,
		Body:    payload.Body,
		Fields:  payload.Fields,
	}); err != nil {
		logger.Warnw("worker_alert_dispatch_failed", "subject", payload.Subject, "error", err)
		return nil
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.Event == "" {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload")
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "event", payload.Event)
		return nil
	}
	if err := c.NotificationService.Dispatch(service.NotificationInput{
		Event:   payload.Event,
		OrderID: payload.OrderID,
		AgentID: payload.AgentID,
		Amount:  payload.Amount,
	}); err != nil {
		logger.Warnw("worker_notification_dispatch_failed",
			"event", payload.Event,
			"order_id", payload.OrderID,
			"error", err,
		)
		return nil
	}
	return nil
}
