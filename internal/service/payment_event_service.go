package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/models"
	"github.com/vipo-core/internal/queue"
	"github.com/vipo-core/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultRetryMaxAttempts   = 3
	defaultRetrySweepBatch    = 100
	maxDeadLetterReasonLength = 500
)

var defaultRetryBackoffSeconds = []int{10, 30, 60}

// PaymentEventService 支付事件接入与重试服务
// 以 event_id 去重，处理失败按退避表重试，超过上限进入死信集合。
type PaymentEventService struct {
	eventRepo         repository.PaymentEventRepository
	orderRepo         repository.OrderRepository
	commissionService *CommissionService
	queueClient       *queue.Client
	maxAttempts       int
	backoffSeconds    []int
	sweepBatchSize    int
}

// NewPaymentEventService 创建支付事件服务
func NewPaymentEventService(
	eventRepo repository.PaymentEventRepository,
	orderRepo repository.OrderRepository,
	commissionService *CommissionService,
	queueClient *queue.Client,
	maxAttempts int,
	backoffSeconds []int,
	sweepBatchSize int,
) *PaymentEventService {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	if len(backoffSeconds) == 0 {
		backoffSeconds = defaultRetryBackoffSeconds
	}
	if sweepBatchSize <= 0 {
		sweepBatchSize = defaultRetrySweepBatch
	}
	return &PaymentEventService{
		eventRepo:         eventRepo,
		orderRepo:         orderRepo,
		commissionService: commissionService,
		queueClient:       queueClient,
		maxAttempts:       maxAttempts,
		backoffSeconds:    backoffSeconds,
		sweepBatchSize:    sweepBatchSize,
	}
}

// IngestPaymentEventInput 支付事件入库输入
type IngestPaymentEventInput struct {
	EventID    string
	OrderID    uint
	Type       string
	Amount     decimal.Decimal
	RawPayload string
}

// Ingest 接收支付事件
// event_id 已存在时返回既有记录并标记 duplicate，不重复建档。
func (s *PaymentEventService) Ingest(input IngestPaymentEventInput) (*models.PaymentEvent, bool, error) {
	if s.eventRepo == nil {
		return nil, false, ErrEventNotFound
	}
	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		return nil, false, fmt.Errorf("%w: event_id is required", ErrInvalidParams)
	}
	eventType := strings.ToLower(strings.TrimSpace(input.Type))
	if !isKnownPaymentEventType(eventType) {
		return nil, false, fmt.Errorf("%w: unknown event type %q", ErrInvalidParams, input.Type)
	}

	existing, err := s.eventRepo.GetByEventID(eventID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		logger.Infow("payment_event_duplicate_ignored", "event_id", eventID, "order_id", existing.OrderID)
		return existing, true, nil
	}

	event := &models.PaymentEvent{
		EventID:      eventID,
		OrderID:      input.OrderID,
		Type:         eventType,
		Amount:       models.NewMoneyFromDecimal(input.Amount.Round(2)),
		Status:       constants.PaymentEventStatusPending,
		RetryHistory: models.RetryHistory{},
		RawPayload:   input.RawPayload,
	}
	if err := s.eventRepo.Create(event); err != nil {
		// 并发重复投递可能在 Create 时撞唯一索引
		if isUniqueViolation(err) {
			dup, getErr := s.eventRepo.GetByEventID(eventID)
			if getErr == nil && dup != nil {
				return dup, true, nil
			}
		}
		return nil, false, err
	}

	logger.Infow("payment_event_ingested",
		"event_id", eventID,
		"order_id", input.OrderID,
		"type", eventType,
		"amount", input.Amount.Round(2).String(),
	)
	return event, false, nil
}

// EnqueueProcess 推送异步处理任务，队列未启用时返回 false 由调用方内联处理
func (s *PaymentEventService) EnqueueProcess(eventID string, delay time.Duration) bool {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return false
	}
	if err := s.queueClient.EnqueuePaymentEventProcess(queue.PaymentEventProcessPayload{EventID: eventID}, delay); err != nil {
		logger.Warnw("payment_event_enqueue_failed", "event_id", eventID, "error", err)
		return false
	}
	return true
}

// ProcessEvent 处理单个支付事件
// 已处理/已死信直接返回；业务失败会记录重试并原样返回错误。
func (s *PaymentEventService) ProcessEvent(eventID string) error {
	if s.eventRepo == nil {
		return ErrEventNotFound
	}
	event, err := s.eventRepo.GetByEventID(eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}
	if event.Status == constants.PaymentEventStatusProcessed {
		return nil
	}
	if event.InDeadLetter {
		return nil
	}

	now := time.Now()
	if err := s.applyEvent(event); err != nil {
		if recordErr := s.recordFailure(event, err.Error(), now); recordErr != nil {
			logger.Errorw("payment_event_record_failure_failed",
				"event_id", event.EventID,
				"error", recordErr,
			)
		}
		return err
	}

	event.Status = constants.PaymentEventStatusProcessed
	event.ProcessedAt = &now
	event.NextRetryAt = nil
	event.RetryHistory = append(event.RetryHistory, models.RetryAttempt{
		Attempt:     event.RetryCount + 1,
		AttemptedAt: now,
		Success:     true,
	})
	if err := s.eventRepo.Update(event); err != nil {
		return err
	}
	logger.Infow("payment_event_processed",
		"event_id", event.EventID,
		"order_id", event.OrderID,
		"type", event.Type,
	)
	return nil
}

// RetryDue 扫描到期事件并重试（限量批处理）
// 返回本批处理成功与失败的数量，单条失败不中断扫描。
func (s *PaymentEventService) RetryDue(now time.Time) (processed int, failed int, err error) {
	if s.eventRepo == nil {
		return 0, 0, nil
	}
	events, err := s.eventRepo.ListDue(now, s.sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}
	for i := range events {
		if procErr := s.ProcessEvent(events[i].EventID); procErr != nil {
			failed++
			continue
		}
		processed++
	}
	if len(events) > 0 {
		logger.Infow("payment_event_retry_sweep_finished",
			"due", len(events),
			"processed", processed,
			"failed", failed,
		)
	}
	return processed, failed, nil
}

// ManualRetry 手工重试死信事件
// 仅死信集合内的事件可重试，重置计数后立即重新处理。
func (s *PaymentEventService) ManualRetry(eventID string) error {
	if s.eventRepo == nil {
		return ErrEventNotFound
	}
	event, err := s.eventRepo.GetByEventID(strings.TrimSpace(eventID))
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}
	if !event.InDeadLetter {
		return ErrEventNotDeadLettered
	}

	if err := s.eventRepo.UpdateFields(event.ID, map[string]interface{}{
		"in_dead_letter":     false,
		"dead_letter_reason": "",
		"status":             constants.PaymentEventStatusPending,
		"retry_count":        0,
		"next_retry_at":      nil,
		"updated_at":         time.Now(),
	}); err != nil {
		return err
	}
	logger.Infow("payment_event_manual_retry", "event_id", event.EventID, "order_id", event.OrderID)
	return s.ProcessEvent(event.EventID)
}

// applyEvent 按事件类型驱动订单与佣金状态
func (s *PaymentEventService) applyEvent(event *models.PaymentEvent) error {
	if s.orderRepo == nil || s.commissionService == nil {
		return fmt.Errorf("payment event service is not fully wired")
	}
	order, err := s.orderRepo.GetByID(event.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: order %d referenced by event %s", ErrOrderNotFound, event.OrderID, event.EventID)
	}

	switch event.Type {
	case constants.PaymentEventTypeSuccess:
		if err := s.transitionOrder(order, constants.OrderStatusPaid, constants.PaymentStatusSuccess); err != nil {
			return err
		}
		return s.commissionService.SettleOrderPaid(order.ID)
	case constants.PaymentEventTypeRefund:
		if err := s.commissionService.ReverseSettlement(order.ID, "full_refund"); err != nil {
			return err
		}
		return s.transitionOrder(order, constants.OrderStatusFailed, constants.PaymentStatusRefunded)
	case constants.PaymentEventTypeChargeback:
		if err := s.commissionService.ReverseSettlement(order.ID, "chargeback"); err != nil {
			return err
		}
		return s.transitionOrder(order, constants.OrderStatusFailed, constants.PaymentStatusChargeback)
	case constants.PaymentEventTypePartialRefund:
		if err := s.commissionService.ApplyPartialRefund(order.ID, event.Amount.Decimal); err != nil {
			return err
		}
		// 部分退款订单保持当前状态，仅支付状态标记为 partial_refund
		return s.orderRepo.UpdateCommissionFields(order.ID, map[string]interface{}{
			"payment_status": CoercePaymentStatusForOrderStatus(order.Status, constants.PaymentStatusPartialRefund),
			"updated_at":     time.Now(),
		})
	case constants.PaymentEventTypeCancelled:
		if err := s.commissionService.Cancel(order.ID, "payment_cancelled"); err != nil {
			return err
		}
		return s.transitionOrder(order, constants.OrderStatusCancelled, constants.PaymentStatusCancelled)
	case constants.PaymentEventTypeFailed:
		return s.transitionOrder(order, constants.OrderStatusFailed, constants.PaymentStatusFailed)
	case constants.PaymentEventTypePending:
		// 仅建档，不驱动状态
		return nil
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidParams, event.Type)
	}
}

// transitionOrder 按状态机迁移订单，幂等同态直接跳过
func (s *PaymentEventService) transitionOrder(order *models.Order, nextStatus, paymentStatus string) error {
	if order.Status == nextStatus {
		return nil
	}
	if !CanTransitionOrderStatus(order.Status, nextStatus, TransitionOptions{}) {
		return fmt.Errorf("%w: %q -> %q", ErrOrderStatusInvalid, order.Status, nextStatus)
	}
	coerced := CoercePaymentStatusForOrderStatus(nextStatus, paymentStatus)
	if err := AssertOrderStatusInvariant(nextStatus, coerced); err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"payment_status": coerced,
		"updated_at":     now,
	}
	switch nextStatus {
	case constants.OrderStatusPaid:
		updates["paid_at"] = now
	case constants.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}
	if err := s.orderRepo.UpdateStatus(order.ID, nextStatus, updates); err != nil {
		return err
	}
	order.Status = nextStatus
	order.PaymentStatus = coerced
	return nil
}

// recordFailure 登记一次失败尝试
// 达到重试上限转入死信并发送告警，告警失败不阻塞落库。
func (s *PaymentEventService) recordFailure(event *models.PaymentEvent, message string, now time.Time) error {
	event.RetryCount++
	event.RetryHistory = append(event.RetryHistory, models.RetryAttempt{
		Attempt:     event.RetryCount,
		AttemptedAt: now,
		Error:       message,
		Success:     false,
	})

	if event.RetryCount >= s.maxAttempts {
		reason := fmt.Sprintf("failed %d times, last error: %s", event.RetryCount, message)
		if len(reason) > maxDeadLetterReasonLength {
			reason = reason[:maxDeadLetterReasonLength]
		}
		event.InDeadLetter = true
		event.Status = constants.PaymentEventStatusFailed
		event.DeadLetterReason = reason
		event.NextRetryAt = nil
		if err := s.eventRepo.Update(event); err != nil {
			return err
		}
		logger.Errorw("payment_event_dead_lettered",
			"event_id", event.EventID,
			"order_id", event.OrderID,
			"retry_count", event.RetryCount,
			"reason", message,
		)
		s.dispatchDeadLetterAlert(event, message)
		return nil
	}

	delay := s.backoffDelay(event.RetryCount)
	nextRetryAt := now.Add(delay)
	event.NextRetryAt = &nextRetryAt
	if err := s.eventRepo.Update(event); err != nil {
		return err
	}
	logger.Warnw("payment_event_retry_scheduled",
		"event_id", event.EventID,
		"order_id", event.OrderID,
		"attempt", event.RetryCount,
		"next_retry_at", nextRetryAt,
		"error", message,
	)
	s.EnqueueProcess(event.EventID, delay)
	return nil
}

// backoffDelay 按尝试次数取退避间隔，越界复用最后一项
func (s *PaymentEventService) backoffDelay(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.backoffSeconds) {
		idx = len(s.backoffSeconds) - 1
	}
	return time.Duration(s.backoffSeconds[idx]) * time.Second
}

func (s *PaymentEventService) dispatchDeadLetterAlert(event *models.PaymentEvent, message string) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueAlertDispatch(queue.AlertDispatchPayload{
		Level:   constants.AlertLevelCritical,
		Subject: "payment event moved to dead letter",
		Fields: map[string]string{
			"event_id":    event.EventID,
			"order_id":    fmt.Sprintf("%d", event.OrderID),
			"amount":      event.Amount.Decimal.String(),
			"error":       message,
			"retry_count": fmt.Sprintf("%d", event.RetryCount),
		},
	}); err != nil {
		logger.Warnw("payment_event_alert_enqueue_failed", "event_id", event.EventID, "error", err)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func isKnownPaymentEventType(eventType string) bool {
	switch eventType {
	case constants.PaymentEventTypeSuccess,
		constants.PaymentEventTypeFailed,
		constants.PaymentEventTypeRefund,
		constants.PaymentEventTypePartialRefund,
		constants.PaymentEventTypeChargeback,
		constants.PaymentEventTypeCancelled,
		constants.PaymentEventTypePending:
		return true
	default:
		return false
	}
}
