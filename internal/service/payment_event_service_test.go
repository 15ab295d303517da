package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/models"
	"github.com/vipo-core/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentEventServiceTest(t *testing.T) (*PaymentEventService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_event_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Agent{},
		&models.PaymentEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	orderRepo := repository.NewOrderRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	commissionSvc := NewCommissionService(orderRepo, agentRepo, nil, 14)
	svc := NewPaymentEventService(eventRepo, orderRepo, commissionSvc, nil, 3, []int{10, 30, 60}, 100)
	return svc, db
}

func createPendingOrder(t *testing.T, db *gorm.DB, orderNo string, agentID uint, total, commission decimal.Decimal) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:          orderNo,
		TenantID:         "tenant-1",
		Status:           constants.OrderStatusPending,
		PaymentStatus:    constants.PaymentStatusPending,
		Currency:         "USD",
		SubtotalAmount:   models.NewMoneyFromDecimal(total),
		DiscountAmount:   models.NewMoneyFromDecimal(decimal.Zero),
		TotalAmount:      models.NewMoneyFromDecimal(total),
		RefundedAmount:   models.NewMoneyFromDecimal(decimal.Zero),
		RefAgentID:       &agentID,
		CommissionAmount: models.NewMoneyFromDecimal(commission),
		CommissionStatus: constants.CommissionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func loadEvent(t *testing.T, db *gorm.DB, eventID string) *models.PaymentEvent {
	t.Helper()
	var event models.PaymentEvent
	if err := db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	return &event
}

func TestIngestDeduplicatesByEventID(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)

	first, dup, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-100",
		OrderID: 1,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(1000),
	})
	if err != nil || dup {
		t.Fatalf("首次入库失败: dup=%v err=%v", dup, err)
	}
	second, dup, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-100",
		OrderID: 1,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("重复入库报错: %v", err)
	}
	if !dup || second.ID != first.ID {
		t.Fatalf("重复事件应返回既有记录: dup=%v first=%d second=%d", dup, first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&models.PaymentEvent{}).Where("event_id = ?", "evt-100").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("同一 event_id 只应有一条记录: got %d", count)
	}
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	svc, _ := setupPaymentEventServiceTest(t)
	if _, _, err := svc.Ingest(IngestPaymentEventInput{EventID: " ", Type: "success"}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("空 event_id 应拒绝: %v", err)
	}
	if _, _, err := svc.Ingest(IngestPaymentEventInput{EventID: "evt-x", Type: "no-such-type"}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("未知事件类型应拒绝: %v", err)
	}
}

func TestProcessSuccessEventSettlesOnce(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)
	createTestAgent(t, db, 1)
	order := createPendingOrder(t, db, "PE-1001", 1,
		decimal.NewFromInt(1000), decimal.NewFromInt(120))

	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-200",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := svc.ProcessEvent("evt-200"); err != nil {
		t.Fatalf("ProcessEvent error: %v", err)
	}
	// 重复处理为无操作
	if err := svc.ProcessEvent("evt-200"); err != nil {
		t.Fatalf("重复处理报错: %v", err)
	}

	if balance := loadAgentBalance(t, db, 1); !balance.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("重复处理不应二次入账: got %s", balance)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("订单状态应为 paid: got %s", reloaded.Status)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusSuccess {
		t.Fatalf("支付状态应为 success: got %s", reloaded.PaymentStatus)
	}
	if reloaded.PaidAt == nil {
		t.Fatalf("paid_at 应已写入")
	}

	event := loadEvent(t, db, "evt-200")
	if event.Status != constants.PaymentEventStatusProcessed {
		t.Fatalf("事件状态应为 processed: got %s", event.Status)
	}
	if event.ProcessedAt == nil {
		t.Fatalf("processed_at 应已写入")
	}
	if len(event.RetryHistory) != 1 || !event.RetryHistory[0].Success {
		t.Fatalf("成功处理应追加一条 success 历史: %+v", event.RetryHistory)
	}
}

func TestProcessFailureSchedulesRetryThenDeadLetters(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)
	// 引用不存在的订单，处理必然失败
	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-300",
		OrderID: 99999,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	// 第 1、2 次失败仍可重试
	for attempt := 1; attempt <= 2; attempt++ {
		if err := svc.ProcessEvent("evt-300"); err == nil {
			t.Fatalf("第 %d 次处理应失败", attempt)
		}
		event := loadEvent(t, db, "evt-300")
		if event.InDeadLetter {
			t.Fatalf("第 %d 次失败不应进入死信", attempt)
		}
		if event.RetryCount != attempt {
			t.Fatalf("retry_count 错误: got %d, 期望 %d", event.RetryCount, attempt)
		}
		if event.NextRetryAt == nil || !event.NextRetryAt.After(time.Now()) {
			t.Fatalf("next_retry_at 应在未来: %v", event.NextRetryAt)
		}
		if len(event.RetryHistory) != attempt {
			t.Fatalf("重试历史条数错误: got %d", len(event.RetryHistory))
		}
		// 到点重扫
		if err := db.Model(&models.PaymentEvent{}).Where("event_id = ?", "evt-300").
			Update("next_retry_at", time.Now().Add(-time.Second)).Error; err != nil {
			t.Fatalf("rewind next_retry_at failed: %v", err)
		}
	}

	// 第 3 次失败达到上限，进入死信
	if err := svc.ProcessEvent("evt-300"); err == nil {
		t.Fatalf("第 3 次处理应失败")
	}
	event := loadEvent(t, db, "evt-300")
	if !event.InDeadLetter {
		t.Fatalf("达到重试上限应进入死信")
	}
	if event.Status != constants.PaymentEventStatusFailed {
		t.Fatalf("死信事件状态应为 failed: got %s", event.Status)
	}
	if event.DeadLetterReason == "" {
		t.Fatalf("死信原因应已记录")
	}
	if event.NextRetryAt != nil {
		t.Fatalf("死信事件不应再有 next_retry_at")
	}
	if event.RetryCount != 3 {
		t.Fatalf("retry_count 错误: got %d", event.RetryCount)
	}

	// 死信事件再次处理为无操作
	if err := svc.ProcessEvent("evt-300"); err != nil {
		t.Fatalf("死信事件处理应为无操作: %v", err)
	}
}

func TestRetryDueProcessesDueEventsOnly(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)
	createTestAgent(t, db, 1)
	order := createPendingOrder(t, db, "PE-2001", 1,
		decimal.NewFromInt(500), decimal.NewFromInt(50))

	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-400",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(500),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-401",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypePending,
		Amount:  decimal.NewFromInt(500),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	if err := db.Model(&models.PaymentEvent{}).Where("event_id = ?", "evt-400").
		Update("next_retry_at", past).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := db.Model(&models.PaymentEvent{}).Where("event_id = ?", "evt-401").
		Update("next_retry_at", future).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}

	processed, failed, err := svc.RetryDue(time.Now())
	if err != nil {
		t.Fatalf("RetryDue error: %v", err)
	}
	if processed != 1 || failed != 0 {
		t.Fatalf("扫描结果错误: processed=%d failed=%d", processed, failed)
	}
	if event := loadEvent(t, db, "evt-400"); event.Status != constants.PaymentEventStatusProcessed {
		t.Fatalf("到期事件应被处理: %s", event.Status)
	}
	if event := loadEvent(t, db, "evt-401"); event.Status != constants.PaymentEventStatusPending {
		t.Fatalf("未到期事件不应被处理: %s", event.Status)
	}
}

func TestManualRetryDeadLetterOnly(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)
	createTestAgent(t, db, 1)

	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-500",
		OrderID: 99999,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(300),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	// 非死信事件不允许手工重试
	if err := svc.ManualRetry("evt-500"); !errors.Is(err, ErrEventNotDeadLettered) {
		t.Fatalf("非死信事件应拒绝手工重试: %v", err)
	}

	// 连续失败打入死信
	for i := 0; i < 3; i++ {
		_ = svc.ProcessEvent("evt-500")
	}
	if event := loadEvent(t, db, "evt-500"); !event.InDeadLetter {
		t.Fatalf("事件应已进入死信")
	}

	// 修复数据后手工重试成功
	order := createPendingOrder(t, db, "PE-3001", 1,
		decimal.NewFromInt(300), decimal.NewFromInt(30))
	if err := db.Model(&models.PaymentEvent{}).Where("event_id = ?", "evt-500").
		Update("order_id", order.ID).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := svc.ManualRetry("evt-500"); err != nil {
		t.Fatalf("ManualRetry error: %v", err)
	}

	event := loadEvent(t, db, "evt-500")
	if event.InDeadLetter || event.Status != constants.PaymentEventStatusProcessed {
		t.Fatalf("手工重试后事件应已处理: dead=%v status=%s", event.InDeadLetter, event.Status)
	}
	if balance := loadAgentBalance(t, db, 1); !balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("手工重试后应完成入账: got %s", balance)
	}

	if err := svc.ManualRetry("evt-does-not-exist"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("不存在的事件应返回 ErrEventNotFound: %v", err)
	}
}

func TestProcessRefundEvents(t *testing.T) {
	svc, db := setupPaymentEventServiceTest(t)
	createTestAgent(t, db, 1)
	order := createPendingOrder(t, db, "PE-4001", 1,
		decimal.NewFromInt(1000), decimal.NewFromInt(120))

	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-600",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := svc.ProcessEvent("evt-600"); err != nil {
		t.Fatalf("process success failed: %v", err)
	}

	// 部分退款 400 -> 余额 72
	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-601",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypePartialRefund,
		Amount:  decimal.NewFromInt(400),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := svc.ProcessEvent("evt-601"); err != nil {
		t.Fatalf("process partial refund failed: %v", err)
	}
	if balance := loadAgentBalance(t, db, 1); !balance.Equal(decimal.NewFromInt(72)) {
		t.Fatalf("部分退款后余额应为 72: got %s", balance)
	}
	var afterPartial models.Order
	if err := db.First(&afterPartial, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if afterPartial.Status != constants.OrderStatusPaid {
		t.Fatalf("部分退款不应改变订单状态: got %s", afterPartial.Status)
	}
	if afterPartial.PaymentStatus != constants.PaymentStatusPartialRefund {
		t.Fatalf("支付状态应为 partial_refund: got %s", afterPartial.PaymentStatus)
	}

	// 剩余佣金全额拒付回收
	if _, _, err := svc.Ingest(IngestPaymentEventInput{
		EventID: "evt-602",
		OrderID: order.ID,
		Type:    constants.PaymentEventTypeChargeback,
		Amount:  decimal.NewFromInt(600),
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := svc.ProcessEvent("evt-602"); err != nil {
		t.Fatalf("process chargeback failed: %v", err)
	}
	if balance := loadAgentBalance(t, db, 1); !balance.IsZero() {
		t.Fatalf("拒付后余额应为 0: got %s", balance)
	}
	var afterChargeback models.Order
	if err := db.First(&afterChargeback, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if afterChargeback.Status != constants.OrderStatusFailed {
		t.Fatalf("拒付后订单状态应为 failed: got %s", afterChargeback.Status)
	}
	if afterChargeback.PaymentStatus != constants.PaymentStatusChargeback {
		t.Fatalf("拒付后支付状态应为 chargeback: got %s", afterChargeback.PaymentStatus)
	}
}
