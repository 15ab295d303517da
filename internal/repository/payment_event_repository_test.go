package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentEventRepositoryTest(t *testing.T) (*GormPaymentEventRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_event_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPaymentEventRepository(db), db
}

func TestPaymentEventRepositoryGetByEventID(t *testing.T) {
	repo, _ := setupPaymentEventRepositoryTest(t)
	event := &models.PaymentEvent{
		EventID: "evt-get-001",
		OrderID: 1,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(12.5)),
		Status:  constants.PaymentEventStatusPending,
	}
	if err := repo.Create(event); err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	got, err := repo.GetByEventID("evt-get-001")
	if err != nil {
		t.Fatalf("get by event id failed: %v", err)
	}
	if got == nil || got.OrderID != 1 {
		t.Fatalf("unexpected event: %+v", got)
	}

	missing, err := repo.GetByEventID("evt-missing")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing event should return nil")
	}
}

func TestPaymentEventRepositoryListDue(t *testing.T) {
	repo, db := setupPaymentEventRepositoryTest(t)
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	events := []models.PaymentEvent{
		{
			EventID:     "evt-due-001",
			OrderID:     1,
			Type:        constants.PaymentEventTypeSuccess,
			Status:      constants.PaymentEventStatusPending,
			NextRetryAt: &past,
		},
		{
			EventID:     "evt-future-001",
			OrderID:     2,
			Type:        constants.PaymentEventTypeSuccess,
			Status:      constants.PaymentEventStatusPending,
			NextRetryAt: &future,
		},
		{
			EventID:      "evt-dead-001",
			OrderID:      3,
			Type:         constants.PaymentEventTypeSuccess,
			Status:       constants.PaymentEventStatusPending,
			InDeadLetter: true,
			NextRetryAt:  &past,
		},
		{
			EventID: "evt-no-retry-001",
			OrderID: 4,
			Type:    constants.PaymentEventTypeSuccess,
			Status:  constants.PaymentEventStatusPending,
		},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			t.Fatalf("create event %s failed: %v", events[i].EventID, err)
		}
	}

	due, err := repo.ListDue(now, 10)
	if err != nil {
		t.Fatalf("list due failed: %v", err)
	}
	if len(due) != 1 || due[0].EventID != "evt-due-001" {
		t.Fatalf("want only evt-due-001 due, got %d rows", len(due))
	}
}

func TestPaymentEventRepositoryListAdminDeadLetterOnly(t *testing.T) {
	repo, db := setupPaymentEventRepositoryTest(t)
	events := []models.PaymentEvent{
		{EventID: "evt-ok-001", OrderID: 1, Type: constants.PaymentEventTypeSuccess, Status: constants.PaymentEventStatusProcessed},
		{EventID: "evt-dl-001", OrderID: 2, Type: constants.PaymentEventTypeRefund, Status: constants.PaymentEventStatusFailed, InDeadLetter: true},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}

	list, total, err := repo.ListAdmin(PaymentEventListFilter{Page: 1, PageSize: 10, DeadLetterOnly: true})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].EventID != "evt-dl-001" {
		t.Fatalf("dead letter filter failed, total=%d", total)
	}
}
