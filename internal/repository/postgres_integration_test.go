//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.OrderItem{},
		&models.PaymentEvent{},
		&models.SyncRecord{},
		&models.Order{},
		&models.Agent{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Agent{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentEvent{},
		&models.SyncRecord{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresOrderCommissionLifecycle(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	orderRepo := NewOrderRepository(db)
	agentRepo := NewAgentRepository(db)

	agent := models.Agent{
		Name:              "pg-agent",
		Email:             "pg-agent@example.com",
		Status:            constants.AgentStatusActive,
		CommissionPercent: models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
	}
	if err := agentRepo.Create(&agent); err != nil {
		t.Fatalf("create agent failed: %v", err)
	}

	order := models.Order{
		OrderNo:          "PG-ORDER-001",
		Status:           constants.OrderStatusPending,
		PaymentStatus:    constants.PaymentStatusPending,
		Currency:         "USD",
		SubtotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
		TotalAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
		RefAgentID:       &agent.ID,
		CommissionStatus: constants.CommissionStatusPending,
	}
	items := []models.OrderItem{
		{
			ProductRef: "sku-pg-1",
			Name:       "Integration Item",
			UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
			Quantity:   1,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
		},
	}
	if err := orderRepo.Create(&order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	now := time.Now().UTC()
	affected, err := orderRepo.SettleCommission(order.ID, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatalf("settle commission failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("settle want 1 row, got %d", affected)
	}

	if err := agentRepo.CreditSettlement(agent.ID, decimal.NewFromFloat(20), decimal.NewFromFloat(200)); err != nil {
		t.Fatalf("credit settlement failed: %v", err)
	}

	releasable, err := orderRepo.ListReleasable(now)
	if err != nil {
		t.Fatalf("list releasable failed: %v", err)
	}
	if len(releasable) != 0 {
		// commission_amount 仍为 0，未计入可解冻
		t.Fatalf("zero commission order should not be releasable, got %d", len(releasable))
	}

	if err := orderRepo.UpdateCommissionFields(order.ID, map[string]interface{}{
		"commission_amount": decimal.NewFromFloat(20),
	}); err != nil {
		t.Fatalf("update commission amount failed: %v", err)
	}

	releasable, err = orderRepo.ListReleasable(now)
	if err != nil {
		t.Fatalf("list releasable failed: %v", err)
	}
	if len(releasable) != 1 || releasable[0].ID != order.ID {
		t.Fatalf("order should be releasable after commission set, got %d rows", len(releasable))
	}

	affected, err = orderRepo.MarkCommissionAvailable(order.ID, now)
	if err != nil {
		t.Fatalf("mark available failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("release want 1 row, got %d", affected)
	}

	got, err := agentRepo.GetByID(agent.ID)
	if err != nil {
		t.Fatalf("get agent failed: %v", err)
	}
	if !got.CommissionBalance.Decimal.Equal(decimal.NewFromFloat(20)) {
		t.Fatalf("agent balance want 20 got %s", got.CommissionBalance.Decimal.String())
	}
	if !got.TotalSales.Decimal.Equal(decimal.NewFromFloat(200)) {
		t.Fatalf("agent total sales want 200 got %s", got.TotalSales.Decimal.String())
	}
}

func TestPostgresPaymentEventDedup(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewPaymentEventRepository(db)

	event := &models.PaymentEvent{
		EventID: "pg-evt-001",
		OrderID: 1,
		Type:    constants.PaymentEventTypeSuccess,
		Amount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
		Status:  constants.PaymentEventStatusPending,
	}
	if err := repo.Create(event); err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	dup := &models.PaymentEvent{
		EventID: "pg-evt-001",
		OrderID: 1,
		Type:    constants.PaymentEventTypeSuccess,
		Status:  constants.PaymentEventStatusPending,
	}
	if err := repo.Create(dup); err == nil {
		t.Fatalf("duplicate event id should violate unique index")
	}
}
