package main

import (
	"fmt"
	"time"

	"github.com/vipo-core/internal/config"
	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加演示代理
	agents := []models.Agent{
		{
			Name:              "Demo Agent Alpha",
			Email:             "alpha@agents.example.com",
			Status:            constants.AgentStatusActive,
			CommissionPercent: models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
		},
		{
			Name:              "Demo Agent Beta",
			Email:             "beta@agents.example.com",
			Status:            constants.AgentStatusActive,
			CommissionPercent: models.NewMoneyFromDecimal(decimal.NewFromFloat(7.5)),
		},
		{
			Name:              "Demo Agent Disabled",
			Email:             "disabled@agents.example.com",
			Status:            constants.AgentStatusDisabled,
			CommissionPercent: models.NewMoneyFromDecimal(decimal.NewFromFloat(5)),
		},
	}

	agentIDs := map[string]uint{}
	for _, agent := range agents {
		var existing models.Agent
		if err := models.DB.Where("email = ?", agent.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&agent).Error; err != nil {
				stdLog.Printf("Failed to create agent %s: %v", agent.Email, err)
				continue
			}
			stdLog.Printf("Created agent: %s", agent.Email)
			agentIDs[agent.Email] = agent.ID
		} else {
			existing.Name = agent.Name
			existing.Status = agent.Status
			existing.CommissionPercent = agent.CommissionPercent
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update agent %s: %v", agent.Email, err)
				continue
			}
			stdLog.Printf("Updated agent: %s", agent.Email)
			agentIDs[agent.Email] = existing.ID
		}
	}

	alphaID := agentIDs["alpha@agents.example.com"]
	betaID := agentIDs["beta@agents.example.com"]

	// 添加演示订单
	type seedOrder struct {
		Order models.Order
		Items []models.OrderItem
	}
	orders := []seedOrder{
		{
			Order: models.Order{
				OrderNo:          "SEED-PENDING-001",
				TenantID:         "tenant-demo",
				Status:           constants.OrderStatusPending,
				PaymentStatus:    constants.PaymentStatusPending,
				Currency:         "USD",
				SubtotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(120)),
				TotalAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(120)),
				RefAgentID:       optionalAgentID(alphaID),
				CommissionStatus: constants.CommissionStatusPending,
			},
			Items: []models.OrderItem{
				{
					ProductRef: "sku-pro-plan",
					Name:       "Pro Plan Annual",
					UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(120)),
					Quantity:   1,
					TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(120)),
				},
			},
		},
		{
			Order: models.Order{
				OrderNo:          "SEED-PENDING-002",
				TenantID:         "tenant-demo",
				Status:           constants.OrderStatusPending,
				PaymentStatus:    constants.PaymentStatusInitiated,
				Currency:         "USD",
				SubtotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(75.5)),
				DiscountAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(5.5)),
				TotalAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(70)),
				RefAgentID:       optionalAgentID(betaID),
				CommissionStatus: constants.CommissionStatusPending,
			},
			Items: []models.OrderItem{
				{
					ProductRef: "sku-addon-seats",
					Name:       "Extra Seats x5",
					UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(15.1)),
					Quantity:   5,
					TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(75.5)),
				},
			},
		},
		{
			Order: models.Order{
				OrderNo:          "SEED-NOAGENT-003",
				TenantID:         "tenant-demo",
				Status:           constants.OrderStatusPending,
				PaymentStatus:    constants.PaymentStatusPending,
				Currency:         "USD",
				SubtotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(30)),
				TotalAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(30)),
				CommissionStatus: constants.CommissionStatusPending,
			},
			Items: []models.OrderItem{
				{
					ProductRef: "sku-basic-plan",
					Name:       "Basic Plan Monthly",
					UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(30)),
					Quantity:   1,
					TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(30)),
				},
			},
		},
	}

	for _, entry := range orders {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", entry.Order.OrderNo).First(&existing).Error; err == nil {
			stdLog.Printf("Order already exists: %s", entry.Order.OrderNo)
			continue
		}
		order := entry.Order
		if err := models.DB.Create(&order).Error; err != nil {
			stdLog.Printf("Failed to create order %s: %v", order.OrderNo, err)
			continue
		}
		for _, item := range entry.Items {
			item.OrderID = order.ID
			if err := models.DB.Create(&item).Error; err != nil {
				stdLog.Printf("Failed to create order item for %s: %v", order.OrderNo, err)
			}
		}
		stdLog.Printf("Created order: %s", order.OrderNo)
	}

	// 添加一条待处理支付事件，便于演示异步处理与重试
	demoEvent := models.PaymentEvent{
		EventID:      "seed-evt-success-001",
		Type:         constants.PaymentEventTypeSuccess,
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromFloat(120)),
		Status:       constants.PaymentEventStatusPending,
		RetryHistory: models.RetryHistory{},
		RawPayload:   `{"source":"seed"}`,
	}
	var pendingOrder models.Order
	if err := models.DB.Where("order_no = ?", "SEED-PENDING-001").First(&pendingOrder).Error; err == nil {
		demoEvent.OrderID = pendingOrder.ID
		var existingEvent models.PaymentEvent
		if err := models.DB.Where("event_id = ?", demoEvent.EventID).First(&existingEvent).Error; err != nil {
			if err := models.DB.Create(&demoEvent).Error; err != nil {
				stdLog.Printf("Failed to create payment event %s: %v", demoEvent.EventID, err)
			} else {
				stdLog.Printf("Created payment event: %s", demoEvent.EventID)
			}
		} else {
			stdLog.Printf("Payment event already exists: %s", demoEvent.EventID)
		}
	}

	// 添加对账同步记录示例（金额不一致，便于演示对账报告）
	var mismatchOrder models.Order
	if err := models.DB.Where("order_no = ?", "SEED-PENDING-002").First(&mismatchOrder).Error; err == nil {
		var existingSync models.SyncRecord
		if err := models.DB.Where("order_id = ?", mismatchOrder.ID).First(&existingSync).Error; err != nil {
			now := time.Now()
			record := models.SyncRecord{
				OrderID:           mismatchOrder.ID,
				PaymentSyncStatus: constants.SyncStatusMismatch,
				ERPSyncStatus:     constants.SyncStatusPending,
				OverallStatus:     constants.SyncStatusMismatch,
				AmountMismatch:    true,
				LastCheckedAt:     &now,
			}
			if err := models.DB.Create(&record).Error; err != nil {
				stdLog.Printf("Failed to create sync record for %s: %v", mismatchOrder.OrderNo, err)
			} else {
				stdLog.Printf("Created sync record for order: %s", mismatchOrder.OrderNo)
			}
		} else {
			stdLog.Printf("Sync record already exists for order: %s", mismatchOrder.OrderNo)
		}
	}

	fmt.Println("\nSeed data created:")
	fmt.Println("- 3 Agents (2 active, 1 disabled)")
	fmt.Println("- 3 Pending orders with items")
	fmt.Println("- 1 Pending payment event")
	fmt.Println("- 1 Sync record with amount mismatch")
}

func optionalAgentID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
