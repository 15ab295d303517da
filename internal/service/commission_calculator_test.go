package service

import (
	"testing"

	"github.com/vipo-core/internal/models"

	"github.com/shopspring/decimal"
)

func moneyFromFloat(v float64) models.Money {
	return models.NewMoneyFromFloat(v)
}

func TestCalculateCommissionBasic(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: moneyFromFloat(100), Quantity: 2},
		{UnitPrice: moneyFromFloat(50), Quantity: 1},
	}
	// 250 × 12% = 30
	got := CalculateCommission(items, decimal.NewFromInt(12), decimal.Zero)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("佣金计算错误: got %s, 期望 30", got)
	}
}

func TestCalculateCommissionRounding(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: moneyFromFloat(33.33), Quantity: 1},
	}
	// 33.33 × 7.5% = 2.49975 -> 2.50
	got := CalculateCommission(items, decimal.NewFromFloat(7.5), decimal.Zero)
	if !got.Equal(decimal.NewFromFloat(2.50)) {
		t.Fatalf("保留两位小数错误: got %s, 期望 2.5", got)
	}
}

func TestCalculateCommissionWithBonus(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: moneyFromFloat(200), Quantity: 1},
	}
	got := CalculateCommission(items, decimal.NewFromInt(10), decimal.NewFromFloat(5.55))
	if !got.Equal(decimal.NewFromFloat(25.55)) {
		t.Fatalf("奖励叠加错误: got %s, 期望 25.55", got)
	}
}

func TestCalculateCommissionDeterministic(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: moneyFromFloat(19.99), Quantity: 3},
		{UnitPrice: moneyFromFloat(7.77), Quantity: 2},
	}
	first := CalculateCommission(items, decimal.NewFromFloat(8.25), decimal.NewFromFloat(1.01))
	for i := 0; i < 10; i++ {
		again := CalculateCommission(items, decimal.NewFromFloat(8.25), decimal.NewFromFloat(1.01))
		if !again.Equal(first) {
			t.Fatalf("计算结果不稳定: %s != %s", again, first)
		}
	}
}

func TestCalculateCommissionEdgeCases(t *testing.T) {
	if got := CalculateCommission(nil, decimal.NewFromInt(10), decimal.Zero); !got.IsZero() {
		t.Fatalf("空行项目应返回 0, got %s", got)
	}
	items := []models.OrderItem{{UnitPrice: moneyFromFloat(100), Quantity: 1}}
	if got := CalculateCommission(items, decimal.NewFromInt(-5), decimal.Zero); !got.IsZero() {
		t.Fatalf("负费率应按 0 处理, got %s", got)
	}
	if got := CalculateCommission(items, decimal.Zero, decimal.Zero); !got.IsZero() {
		t.Fatalf("零费率应返回 0, got %s", got)
	}
	if got := CalculateCommissionForOrder(nil, decimal.NewFromInt(10), decimal.Zero); !got.IsZero() {
		t.Fatalf("空订单应返回 0, got %s", got)
	}
}
