package service

import (
	"github.com/vipo-core/internal/models"

	"github.com/shopspring/decimal"
)

// CalculateCommission 按订单行项目与代理费率计算佣金
// 逐项计算 itemTotal × rate/100 并保留 2 位小数后求和，再叠加外部奖励金额。
// 纯函数，同样输入恒产出同样结果，对账时可重算比对。
func CalculateCommission(items []models.OrderItem, ratePercent decimal.Decimal, bonus decimal.Decimal) decimal.Decimal {
	if ratePercent.IsNegative() {
		ratePercent = decimal.Zero
	}
	rate := ratePercent.Div(decimal.NewFromInt(100))

	base := decimal.Zero
	for _, item := range items {
		itemTotal := item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
		base = base.Add(itemTotal.Mul(rate).Round(2))
	}

	total := base.Add(bonus).Round(2)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// CalculateCommissionForOrder 便捷入口：从订单读取行项目计算佣金
func CalculateCommissionForOrder(order *models.Order, ratePercent decimal.Decimal, bonus decimal.Decimal) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}
	return CalculateCommission(order.Items, ratePercent, bonus)
}
