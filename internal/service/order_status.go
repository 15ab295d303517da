package service

import (
	"fmt"
	"strings"

	"github.com/vipo-core/internal/constants"
)

// legacyOrderStatusMap 历史状态词表，多对一映射到封闭枚举。
// 上游系统词汇不统一，这张表必须保持稳定。
var legacyOrderStatusMap = map[string]string{
	// pending 族
	"pending":           constants.OrderStatusPending,
	"processing":        constants.OrderStatusPending,
	"in-progress":       constants.OrderStatusPending,
	"awaiting":          constants.OrderStatusPending,
	"queued":            constants.OrderStatusPending,
	"hold":              constants.OrderStatusPending,
	"on-hold":           constants.OrderStatusPending,
	"awaiting-payment":  constants.OrderStatusPending,
	"awaiting-shipment": constants.OrderStatusPending,
	// paid 族
	"paid":     constants.OrderStatusPaid,
	"success":  constants.OrderStatusPaid,
	"approved": constants.OrderStatusPaid,
	// completed 族
	"completed":        constants.OrderStatusCompleted,
	"fulfilled":        constants.OrderStatusCompleted,
	"shipped":          constants.OrderStatusCompleted,
	"shipping":         constants.OrderStatusCompleted,
	"delivered":        constants.OrderStatusCompleted,
	"ready-for-pickup": constants.OrderStatusCompleted,
	"settled":          constants.OrderStatusCompleted,
	// cancelled 族
	"cancelled": constants.OrderStatusCancelled,
	"canceled":  constants.OrderStatusCancelled,
	"void":      constants.OrderStatusCancelled,
	"rejected":  constants.OrderStatusCancelled,
	"declined":  constants.OrderStatusCancelled,
	"abandoned": constants.OrderStatusCancelled,
	"expired":   constants.OrderStatusCancelled,
	// failed 族
	"failed":         constants.OrderStatusFailed,
	"failure":        constants.OrderStatusFailed,
	"error":          constants.OrderStatusFailed,
	"chargeback":     constants.OrderStatusFailed,
	"dispute":        constants.OrderStatusFailed,
	"lost":           constants.OrderStatusFailed,
	"refunded":       constants.OrderStatusFailed,
	"refund":         constants.OrderStatusFailed,
	"partial-refund": constants.OrderStatusFailed,
	// 枚举自身
	"draft": constants.OrderStatusDraft,
}

// orderStatusAdjacency 订单状态前向迁移表，终态无出边。
var orderStatusAdjacency = map[string][]string{
	constants.OrderStatusDraft: {
		constants.OrderStatusPending,
		constants.OrderStatusCancelled,
		constants.OrderStatusFailed,
	},
	constants.OrderStatusPending: {
		constants.OrderStatusPaid,
		constants.OrderStatusCancelled,
		constants.OrderStatusFailed,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusCompleted,
		constants.OrderStatusCancelled,
		constants.OrderStatusFailed,
	},
	constants.OrderStatusCompleted: {},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusFailed:    {},
}

// allowedPaymentStatuses 每个订单状态允许的支付状态子集
var allowedPaymentStatuses = map[string][]string{
	constants.OrderStatusDraft: {
		constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
		constants.PaymentStatusInitiated,
	},
	constants.OrderStatusPending: {
		constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
		constants.PaymentStatusInitiated,
	},
	constants.OrderStatusPaid: {
		constants.PaymentStatusSuccess,
		constants.PaymentStatusFinalSuccess,
		constants.PaymentStatusPartialRefund,
	},
	constants.OrderStatusCompleted: {
		constants.PaymentStatusSuccess,
		constants.PaymentStatusFinalSuccess,
		constants.PaymentStatusPartialRefund,
	},
	constants.OrderStatusCancelled: {
		constants.PaymentStatusCancelled,
	},
	constants.OrderStatusFailed: {
		constants.PaymentStatusFailed,
		constants.PaymentStatusFinalFailed,
		constants.PaymentStatusChargeback,
		constants.PaymentStatusRefunded,
		constants.PaymentStatusPartialRefund,
	},
}

// defaultPaymentStatus 订单状态对应的支付状态兜底值
var defaultPaymentStatus = map[string]string{
	constants.OrderStatusDraft:     constants.PaymentStatusPending,
	constants.OrderStatusPending:   constants.PaymentStatusPending,
	constants.OrderStatusPaid:      constants.PaymentStatusSuccess,
	constants.OrderStatusCompleted: constants.PaymentStatusSuccess,
	constants.OrderStatusCancelled: constants.PaymentStatusCancelled,
	constants.OrderStatusFailed:    constants.PaymentStatusFailed,
}

// TransitionOptions 订单状态迁移选项
type TransitionOptions struct {
	AllowRegression bool // 允许从终态回退
	IsAdminOverride bool // 管理员强制迁移
}

// NormalizeOrderStatus 将历史/自由文本状态归一化到封闭枚举
// 未识别输入统一落到 pending，重复调用结果不变。
func NormalizeOrderStatus(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := legacyOrderStatusMap[key]; ok {
		return canonical
	}
	return constants.OrderStatusPending
}

// IsValidOrderStatus 是否为封闭枚举内的订单状态
func IsValidOrderStatus(status string) bool {
	_, ok := orderStatusAdjacency[status]
	return ok
}

// IsValidPaymentStatus 是否为封闭枚举内的支付状态
func IsValidPaymentStatus(status string) bool {
	switch status {
	case constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
		constants.PaymentStatusInitiated,
		constants.PaymentStatusSuccess,
		constants.PaymentStatusFinalSuccess,
		constants.PaymentStatusFailed,
		constants.PaymentStatusFinalFailed,
		constants.PaymentStatusCancelled,
		constants.PaymentStatusRefunded,
		constants.PaymentStatusPartialRefund,
		constants.PaymentStatusChargeback:
		return true
	default:
		return false
	}
}

// IsTerminalOrderStatus 是否为终态
func IsTerminalOrderStatus(status string) bool {
	edges, ok := orderStatusAdjacency[status]
	return ok && len(edges) == 0
}

// CoercePaymentStatusForOrderStatus 按目标订单状态修正支付状态
// 已合法则原样透传，否则改写为该状态的兜底值。
func CoercePaymentStatusForOrderStatus(orderStatus, paymentStatus string) string {
	if paymentStatusAllowed(orderStatus, paymentStatus) {
		return paymentStatus
	}
	if fallback, ok := defaultPaymentStatus[orderStatus]; ok {
		return fallback
	}
	return constants.PaymentStatusPending
}

// CanTransitionOrderStatus 判断订单状态迁移是否允许
// 同态迁移恒为幂等放行，终态出边仅回退标记或管理员覆写可放行。
func CanTransitionOrderStatus(current, next string, opts TransitionOptions) bool {
	if !IsValidOrderStatus(current) || !IsValidOrderStatus(next) {
		return false
	}
	if current == next {
		return true
	}
	for _, allowed := range orderStatusAdjacency[current] {
		if allowed == next {
			return true
		}
	}
	if IsTerminalOrderStatus(current) && (opts.AllowRegression || opts.IsAdminOverride) {
		return true
	}
	return false
}

// AssertOrderStatusInvariant 校验订单状态与支付状态的配对约束
func AssertOrderStatusInvariant(status, paymentStatus string) error {
	if !IsValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown order status %q", ErrOrderStatusInvalid, status)
	}
	if !IsValidPaymentStatus(paymentStatus) {
		return fmt.Errorf("%w: unknown payment status %q", ErrPaymentStatusInvalid, paymentStatus)
	}
	if !paymentStatusAllowed(status, paymentStatus) {
		return fmt.Errorf("%w: payment status %q not allowed for order status %q",
			ErrPaymentStatusInvalid, paymentStatus, status)
	}
	return nil
}

func paymentStatusAllowed(orderStatus, paymentStatus string) bool {
	for _, allowed := range allowedPaymentStatuses[orderStatus] {
		if allowed == paymentStatus {
			return true
		}
	}
	return false
}
