package service

import (
	"errors"
	"testing"

	"github.com/vipo-core/internal/constants"
)

func TestNormalizeOrderStatusLegacyFamilies(t *testing.T) {
	cases := map[string]string{
		"pending":           constants.OrderStatusPending,
		"processing":        constants.OrderStatusPending,
		"in-progress":       constants.OrderStatusPending,
		"awaiting":          constants.OrderStatusPending,
		"queued":            constants.OrderStatusPending,
		"hold":              constants.OrderStatusPending,
		"on-hold":           constants.OrderStatusPending,
		"awaiting-payment":  constants.OrderStatusPending,
		"awaiting-shipment": constants.OrderStatusPending,
		"paid":              constants.OrderStatusPaid,
		"success":           constants.OrderStatusPaid,
		"approved":          constants.OrderStatusPaid,
		"completed":         constants.OrderStatusCompleted,
		"fulfilled":         constants.OrderStatusCompleted,
		"shipped":           constants.OrderStatusCompleted,
		"shipping":          constants.OrderStatusCompleted,
		"delivered":         constants.OrderStatusCompleted,
		"ready-for-pickup":  constants.OrderStatusCompleted,
		"settled":           constants.OrderStatusCompleted,
		"cancelled":         constants.OrderStatusCancelled,
		"canceled":          constants.OrderStatusCancelled,
		"void":              constants.OrderStatusCancelled,
		"rejected":          constants.OrderStatusCancelled,
		"declined":          constants.OrderStatusCancelled,
		"abandoned":         constants.OrderStatusCancelled,
		"expired":           constants.OrderStatusCancelled,
		"failed":            constants.OrderStatusFailed,
		"failure":           constants.OrderStatusFailed,
		"error":             constants.OrderStatusFailed,
		"chargeback":        constants.OrderStatusFailed,
		"dispute":           constants.OrderStatusFailed,
		"lost":              constants.OrderStatusFailed,
		"refunded":          constants.OrderStatusFailed,
		"refund":            constants.OrderStatusFailed,
		"partial-refund":    constants.OrderStatusFailed,
		"draft":             constants.OrderStatusDraft,
	}
	for raw, want := range cases {
		if got := NormalizeOrderStatus(raw); got != want {
			t.Fatalf("NormalizeOrderStatus(%q) = %q, 期望 %q", raw, got, want)
		}
	}
}

func TestNormalizeOrderStatusUnknownAndIdempotent(t *testing.T) {
	unknowns := []string{"", "???", "whatever", "PAID ", "  Shipped", "refundED"}
	for _, raw := range unknowns {
		first := NormalizeOrderStatus(raw)
		if !IsValidOrderStatus(first) {
			t.Fatalf("归一化结果 %q 不在封闭枚举内", first)
		}
		if second := NormalizeOrderStatus(first); second != first {
			t.Fatalf("二次归一化不稳定: %q -> %q -> %q", raw, first, second)
		}
	}
	if got := NormalizeOrderStatus("no-such-status"); got != constants.OrderStatusPending {
		t.Fatalf("未识别状态应落到 pending, got %q", got)
	}
	if got := NormalizeOrderStatus("  Shipped "); got != constants.OrderStatusCompleted {
		t.Fatalf("大小写与空白应被归一化, got %q", got)
	}
}

func TestCoercePaymentStatusForOrderStatus(t *testing.T) {
	// 合法配对原样透传
	if got := CoercePaymentStatusForOrderStatus(constants.OrderStatusPaid, constants.PaymentStatusFinalSuccess); got != constants.PaymentStatusFinalSuccess {
		t.Fatalf("合法支付状态应透传, got %q", got)
	}
	if got := CoercePaymentStatusForOrderStatus(constants.OrderStatusFailed, constants.PaymentStatusChargeback); got != constants.PaymentStatusChargeback {
		t.Fatalf("failed 族支付状态应透传, got %q", got)
	}
	// 非法配对改写为兜底值
	if got := CoercePaymentStatusForOrderStatus(constants.OrderStatusPaid, constants.PaymentStatusPending); got != constants.PaymentStatusSuccess {
		t.Fatalf("paid 兜底值应为 success, got %q", got)
	}
	if got := CoercePaymentStatusForOrderStatus(constants.OrderStatusCancelled, constants.PaymentStatusSuccess); got != constants.PaymentStatusCancelled {
		t.Fatalf("cancelled 兜底值应为 cancelled, got %q", got)
	}
	if got := CoercePaymentStatusForOrderStatus(constants.OrderStatusFailed, constants.PaymentStatusSuccess); got != constants.PaymentStatusFailed {
		t.Fatalf("failed 兜底值应为 failed, got %q", got)
	}
}

func TestCanTransitionOrderStatus(t *testing.T) {
	type pair struct {
		from, to string
	}
	allowed := []pair{
		{constants.OrderStatusDraft, constants.OrderStatusPending},
		{constants.OrderStatusDraft, constants.OrderStatusCancelled},
		{constants.OrderStatusDraft, constants.OrderStatusFailed},
		{constants.OrderStatusPending, constants.OrderStatusPaid},
		{constants.OrderStatusPending, constants.OrderStatusCancelled},
		{constants.OrderStatusPending, constants.OrderStatusFailed},
		{constants.OrderStatusPaid, constants.OrderStatusCompleted},
		{constants.OrderStatusPaid, constants.OrderStatusCancelled},
		{constants.OrderStatusPaid, constants.OrderStatusFailed},
	}
	for _, p := range allowed {
		if !CanTransitionOrderStatus(p.from, p.to, TransitionOptions{}) {
			t.Fatalf("前向迁移 %q -> %q 应放行", p.from, p.to)
		}
	}

	rejected := []pair{
		{constants.OrderStatusDraft, constants.OrderStatusPaid},
		{constants.OrderStatusPending, constants.OrderStatusCompleted},
		{constants.OrderStatusCompleted, constants.OrderStatusPending},
		{constants.OrderStatusCancelled, constants.OrderStatusPaid},
		{constants.OrderStatusFailed, constants.OrderStatusPending},
	}
	for _, p := range rejected {
		if CanTransitionOrderStatus(p.from, p.to, TransitionOptions{}) {
			t.Fatalf("迁移 %q -> %q 应拒绝", p.from, p.to)
		}
	}

	// 同态迁移恒为放行
	for status := range orderStatusAdjacency {
		if !CanTransitionOrderStatus(status, status, TransitionOptions{}) {
			t.Fatalf("同态迁移 %q 应放行", status)
		}
	}

	// 终态回退需要显式标记
	if !CanTransitionOrderStatus(constants.OrderStatusFailed, constants.OrderStatusPending, TransitionOptions{AllowRegression: true}) {
		t.Fatalf("allowRegression 应放行终态回退")
	}
	if !CanTransitionOrderStatus(constants.OrderStatusCancelled, constants.OrderStatusPaid, TransitionOptions{IsAdminOverride: true}) {
		t.Fatalf("isAdminOverride 应放行终态回退")
	}
	// 非终态的跳跃迁移即便覆写也不放行
	if CanTransitionOrderStatus(constants.OrderStatusDraft, constants.OrderStatusPaid, TransitionOptions{IsAdminOverride: true}) {
		t.Fatalf("非终态跳跃迁移不应放行")
	}
	// 非法枚举直接拒绝
	if CanTransitionOrderStatus("unknown", constants.OrderStatusPaid, TransitionOptions{}) {
		t.Fatalf("未知状态不应放行")
	}
}

func TestAssertOrderStatusInvariant(t *testing.T) {
	valid := []struct {
		status, payment string
	}{
		{constants.OrderStatusPending, constants.PaymentStatusPending},
		{constants.OrderStatusPending, constants.PaymentStatusProcessing},
		{constants.OrderStatusPaid, constants.PaymentStatusSuccess},
		{constants.OrderStatusPaid, constants.PaymentStatusFinalSuccess},
		{constants.OrderStatusCompleted, constants.PaymentStatusSuccess},
		{constants.OrderStatusCancelled, constants.PaymentStatusCancelled},
		{constants.OrderStatusFailed, constants.PaymentStatusFailed},
		{constants.OrderStatusFailed, constants.PaymentStatusFinalFailed},
		{constants.OrderStatusFailed, constants.PaymentStatusChargeback},
		{constants.OrderStatusFailed, constants.PaymentStatusRefunded},
		{constants.OrderStatusFailed, constants.PaymentStatusPartialRefund},
	}
	for _, c := range valid {
		if err := AssertOrderStatusInvariant(c.status, c.payment); err != nil {
			t.Fatalf("配对 (%q, %q) 应通过校验: %v", c.status, c.payment, err)
		}
	}

	invalid := []struct {
		status, payment string
	}{
		{constants.OrderStatusPaid, constants.PaymentStatusPending},
		{constants.OrderStatusCancelled, constants.PaymentStatusSuccess},
		{constants.OrderStatusFailed, constants.PaymentStatusSuccess},
		{constants.OrderStatusPending, constants.PaymentStatusSuccess},
	}
	for _, c := range invalid {
		err := AssertOrderStatusInvariant(c.status, c.payment)
		if err == nil {
			t.Fatalf("配对 (%q, %q) 应校验失败", c.status, c.payment)
		}
		if !errors.Is(err, ErrPaymentStatusInvalid) {
			t.Fatalf("错误类型不符: %v", err)
		}
	}

	if err := AssertOrderStatusInvariant("unknown", constants.PaymentStatusPending); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("未知订单状态应返回 ErrOrderStatusInvalid, got %v", err)
	}
	if err := AssertOrderStatusInvariant(constants.OrderStatusPaid, "unknown"); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("未知支付状态应返回 ErrPaymentStatusInvalid, got %v", err)
	}
}
