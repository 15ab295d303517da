package service

import "errors"

// 业务层哨兵错误，Handler 通过 errors.Is 映射为响应码。
var (
	ErrNotFound              = errors.New("record not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrAgentNotFound         = errors.New("agent not found")
	ErrEventNotFound         = errors.New("payment event not found")
	ErrInvalidParams         = errors.New("invalid params")
	ErrOrderStatusInvalid    = errors.New("invalid order status transition")
	ErrPaymentStatusInvalid  = errors.New("payment status violates order status")
	ErrCommissionNotEligible = errors.New("commission not eligible for this operation")
	ErrEventNotDeadLettered  = errors.New("payment event is not in dead letter")
	ErrReportDateInvalid     = errors.New("invalid reconciliation date")
)
