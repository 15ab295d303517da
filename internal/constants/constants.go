package constants

// 订单状态常量
const (
	OrderStatusDraft     = "draft"
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
)

// 支付状态常量
const (
	PaymentStatusPending       = "pending"
	PaymentStatusProcessing    = "processing"
	PaymentStatusInitiated     = "initiated"
	PaymentStatusSuccess       = "success"
	PaymentStatusFinalSuccess  = "final-success"
	PaymentStatusFailed        = "failed"
	PaymentStatusFinalFailed   = "final-failed"
	PaymentStatusCancelled     = "cancelled"
	PaymentStatusRefunded      = "refunded"
	PaymentStatusPartialRefund = "partial_refund"
	PaymentStatusChargeback    = "chargeback"
)

// 佣金状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusAvailable = "available"
	CommissionStatusClaimed   = "claimed"
	CommissionStatusCancelled = "cancelled"
)

// 支付事件类型常量
const (
	PaymentEventTypeSuccess       = "success"
	PaymentEventTypeFailed        = "failed"
	PaymentEventTypeRefund        = "refund"
	PaymentEventTypePartialRefund = "partial_refund"
	PaymentEventTypeChargeback    = "chargeback"
	PaymentEventTypeCancelled     = "cancelled"
	PaymentEventTypePending       = "pending"
)

// 支付事件处理状态常量
const (
	PaymentEventStatusPending   = "pending"
	PaymentEventStatusProcessed = "processed"
	PaymentEventStatusFailed    = "failed"
)

// 代理状态常量
const (
	AgentStatusActive   = "active"
	AgentStatusDisabled = "disabled"
)

// 对账同步状态常量
const (
	SyncStatusPending  = "pending"
	SyncStatusSynced   = "synced"
	SyncStatusMismatch = "mismatch"
	SyncStatusMissing  = "missing"
	SyncStatusFailed   = "failed"
)

// 对账问题类型常量
const (
	ReconIssueAmountMismatch = "amount_mismatch"
	ReconIssueMissingOrder   = "missing_order"
)

// 告警级别常量
const (
	AlertLevelWarning  = "warning"
	AlertLevelCritical = "critical"
)

// 通知事件常量
const (
	NotificationEventCommissionAwarded   = "commission_awarded"
	NotificationEventCommissionReleased  = "commission_released"
	NotificationEventCommissionCancelled = "commission_cancelled"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskPaymentEventProcess  = "payment_event:process"
	TaskAlertDispatch        = "alert:dispatch"
	TaskNotificationDispatch = "notification:dispatch"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "vipo"
)
