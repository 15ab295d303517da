package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page             int
	PageSize         int
	TenantID         string
	Status           string
	PaymentStatus    string
	OrderNo          string
	RefAgentID       uint
	CommissionStatus string
	SettledOnly      bool
	ReviewFlagged    bool
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// PaymentEventListFilter 查询支付事件列表的过滤条件
type PaymentEventListFilter struct {
	Page           int
	PageSize       int
	OrderID        uint
	Type           string
	Status         string
	DeadLetterOnly bool
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}
