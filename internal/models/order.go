package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo               string         `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	TenantID              string         `gorm:"type:varchar(64);index" json:"tenant_id,omitempty"`             // 租户标识（仅作过滤透传）
	Status                string         `gorm:"index;not null" json:"status"`                                  // 订单状态
	PaymentStatus         string         `gorm:"index;not null" json:"payment_status"`                          // 支付状态
	Currency              string         `gorm:"not null" json:"currency"`                                      // 币种
	SubtotalAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"`  // 商品小计
	DiscountAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠金额
	TotalAmount           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`     // 实付金额
	RefundedAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refunded_amount"`  // 累计退款金额
	RefAgentID            *uint          `gorm:"index" json:"ref_agent_id,omitempty"`                           // 归因代理ID
	CommissionAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"` // 佣金金额
	CommissionStatus      string         `gorm:"type:varchar(32);not null;index" json:"commission_status"`      // 佣金状态
	CommissionAvailableAt *time.Time     `gorm:"index" json:"commission_available_at,omitempty"`                // 佣金解冻时间
	CommissionSettled     bool           `gorm:"not null;default:false;index" json:"commission_settled"`        // 佣金是否已入账
	CommissionReviewFlag  bool           `gorm:"not null;default:false" json:"commission_review_flag"`          // 佣金需人工复核标记
	PaidAt                *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                // 支付时间
	CancelledAt           *time.Time     `gorm:"index" json:"cancelled_at,omitempty"`                           // 取消时间
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
