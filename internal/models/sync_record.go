package models

import (
	"time"

	"gorm.io/gorm"
)

// SyncRecord 订单对账同步表
// 每个订单最多一行，记录支付方与 ERP 的同步状态。
type SyncRecord struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                   // 主键
	OrderID           uint           `gorm:"uniqueIndex;not null" json:"order_id"`                   // 订单ID
	PaymentSyncStatus string         `gorm:"type:varchar(32);not null;index" json:"payment_sync_status"` // 支付方同步状态
	ERPSyncStatus     string         `gorm:"type:varchar(32);not null;index" json:"erp_sync_status"` // ERP 同步状态
	OverallStatus     string         `gorm:"type:varchar(32);not null;index" json:"overall_status"`  // 汇总状态
	AmountMismatch    bool           `gorm:"not null;default:false" json:"amount_mismatch"`          // 金额不一致标记
	LastCheckedAt     *time.Time     `gorm:"index" json:"last_checked_at,omitempty"`                 // 最近对账时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (SyncRecord) TableName() string {
	return "sync_records"
}
