package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent 代理（推广人）表
// 余额字段仅允许通过仓储层原子增减接口写入。
type Agent struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                             // 主键
	Name              string         `gorm:"type:varchar(120);not null" json:"name"`                           // 展示名称
	Email             string         `gorm:"uniqueIndex;not null" json:"email"`                                // 邮箱
	Status            string         `gorm:"type:varchar(32);not null;index" json:"status"`                    // 状态
	CommissionPercent Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_percent"`  // 佣金比例（百分比）
	CommissionBalance Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_balance"`  // 可提现余额
	CommissionOnHold  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_on_hold"`  // 提现冻结金额
	TotalSales        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_sales"`         // 累计归因销售额
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agents"
}
