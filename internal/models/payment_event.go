package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RetryAttempt 单次重试记录
type RetryAttempt struct {
	Attempt     int       `json:"attempt"`
	AttemptedAt time.Time `json:"attempted_at"`
	Error       string    `json:"error,omitempty"`
	Success     bool      `json:"success"`
}

// RetryHistory 重试历史（JSON 列存储）
type RetryHistory []RetryAttempt

// Value 用于数据库写入
func (h RetryHistory) Value() (driver.Value, error) {
	if h == nil {
		h = RetryHistory{}
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan 用于数据库读取
func (h *RetryHistory) Scan(value interface{}) error {
	if value == nil {
		*h = RetryHistory{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported retry history column type")
	}
	if len(raw) == 0 {
		*h = RetryHistory{}
		return nil
	}
	return json.Unmarshal(raw, h)
}

// PaymentEvent 支付事件表
// event_id 为提供方去重键，全局唯一。
type PaymentEvent struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                // 主键
	EventID          string         `gorm:"uniqueIndex;not null" json:"event_id"`                // 提供方事件ID（去重键）
	OrderID          uint           `gorm:"index;not null" json:"order_id"`                      // 关联订单ID
	Type             string         `gorm:"type:varchar(32);not null;index" json:"type"`         // 事件类型
	Amount           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 事件金额
	Status           string         `gorm:"type:varchar(32);not null;index" json:"status"`       // 处理状态
	RetryCount       int            `gorm:"not null;default:0" json:"retry_count"`               // 已重试次数
	RetryHistory     RetryHistory   `gorm:"type:json" json:"retry_history"`                      // 重试历史
	InDeadLetter     bool           `gorm:"not null;default:false;index" json:"in_dead_letter"`  // 是否进入死信
	DeadLetterReason string         `gorm:"type:varchar(500)" json:"dead_letter_reason"`         // 死信原因
	NextRetryAt      *time.Time     `gorm:"index" json:"next_retry_at,omitempty"`                // 下次重试时间
	ProcessedAt      *time.Time     `gorm:"index" json:"processed_at,omitempty"`                 // 处理完成时间
	RawPayload       string         `gorm:"type:text" json:"raw_payload,omitempty"`              // 原始载荷
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间
}

// TableName 指定表名
func (PaymentEvent) TableName() string {
	return "payment_events"
}
