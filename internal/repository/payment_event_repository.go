package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentEventRepository 支付事件数据访问接口
type PaymentEventRepository interface {
	Create(event *models.PaymentEvent) error
	GetByID(id uint) (*models.PaymentEvent, error)
	GetByEventID(eventID string) (*models.PaymentEvent, error)
	GetByEventIDForUpdate(eventID string) (*models.PaymentEvent, error)
	Update(event *models.PaymentEvent) error
	UpdateFields(id uint, updates map[string]interface{}) error
	ListDue(now time.Time, limit int) ([]models.PaymentEvent, error)
	ListAdmin(filter PaymentEventListFilter) ([]models.PaymentEvent, int64, error)
	ListSuccessProcessedInWindow(from, to time.Time) ([]models.PaymentEvent, error)
	WithTx(tx *gorm.DB) *GormPaymentEventRepository
}

// GormPaymentEventRepository GORM 实现
type GormPaymentEventRepository struct {
	db *gorm.DB
}

// NewPaymentEventRepository 创建支付事件仓库
func NewPaymentEventRepository(db *gorm.DB) *GormPaymentEventRepository {
	return &GormPaymentEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentEventRepository) WithTx(tx *gorm.DB) *GormPaymentEventRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentEventRepository{db: tx}
}

// Create 创建支付事件
func (r *GormPaymentEventRepository) Create(event *models.PaymentEvent) error {
	return r.db.Create(event).Error
}

// GetByID 根据 ID 获取支付事件
func (r *GormPaymentEventRepository) GetByID(id uint) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetByEventID 根据提供方事件ID获取支付事件
func (r *GormPaymentEventRepository) GetByEventID(eventID string) (*models.PaymentEvent, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, nil
	}
	var event models.PaymentEvent
	if err := r.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetByEventIDForUpdate 根据提供方事件ID加锁获取支付事件
func (r *GormPaymentEventRepository) GetByEventIDForUpdate(eventID string) (*models.PaymentEvent, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, nil
	}
	var event models.PaymentEvent
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ?", eventID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// Update 保存支付事件
func (r *GormPaymentEventRepository) Update(event *models.PaymentEvent) error {
	return r.db.Save(event).Error
}

// UpdateFields 更新支付事件字段
func (r *GormPaymentEventRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

// ListDue 查询到达重试时间的待处理事件（限量）
func (r *GormPaymentEventRepository) ListDue(now time.Time, limit int) ([]models.PaymentEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.PaymentEvent
	if err := r.db.
		Where("status = ?", constants.PaymentEventStatusPending).
		Where("in_dead_letter = ?", false).
		Where("next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at asc").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListAdmin 管理端支付事件列表
func (r *GormPaymentEventRepository) ListAdmin(filter PaymentEventListFilter) ([]models.PaymentEvent, int64, error) {
	query := r.db.Model(&models.PaymentEvent{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DeadLetterOnly {
		query = query.Where("in_dead_letter = ?", true)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.PaymentEvent
	if err := query.Order("id desc").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListSuccessProcessedInWindow 查询窗口内已处理完成的成功事件（对账用）
func (r *GormPaymentEventRepository) ListSuccessProcessedInWindow(from, to time.Time) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.
		Where("type = ?", constants.PaymentEventTypeSuccess).
		Where("status = ?", constants.PaymentEventStatusProcessed).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
