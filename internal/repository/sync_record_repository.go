package repository

import (
	"errors"

	"github.com/vipo-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncRecordRepository 对账同步数据访问接口
type SyncRecordRepository interface {
	GetByOrderID(orderID uint) (*models.SyncRecord, error)
	Upsert(record *models.SyncRecord) error
	ListByOrderIDs(orderIDs []uint) ([]models.SyncRecord, error)
	CountByOverallStatus(orderIDs []uint) (map[string]int64, error)
	WithTx(tx *gorm.DB) *GormSyncRecordRepository
}

// GormSyncRecordRepository GORM 实现
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewSyncRecordRepository 创建对账同步仓库
func NewSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSyncRecordRepository) WithTx(tx *gorm.DB) *GormSyncRecordRepository {
	if tx == nil {
		return r
	}
	return &GormSyncRecordRepository{db: tx}
}

// GetByOrderID 根据订单ID获取同步记录
func (r *GormSyncRecordRepository) GetByOrderID(orderID uint) (*models.SyncRecord, error) {
	if orderID == 0 {
		return nil, nil
	}
	var record models.SyncRecord
	if err := r.db.Where("order_id = ?", orderID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Upsert 按订单ID写入或更新同步记录
func (r *GormSyncRecordRepository) Upsert(record *models.SyncRecord) error {
	if record == nil || record.OrderID == 0 {
		return errors.New("sync record order id is required")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payment_sync_status",
			"erp_sync_status",
			"overall_status",
			"amount_mismatch",
			"last_checked_at",
			"updated_at",
		}),
	}).Create(record).Error
}

// ListByOrderIDs 批量获取同步记录
func (r *GormSyncRecordRepository) ListByOrderIDs(orderIDs []uint) ([]models.SyncRecord, error) {
	if len(orderIDs) == 0 {
		return []models.SyncRecord{}, nil
	}
	var records []models.SyncRecord
	if err := r.db.Where("order_id IN ?", orderIDs).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByOverallStatus 按汇总状态统计同步记录
func (r *GormSyncRecordRepository) CountByOverallStatus(orderIDs []uint) (map[string]int64, error) {
	counts := make(map[string]int64)
	if len(orderIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		OverallStatus string
		Count         int64
	}
	if err := r.db.Model(&models.SyncRecord{}).
		Select("overall_status, count(*) as count").
		Where("order_id IN ?", orderIDs).
		Group("overall_status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.OverallStatus] = row.Count
	}
	return counts, nil
}
