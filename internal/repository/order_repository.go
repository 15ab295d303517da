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

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByIDs(ids []uint) ([]models.Order, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListReleasable(now time.Time) ([]models.Order, error)
	SettleCommission(orderID uint, availableAt time.Time, now time.Time) (int64, error)
	UnsettleCommission(orderID uint, commissionStatus string, now time.Time) (int64, error)
	MarkCommissionAvailable(orderID uint, now time.Time) (int64, error)
	MarkCommissionSettledFix(orderID uint, now time.Time) (int64, error)
	UpdateCommissionFields(orderID uint, updates map[string]interface{}) error
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 根据 ID 加锁获取订单
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDs 批量获取订单
func (r *GormOrderRepository) GetByIDs(ids []uint) ([]models.Order, error) {
	if len(ids) == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := r.db.Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.RefAgentID != 0 {
		query = query.Where("ref_agent_id = ?", filter.RefAgentID)
	}
	if filter.CommissionStatus != "" {
		query = query.Where("commission_status = ?", filter.CommissionStatus)
	}
	if filter.SettledOnly {
		query = query.Where("commission_settled = ?", true)
	}
	if filter.ReviewFlagged {
		query = query.Where("commission_review_flag = ?", true)
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

	if err := query.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListReleasable 查询达到解冻条件的订单
func (r *GormOrderRepository) ListReleasable(now time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.
		Where("commission_status = ?", constants.CommissionStatusPending).
		Where("commission_available_at IS NOT NULL AND commission_available_at <= ?", now).
		Where("commission_settled = ?", true).
		Where("commission_amount > 0").
		Order("id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SettleCommission 佣金入账标记（带幂等守卫）
// 仅当 commission_settled = false 时生效，返回受影响行数作为幂等判定。
func (r *GormOrderRepository) SettleCommission(orderID uint, availableAt time.Time, now time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND commission_settled = ?", orderID, false).
		Updates(map[string]interface{}{
			"commission_settled":      true,
			"commission_status":       constants.CommissionStatusPending,
			"commission_available_at": availableAt,
			"updated_at":              now,
		})
	return result.RowsAffected, result.Error
}

// UnsettleCommission 佣金出账标记（带幂等守卫）
// 仅当 commission_settled = true 时生效，用于全额退款/拒付逆向。
func (r *GormOrderRepository) UnsettleCommission(orderID uint, commissionStatus string, now time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND commission_settled = ?", orderID, true).
		Updates(map[string]interface{}{
			"commission_settled": false,
			"commission_status":  commissionStatus,
			"updated_at":         now,
		})
	return result.RowsAffected, result.Error
}

// MarkCommissionAvailable 将待解冻佣金置为可提现
// 入账前置条件在 WHERE 中表达，未命中返回 0 行。
func (r *GormOrderRepository) MarkCommissionAvailable(orderID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND commission_status = ? AND commission_settled = ?",
			orderID, constants.CommissionStatusPending, true).
		Updates(map[string]interface{}{
			"commission_status": constants.CommissionStatusAvailable,
			"updated_at":        now,
		})
	return result.RowsAffected, result.Error
}

// MarkCommissionSettledFix 数据修复：为漏入账的 available 订单补记入账标记
func (r *GormOrderRepository) MarkCommissionSettledFix(orderID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND commission_status = ? AND commission_settled = ?",
			orderID, constants.CommissionStatusAvailable, false).
		Updates(map[string]interface{}{
			"commission_settled": true,
			"updated_at":         now,
		})
	return result.RowsAffected, result.Error
}

// UpdateCommissionFields 更新佣金相关字段
func (r *GormOrderRepository) UpdateCommissionFields(orderID uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}
