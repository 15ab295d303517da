package repository

import (
	"errors"
	"fmt"

	"github.com/vipo-core/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 允许原子增减的代理余额字段
const (
	AgentFieldCommissionBalance = "commission_balance"
	AgentFieldCommissionOnHold  = "commission_on_hold"
	AgentFieldTotalSales        = "total_sales"
)

// AgentRepository 代理数据访问接口
// 余额写入只提供原子增减，不提供整行覆盖。
type AgentRepository interface {
	Create(agent *models.Agent) error
	GetByID(id uint) (*models.Agent, error)
	ApplyBalanceDelta(agentID uint, field string, delta decimal.Decimal) error
	CreditSettlement(agentID uint, commission, orderTotal decimal.Decimal) error
	WithTx(tx *gorm.DB) *GormAgentRepository
}

// GormAgentRepository GORM 实现
type GormAgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建代理仓库
func NewAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAgentRepository) WithTx(tx *gorm.DB) *GormAgentRepository {
	if tx == nil {
		return r
	}
	return &GormAgentRepository{db: tx}
}

// Create 创建代理
func (r *GormAgentRepository) Create(agent *models.Agent) error {
	return r.db.Create(agent).Error
}

// GetByID 根据 ID 获取代理
func (r *GormAgentRepository) GetByID(id uint) (*models.Agent, error) {
	if id == 0 {
		return nil, nil
	}
	var agent models.Agent
	if err := r.db.First(&agent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

// ApplyBalanceDelta 对单个余额字段执行原子增减
// 以单条 UPDATE field = field + delta 落库，避免并发结算下的读改写丢失。
func (r *GormAgentRepository) ApplyBalanceDelta(agentID uint, field string, delta decimal.Decimal) error {
	if agentID == 0 {
		return errors.New("agent id is required")
	}
	if !isAgentBalanceField(field) {
		return fmt.Errorf("balance delta not allowed on field: %s", field)
	}
	if delta.IsZero() {
		return nil
	}
	result := r.db.Model(&models.Agent{}).
		Where("id = ?", agentID).
		Update(field, gorm.Expr(field+" + ?", delta.Round(2)))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreditSettlement 佣金入账：余额与累计销售额在同一条 UPDATE 中原子递增
func (r *GormAgentRepository) CreditSettlement(agentID uint, commission, orderTotal decimal.Decimal) error {
	if agentID == 0 {
		return errors.New("agent id is required")
	}
	result := r.db.Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]interface{}{
			AgentFieldCommissionBalance: gorm.Expr("commission_balance + ?", commission.Round(2)),
			AgentFieldTotalSales:        gorm.Expr("total_sales + ?", orderTotal.Round(2)),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isAgentBalanceField(field string) bool {
	switch field {
	case AgentFieldCommissionBalance, AgentFieldCommissionOnHold, AgentFieldTotalSales:
		return true
	default:
		return false
	}
}
