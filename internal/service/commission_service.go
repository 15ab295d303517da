package service

import (
	"fmt"
	"time"

	"github.com/vipo-core/internal/constants"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/models"
	"github.com/vipo-core/internal/queue"
	"github.com/vipo-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultCommissionHoldDays = 14

// CommissionService 佣金生命周期服务
// 负责入账、解冻、退款逆向与数据修复，余额变更全部走原子增减。
type CommissionService struct {
	orderRepo   repository.OrderRepository
	agentRepo   repository.AgentRepository
	queueClient *queue.Client
	holdDays    int
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	orderRepo repository.OrderRepository,
	agentRepo repository.AgentRepository,
	queueClient *queue.Client,
	holdDays int,
) *CommissionService {
	if holdDays <= 0 {
		holdDays = defaultCommissionHoldDays
	}
	return &CommissionService{
		orderRepo:   orderRepo,
		agentRepo:   agentRepo,
		queueClient: queueClient,
		holdDays:    holdDays,
	}
}

// ReleaseSummary 解冻批处理结果
type ReleaseSummary struct {
	Released int `json:"released"`
	Errors   int `json:"errors"`
	Total    int `json:"total"`
}

// AdminActionResult 管理端佣金操作结果
type AdminActionResult struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message"`
	OrderID uint          `json:"order_id,omitempty"`
	Amount  *models.Money `json:"amount,omitempty"`
	AgentID uint          `json:"agent_id,omitempty"`
}

// SettleOrderPaid 支付成功后的佣金入账
// commission_settled 守卫保证同一订单至多入账一次，重复回调为无操作。
func (s *CommissionService) SettleOrderPaid(orderID uint) error {
	if orderID == 0 || s.orderRepo == nil || s.agentRepo == nil {
		return nil
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.RefAgentID == nil || *order.RefAgentID == 0 {
		return nil
	}
	commission := order.CommissionAmount.Decimal.Round(2)
	if commission.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	now := time.Now()
	availableAt := now.Add(time.Duration(s.holdDays) * 24 * time.Hour)
	agentID := *order.RefAgentID

	settled := false
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderTx := s.orderRepo.WithTx(tx)
		rows, err := orderTx.SettleCommission(order.ID, availableAt, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// 已入账过，幂等返回
			return nil
		}
		agentTx := s.agentRepo.WithTx(tx)
		if err := agentTx.CreditSettlement(agentID, commission, order.TotalAmount.Decimal.Round(2)); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return err
	}
	if !settled {
		logger.Debugw("commission_settle_skipped_already_settled", "order_id", order.ID)
		return nil
	}

	logger.Infow("commission_settled",
		"order_id", order.ID,
		"agent_id", agentID,
		"amount", commission.String(),
		"available_at", availableAt,
	)
	s.enqueueNotification(constants.NotificationEventCommissionAwarded, order.ID, agentID, commission)
	return nil
}

// ReverseSettlement 全额退款/拒付的佣金逆向
// 扣回全部已入账佣金并将佣金状态置为 cancelled，未入账订单为无操作。
func (s *CommissionService) ReverseSettlement(orderID uint, reason string) error {
	if orderID == 0 || s.orderRepo == nil || s.agentRepo == nil {
		return nil
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.RefAgentID == nil || *order.RefAgentID == 0 {
		return nil
	}
	agentID := *order.RefAgentID

	now := time.Now()
	reversed := false
	var reversedAmount decimal.Decimal
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderTx := s.orderRepo.WithTx(tx)
		locked, err := orderTx.GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		commission := locked.CommissionAmount.Decimal.Round(2)

		rows, err := orderTx.UnsettleCommission(locked.ID, constants.CommissionStatusCancelled, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// 未入账或已逆向过
			return nil
		}
		if commission.GreaterThan(decimal.Zero) {
			agentTx := s.agentRepo.WithTx(tx)
			if err := agentTx.ApplyBalanceDelta(agentID, repository.AgentFieldCommissionBalance, commission.Neg()); err != nil {
				return err
			}
		}
		reversed = true
		reversedAmount = commission
		return nil
	})
	if err != nil {
		return err
	}
	if !reversed {
		return nil
	}

	logger.Infow("commission_reversed",
		"order_id", order.ID,
		"agent_id", agentID,
		"amount", reversedAmount.String(),
		"reason", reason,
	)
	s.enqueueNotification(constants.NotificationEventCommissionCancelled, order.ID, agentID, reversedAmount)
	return nil
}

// ApplyPartialRefund 部分退款的佣金按比例扣减
// 扣减额 = 当前佣金对应的 commissionAmount × (refundTotal / orderTotal)；
// 超出当前佣金时扣到零并打上人工复核标记。
func (s *CommissionService) ApplyPartialRefund(orderID uint, refundTotal decimal.Decimal) error {
	if orderID == 0 || s.orderRepo == nil || s.agentRepo == nil {
		return nil
	}
	refund := refundTotal.Round(2)
	if refund.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	now := time.Now()
	var agentID uint
	var deducted decimal.Decimal
	flagged := false
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderTx := s.orderRepo.WithTx(tx)
		locked, err := orderTx.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if !locked.CommissionSettled || locked.RefAgentID == nil || *locked.RefAgentID == 0 {
			return nil
		}
		orderTotal := locked.TotalAmount.Decimal.Round(2)
		if orderTotal.LessThanOrEqual(decimal.Zero) {
			return nil
		}
		currentCommission := locked.CommissionAmount.Decimal.Round(2)
		if currentCommission.LessThanOrEqual(decimal.Zero) {
			return nil
		}
		agentID = *locked.RefAgentID

		deduct := currentCommission.Mul(refund).Div(orderTotal).Round(2)
		if deduct.LessThanOrEqual(decimal.Zero) {
			return nil
		}
		if deduct.GreaterThan(currentCommission) {
			// 比例计算超出剩余佣金，扣到零并交人工复核
			deduct = currentCommission
			flagged = true
		}
		nextCommission := currentCommission.Sub(deduct).Round(2)

		updates := map[string]interface{}{
			"commission_amount": nextCommission,
			"refunded_amount":   locked.RefundedAmount.Decimal.Add(refund).Round(2),
			"updated_at":        now,
		}
		if flagged {
			updates["commission_review_flag"] = true
		}
		if err := orderTx.UpdateCommissionFields(locked.ID, updates); err != nil {
			return err
		}
		agentTx := s.agentRepo.WithTx(tx)
		if err := agentTx.ApplyBalanceDelta(agentID, repository.AgentFieldCommissionBalance, deduct.Neg()); err != nil {
			return err
		}
		deducted = deduct
		return nil
	})
	if err != nil {
		return err
	}
	if deducted.IsZero() {
		return nil
	}

	logger.Infow("commission_partial_refund_applied",
		"order_id", orderID,
		"agent_id", agentID,
		"refund_total", refund.String(),
		"deducted", deducted.String(),
		"review_flagged", flagged,
	)
	if flagged {
		s.enqueueAlert(constants.AlertLevelWarning, "commission deducted to zero on partial refund", map[string]string{
			"order_id":     fmt.Sprintf("%d", orderID),
			"refund_total": refund.String(),
		})
	}
	return nil
}

// Cancel 取消订单佣金
// claimed/cancelled 状态拒绝操作；已入账的先逆向再取消。
func (s *CommissionService) Cancel(orderID uint, reason string) error {
	if orderID == 0 || s.orderRepo == nil {
		return ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	switch order.CommissionStatus {
	case constants.CommissionStatusCancelled:
		return nil
	case constants.CommissionStatusClaimed:
		return fmt.Errorf("%w: commission already claimed", ErrCommissionNotEligible)
	}

	if order.CommissionSettled {
		return s.ReverseSettlement(orderID, reason)
	}
	return s.orderRepo.UpdateCommissionFields(orderID, map[string]interface{}{
		"commission_status": constants.CommissionStatusCancelled,
		"updated_at":        time.Now(),
	})
}

// ReleaseSingle 手动解冻单笔佣金
// 仅 pending 且已入账的佣金可解冻，否则返回带当前状态的错误。
func (s *CommissionService) ReleaseSingle(orderID uint) (*AdminActionResult, error) {
	if orderID == 0 || s.orderRepo == nil {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.CommissionStatus != constants.CommissionStatusPending {
		return nil, fmt.Errorf("%w: current commission status is %q",
			ErrCommissionNotEligible, order.CommissionStatus)
	}

	now := time.Now()
	rows, err := s.orderRepo.MarkCommissionAvailable(order.ID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: commission is not settled", ErrCommissionNotEligible)
	}

	var agentID uint
	if order.RefAgentID != nil {
		agentID = *order.RefAgentID
	}
	amount := models.NewMoneyFromDecimal(order.CommissionAmount.Decimal.Round(2))
	logger.Infow("commission_released",
		"order_id", order.ID,
		"agent_id", agentID,
		"amount", amount.Decimal.String(),
	)
	s.enqueueNotification(constants.NotificationEventCommissionReleased, order.ID, agentID, amount.Decimal)
	return &AdminActionResult{
		OK:      true,
		Message: "commission released",
		OrderID: order.ID,
		Amount:  &amount,
		AgentID: agentID,
	}, nil
}

// ReleaseDue 解冻全部到期佣金
// 单笔失败只计数不中断，返回 {released, errors, total}。
func (s *CommissionService) ReleaseDue(now time.Time) (ReleaseSummary, error) {
	summary := ReleaseSummary{}
	if s.orderRepo == nil {
		return summary, nil
	}
	orders, err := s.orderRepo.ListReleasable(now)
	if err != nil {
		return summary, err
	}
	summary.Total = len(orders)
	for i := range orders {
		order := orders[i]
		rows, err := s.orderRepo.MarkCommissionAvailable(order.ID, now)
		if err != nil {
			summary.Errors++
			logger.Errorw("commission_release_failed", "order_id", order.ID, "error", err)
			continue
		}
		if rows == 0 {
			// 扫描与更新之间被其它路径处理掉
			continue
		}
		summary.Released++
		var agentID uint
		if order.RefAgentID != nil {
			agentID = *order.RefAgentID
		}
		s.enqueueNotification(constants.NotificationEventCommissionReleased, order.ID, agentID, order.CommissionAmount.Decimal.Round(2))
	}
	logger.Infow("commission_release_sweep_finished",
		"total", summary.Total,
		"released", summary.Released,
		"errors", summary.Errors,
	)
	return summary, nil
}

// FixBalance 数据修复：为状态已是 available 但漏记入账的订单补记余额
func (s *CommissionService) FixBalance(orderID uint) (*AdminActionResult, error) {
	if orderID == 0 || s.orderRepo == nil || s.agentRepo == nil {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.RefAgentID == nil || *order.RefAgentID == 0 {
		return nil, fmt.Errorf("%w: order has no referring agent", ErrCommissionNotEligible)
	}
	commission := order.CommissionAmount.Decimal.Round(2)
	if commission.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: commission amount is zero", ErrCommissionNotEligible)
	}
	agentID := *order.RefAgentID

	now := time.Now()
	fixed := false
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderTx := s.orderRepo.WithTx(tx)
		rows, err := orderTx.MarkCommissionSettledFix(order.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		agentTx := s.agentRepo.WithTx(tx)
		if err := agentTx.ApplyBalanceDelta(agentID, repository.AgentFieldCommissionBalance, commission); err != nil {
			return err
		}
		fixed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !fixed {
		return nil, fmt.Errorf("%w: order is not an unsettled available commission",
			ErrCommissionNotEligible)
	}

	amount := models.NewMoneyFromDecimal(commission)
	logger.Infow("commission_balance_fixed",
		"order_id", order.ID,
		"agent_id", agentID,
		"amount", commission.String(),
	)
	return &AdminActionResult{
		OK:      true,
		Message: "commission balance fixed",
		OrderID: order.ID,
		Amount:  &amount,
		AgentID: agentID,
	}, nil
}

func (s *CommissionService) enqueueNotification(event string, orderID, agentID uint, amount decimal.Decimal) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{
		Event:   event,
		OrderID: orderID,
		AgentID: agentID,
		Amount:  amount.String(),
	}); err != nil {
		logger.Warnw("commission_enqueue_notification_failed",
			"event", event,
			"order_id", orderID,
			"error", err,
		)
	}
}

func (s *CommissionService) enqueueAlert(level, subject string, fields map[string]string) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueAlertDispatch(queue.AlertDispatchPayload{
		Level:   level,
		Subject: subject,
		Fields:  fields,
	}); err != nil {
		logger.Warnw("commission_enqueue_alert_failed", "subject", subject, "error", err)
	}
}
