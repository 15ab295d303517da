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
)

const (
	defaultReconIssueLimit      = 50
	defaultReconAmountTolerance = 0.01
)

// ReconciliationService 对账服务
// 按自然日汇总成功支付事件与订单金额，产出差异报告并登记同步状态。
type ReconciliationService struct {
	eventRepo       repository.PaymentEventRepository
	orderRepo       repository.OrderRepository
	syncRepo        repository.SyncRecordRepository
	queueClient     *queue.Client
	amountTolerance decimal.Decimal
	issueLimit      int
}

// NewReconciliationService 创建对账服务
func NewReconciliationService(
	eventRepo repository.PaymentEventRepository,
	orderRepo repository.OrderRepository,
	syncRepo repository.SyncRecordRepository,
	queueClient *queue.Client,
	amountTolerance float64,
	issueLimit int,
) *ReconciliationService {
	if amountTolerance <= 0 {
		amountTolerance = defaultReconAmountTolerance
	}
	if issueLimit <= 0 {
		issueLimit = defaultReconIssueLimit
	}
	return &ReconciliationService{
		eventRepo:       eventRepo,
		orderRepo:       orderRepo,
		syncRepo:        syncRepo,
		queueClient:     queueClient,
		amountTolerance: decimal.NewFromFloat(amountTolerance),
		issueLimit:      issueLimit,
	}
}

// ReconciliationTotals 数量与金额汇总
type ReconciliationTotals struct {
	Total       int             `json:"total"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ReconciliationCounts 对账结果计数
type ReconciliationCounts struct {
	Matched       int             `json:"matched"`
	Mismatches    int             `json:"mismatches"`
	MissingOrders int             `json:"missing_orders"`
	Difference    decimal.Decimal `json:"difference"`
}

// ReconciliationIssue 单条差异明细
type ReconciliationIssue struct {
	Type        string          `json:"type"`
	EventID     string          `json:"event_id"`
	OrderID     uint            `json:"order_id"`
	EventAmount decimal.Decimal `json:"event_amount"`
	OrderAmount decimal.Decimal `json:"order_amount,omitempty"`
	Difference  decimal.Decimal `json:"difference,omitempty"`
}

// ReconciliationReport 对账报告
type ReconciliationReport struct {
	Date           string                `json:"date"`
	Payments       ReconciliationTotals  `json:"payments"`
	Orders         ReconciliationTotals  `json:"orders"`
	Reconciliation ReconciliationCounts  `json:"reconciliation"`
	Sync           map[string]int64      `json:"sync"`
	Issues         []ReconciliationIssue `json:"issues"`
}

// Run 对指定自然日（UTC）执行对账
// 幂等操作，重复执行只会刷新同步记录与报告。
func (s *ReconciliationService) Run(day time.Time) (*ReconciliationReport, error) {
	if s.eventRepo == nil || s.orderRepo == nil {
		return nil, ErrReportDateInvalid
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	events, err := s.eventRepo.ListSuccessProcessedInWindow(from, to)
	if err != nil {
		return nil, err
	}

	orderIDs := make([]uint, 0, len(events))
	seen := make(map[uint]struct{}, len(events))
	for _, event := range events {
		if event.OrderID == 0 {
			continue
		}
		if _, ok := seen[event.OrderID]; ok {
			continue
		}
		seen[event.OrderID] = struct{}{}
		orderIDs = append(orderIDs, event.OrderID)
	}
	orders, err := s.orderRepo.GetByIDs(orderIDs)
	if err != nil {
		return nil, err
	}
	orderMap := make(map[uint]models.Order, len(orders))
	ordersAmount := decimal.Zero
	for _, order := range orders {
		orderMap[order.ID] = order
		ordersAmount = ordersAmount.Add(order.TotalAmount.Decimal.Round(2))
	}

	report := &ReconciliationReport{
		Date:   from.Format("2006-01-02"),
		Sync:   make(map[string]int64),
		Issues: []ReconciliationIssue{},
	}
	paymentsAmount := decimal.Zero
	now := time.Now()

	for i := range events {
		event := events[i]
		eventAmount := event.Amount.Decimal.Round(2)
		paymentsAmount = paymentsAmount.Add(eventAmount)

		order, found := orderMap[event.OrderID]
		if !found {
			report.Reconciliation.MissingOrders++
			s.appendIssue(report, ReconciliationIssue{
				Type:        constants.ReconIssueMissingOrder,
				EventID:     event.EventID,
				OrderID:     event.OrderID,
				EventAmount: eventAmount,
			})
			s.upsertSyncRecord(event.OrderID, constants.SyncStatusMissing, false, now)
			continue
		}

		orderAmount := order.TotalAmount.Decimal.Round(2)
		diff := eventAmount.Sub(orderAmount).Abs()
		if diff.GreaterThan(s.amountTolerance) {
			report.Reconciliation.Mismatches++
			s.appendIssue(report, ReconciliationIssue{
				Type:        constants.ReconIssueAmountMismatch,
				EventID:     event.EventID,
				OrderID:     event.OrderID,
				EventAmount: eventAmount,
				OrderAmount: orderAmount,
				Difference:  diff,
			})
			s.upsertSyncRecord(event.OrderID, constants.SyncStatusMismatch, true, now)
			continue
		}
		report.Reconciliation.Matched++
		s.upsertSyncRecord(event.OrderID, constants.SyncStatusSynced, false, now)
	}

	report.Payments = ReconciliationTotals{Total: len(events), TotalAmount: paymentsAmount.Round(2)}
	report.Orders = ReconciliationTotals{Total: len(orders), TotalAmount: ordersAmount.Round(2)}
	report.Reconciliation.Difference = paymentsAmount.Sub(ordersAmount).Round(2)
	if s.syncRepo != nil && len(orderIDs) > 0 {
		counts, err := s.syncRepo.CountByOverallStatus(orderIDs)
		if err != nil {
			logger.Warnw("reconciliation_sync_counts_failed", "error", err)
		} else {
			report.Sync = counts
		}
	}

	issueCount := report.Reconciliation.Mismatches + report.Reconciliation.MissingOrders
	logger.Infow("reconciliation_finished",
		"date", report.Date,
		"payments", report.Payments.Total,
		"orders", report.Orders.Total,
		"matched", report.Reconciliation.Matched,
		"mismatches", report.Reconciliation.Mismatches,
		"missing_orders", report.Reconciliation.MissingOrders,
		"difference", report.Reconciliation.Difference.String(),
	)
	if issueCount > 0 {
		s.dispatchIssueAlert(report, issueCount)
	}
	return report, nil
}

// RunPreviousDay 对昨日（UTC）执行对账，供定时任务调用
func (s *ReconciliationService) RunPreviousDay(now time.Time) (*ReconciliationReport, error) {
	return s.Run(now.UTC().Add(-24 * time.Hour))
}

func (s *ReconciliationService) appendIssue(report *ReconciliationReport, issue ReconciliationIssue) {
	if len(report.Issues) >= s.issueLimit {
		return
	}
	report.Issues = append(report.Issues, issue)
}

// upsertSyncRecord 登记订单的对账同步状态，失败只记日志不影响报告
func (s *ReconciliationService) upsertSyncRecord(orderID uint, status string, amountMismatch bool, now time.Time) {
	if s.syncRepo == nil || orderID == 0 {
		return
	}
	record := &models.SyncRecord{
		OrderID:           orderID,
		PaymentSyncStatus: status,
		ERPSyncStatus:     constants.SyncStatusPending,
		OverallStatus:     status,
		AmountMismatch:    amountMismatch,
		LastCheckedAt:     &now,
	}
	if err := s.syncRepo.Upsert(record); err != nil {
		logger.Warnw("reconciliation_sync_upsert_failed", "order_id", orderID, "error", err)
	}
}

// dispatchIssueAlert 差异告警，发送失败只记日志
func (s *ReconciliationService) dispatchIssueAlert(report *ReconciliationReport, issueCount int) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueAlertDispatch(queue.AlertDispatchPayload{
		Level:   constants.AlertLevelWarning,
		Subject: fmt.Sprintf("reconciliation found %d issues on %s", issueCount, report.Date),
		Fields: map[string]string{
			"date":           report.Date,
			"mismatches":     fmt.Sprintf("%d", report.Reconciliation.Mismatches),
			"missing_orders": fmt.Sprintf("%d", report.Reconciliation.MissingOrders),
			"difference":     report.Reconciliation.Difference.String(),
		},
	}); err != nil {
		logger.Warnw("reconciliation_alert_enqueue_failed", "date", report.Date, "error", err)
	}
}
