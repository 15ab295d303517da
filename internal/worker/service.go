package worker

import (
	"context"
	"errors"
	"time"

	"github.com/vipo-core/internal/config"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultRetrySweepInterval = 30 * time.Second
	releaseSweepInterval      = time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	cfg      *config.Config
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		cfg:      cfg,
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.PaymentEventService != nil {
		go s.runRetrySweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.CommissionService != nil {
		go s.runReleaseSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.ReconciliationService != nil {
		go s.runReconciliationLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runRetrySweepLoop 定期扫描到期的待重试支付事件
func (s *Service) runRetrySweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.PaymentEventService == nil {
		return
	}
	interval := defaultRetrySweepInterval
	if s.cfg != nil && s.cfg.Retry.SweepIntervalSeconds > 0 {
		interval = time.Duration(s.cfg.Retry.SweepIntervalSeconds) * time.Second
	}
	runOnce := func() {
		processed, failed, err := s.consumer.PaymentEventService.RetryDue(time.Now())
		if err != nil {
			logger.Warnw("worker_retry_sweep_failed", "error", err)
			return
		}
		if processed > 0 || failed > 0 {
			logger.Infow("worker_retry_sweep_done", "processed", processed, "failed", failed)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runReleaseSweepLoop 定期解冻到期佣金
func (s *Service) runReleaseSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.CommissionService == nil {
		return
	}
	runOnce := func() {
		summary, err := s.consumer.CommissionService.ReleaseDue(time.Now())
		if err != nil {
			logger.Warnw("worker_release_sweep_failed", "error", err)
			return
		}
		if summary.Total > 0 {
			logger.Infow("worker_release_sweep_done",
				"released", summary.Released,
				"errors", summary.Errors,
				"total", summary.Total,
			)
		}
	}
	runOnce()

	ticker := time.NewTicker(releaseSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runReconciliationLoop 每日定时对账，触发时刻由 reconciliation.hour_utc 控制
func (s *Service) runReconciliationLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReconciliationService == nil {
		return
	}
	hour := 2
	if s.cfg != nil && s.cfg.Reconciliation.HourUTC >= 0 && s.cfg.Reconciliation.HourUTC < 24 {
		hour = s.cfg.Reconciliation.HourUTC
	}
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			report, err := s.consumer.ReconciliationService.RunPreviousDay(time.Now())
			if err != nil {
				logger.Warnw("worker_reconciliation_failed", "error", err)
				continue
			}
			logger.Infow("worker_reconciliation_done",
				"date", report.Date,
				"matched", report.Reconciliation.Matched,
				"mismatches", report.Reconciliation.Mismatches,
				"missing_orders", report.Reconciliation.MissingOrders,
			)
		}
	}
}
