package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vipo-core/internal/config"
	"github.com/vipo-core/internal/logger"
)

const defaultNotificationTimeout = 5 * time.Second

// NotificationService 业务通知分发服务
// 佣金入账/解冻/取消等事件推送到外部通知网关，投递失败只记日志。
type NotificationService struct {
	cfg        *config.NotificationConfig
	httpClient *http.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg *config.NotificationConfig) *NotificationService {
	timeout := defaultNotificationTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &NotificationService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NotificationInput 通知事件内容
type NotificationInput struct {
	Event   string
	OrderID uint
	AgentID uint
	Amount  string
}

// Dispatch 投递通知事件
func (s *NotificationService) Dispatch(input NotificationInput) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	url := strings.TrimSpace(s.cfg.WebhookURL)
	if url == "" {
		logger.Debugw("notification_webhook_not_configured", "event", input.Event)
		return nil
	}

	payload := map[string]interface{}{
		"event":    input.Event,
		"order_id": input.OrderID,
		"agent_id": input.AgentID,
		"amount":   input.Amount,
		"sent_at":  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	logger.Infow("notification_dispatched",
		"event", input.Event,
		"order_id", input.OrderID,
		"agent_id", input.AgentID,
	)
	return nil
}
