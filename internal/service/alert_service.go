package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vipo-core/internal/config"
	"github.com/vipo-core/internal/logger"

	"gopkg.in/gomail.v2"
)

const defaultAlertTimeout = 5 * time.Second

// AlertService 运营告警服务
// 支持邮件与 Webhook 两个通道，任一通道失败只记日志，永不向调用方冒泡。
type AlertService struct {
	cfg        *config.AlertConfig
	httpClient *http.Client
}

// NewAlertService 创建告警服务
func NewAlertService(cfg *config.AlertConfig) *AlertService {
	timeout := defaultAlertTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &AlertService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AlertInput 告警内容
type AlertInput struct {
	Level   string
	Subject string
	Body    string
	Fields  map[string]string
}

// Dispatch 发送告警
// 尽力投递：所有已配置通道都尝试一遍，返回值仅用于任务层日志。
func (s *AlertService) Dispatch(input AlertInput) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = "system alert"
	}
	body := buildAlertBody(input)

	var firstErr error
	if s.cfg.Email.Enabled {
		if err := s.sendEmail(subject, body); err != nil {
			logger.Warnw("alert_email_send_failed", "subject", subject, "error", err)
			firstErr = err
		}
	}
	if strings.TrimSpace(s.cfg.WebhookURL) != "" {
		if err := s.sendWebhook(input, subject); err != nil {
			logger.Warnw("alert_webhook_send_failed", "subject", subject, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *AlertService) sendEmail(subject, body string) error {
	email := s.cfg.Email
	if strings.TrimSpace(email.Host) == "" || len(email.To) == 0 {
		return fmt.Errorf("alert email is enabled but not configured")
	}
	from := strings.TrimSpace(email.From)
	if from == "" {
		from = email.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(email.Host, email.Port, email.Username, email.Password)
	return d.DialAndSend(m)
}

func (s *AlertService) sendWebhook(input AlertInput, subject string) error {
	payload := map[string]interface{}{
		"level":   input.Level,
		"subject": subject,
		"body":    input.Body,
		"fields":  input.Fields,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Post(s.cfg.WebhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildAlertBody(input AlertInput) string {
	var builder strings.Builder
	if strings.TrimSpace(input.Body) != "" {
		builder.WriteString(strings.TrimSpace(input.Body))
		builder.WriteString("\n")
	}
	if len(input.Fields) > 0 {
		keys := make([]string, 0, len(input.Fields))
		for key := range input.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			builder.WriteString(fmt.Sprintf("%s: %s\n", key, input.Fields[key]))
		}
	}
	return builder.String()
}
