package queue

import (
	"encoding/json"

	"github.com/vipo-core/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentEventProcess 支付事件处理任务
	TaskPaymentEventProcess = constants.TaskPaymentEventProcess
	// TaskAlertDispatch 运营告警分发任务
	TaskAlertDispatch = constants.TaskAlertDispatch
	// TaskNotificationDispatch 业务通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
)

// PaymentEventProcessPayload 支付事件处理任务载荷
type PaymentEventProcessPayload struct {
	EventID string `json:"event_id"`
}

// AlertDispatchPayload 告警任务载荷
type AlertDispatchPayload struct {
	Level   string            `json:"level"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NotificationDispatchPayload 通知任务载荷
type NotificationDispatchPayload struct {
	Event   string `json:"event"`
	OrderID uint   `json:"order_id"`
	AgentID uint   `json:"agent_id,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

// NewPaymentEventProcessTask 创建支付事件处理任务
func NewPaymentEventProcessTask(payload PaymentEventProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentEventProcess, body), nil
}

// NewAlertDispatchTask 创建告警任务
func NewAlertDispatchTask(payload AlertDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertDispatch, body), nil
}

// NewNotificationDispatchTask 创建通知任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}
