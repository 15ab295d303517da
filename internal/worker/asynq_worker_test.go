package worker

import (
	"context"
	"testing"

	"github.com/vipo-core/internal/provider"
	"github.com/vipo-core/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandlePaymentEventProcessBadPayload(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskPaymentEventProcess, []byte("{not json"))
	if err := c.handlePaymentEventProcess(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error for malformed payload")
	}
}

func TestHandlePaymentEventProcessEmptyEventID(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task, err := queue.NewPaymentEventProcessTask(queue.PaymentEventProcessPayload{EventID: "  "})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := c.handlePaymentEventProcess(context.Background(), task); err != nil {
		t.Fatalf("empty event id should be skipped, got %v", err)
	}
}

func TestHandlePaymentEventProcessServiceMissing(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task, err := queue.NewPaymentEventProcessTask(queue.PaymentEventProcessPayload{EventID: "evt-1"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := c.handlePaymentEventProcess(context.Background(), task); err != nil {
		t.Fatalf("missing service should not error, got %v", err)
	}
}

func TestHandleNotificationDispatchEmptyEvent(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task, err := queue.NewNotificationDispatchTask(queue.NotificationDispatchPayload{})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := c.handleNotificationDispatch(context.Background(), task); err != nil {
		t.Fatalf("empty event should be skipped, got %v", err)
	}
}
