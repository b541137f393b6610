package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"poupapig/internal/storage"
)

// ListOption is one selectable row in an interactive list notification.
type ListOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Notifier delivers outbound messages to a phone identity. Alerts travel the
// same channel as messages but are a distinct semantic: they are proactive
// pushes, not replies.
type Notifier interface {
	SendMessage(ctx context.Context, phone, text string) error
	SendAlert(ctx context.Context, phone, text string) error
	SendList(ctx context.Context, phone, title, description string, options []ListOption) error
}

// DeliveryStore persists outbound deliveries for the worker.
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, d *storage.Delivery) error
}

// DeliveryQueue signals the worker that a delivery is waiting.
type DeliveryQueue interface {
	PublishDelivery(ctx context.Context, deliveryID int64) error
}

// QueueNotifier implements Notifier write-behind: the delivery row is the
// source of truth and the queue message only carries its id. A failed publish
// is logged and left to the pending sweep, never surfaced to the pipeline.
type QueueNotifier struct {
	store DeliveryStore
	queue DeliveryQueue
}

// NewQueueNotifier builds the write-behind notifier. A nil queue is allowed;
// deliveries then rely on the sweep alone.
func NewQueueNotifier(store DeliveryStore, queue DeliveryQueue) *QueueNotifier {
	return &QueueNotifier{store: store, queue: queue}
}

func (n *QueueNotifier) SendMessage(ctx context.Context, phone, text string) error {
	return n.enqueue(ctx, phone, storage.DeliveryKindMessage, text)
}

func (n *QueueNotifier) SendAlert(ctx context.Context, phone, text string) error {
	return n.enqueue(ctx, phone, storage.DeliveryKindAlert, text)
}

// ListBody is the serialized payload of a list delivery.
type ListBody struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Options     []ListOption `json:"options"`
}

func (n *QueueNotifier) SendList(ctx context.Context, phone, title, description string, options []ListOption) error {
	body, err := json.Marshal(ListBody{Title: title, Description: description, Options: options})
	if err != nil {
		return fmt.Errorf("marshal list body: %w", err)
	}
	return n.enqueue(ctx, phone, storage.DeliveryKindList, string(body))
}

func (n *QueueNotifier) enqueue(ctx context.Context, phone, kind, body string) error {
	d := storage.Delivery{Phone: phone, Kind: kind, Body: body}
	if err := n.store.CreateDelivery(ctx, &d); err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}

	if n.queue == nil {
		return nil
	}
	if err := n.queue.PublishDelivery(ctx, d.ID); err != nil {
		slog.WarnContext(ctx, "delivery publish failed, sweep will retry",
			"delivery_id", d.ID, "kind", kind, "error", err)
	}
	return nil
}
