package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Delivery kinds. A delivery row is an outbound WhatsApp payload waiting for
// the worker to push it through the gateway.
const (
	DeliveryKindMessage = "message"
	DeliveryKindAlert   = "alert"
	DeliveryKindList    = "list"
)

// Delivery statuses.
const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSent    = "sent"
	DeliveryStatusError   = "error"
)

// ErrDeliveryNotFound is returned when a delivery id does not exist.
var ErrDeliveryNotFound = errors.New("delivery not found")

// Delivery is one queued outbound message.
type Delivery struct {
	ID        int64
	Phone     string
	Kind      string
	Body      string
	Status    string
	Attempts  int
	CreatedAt time.Time
	SentAt    *time.Time
}

const deliveryColumns = "id, phone, kind, body, status, attempts, created_at, sent_at"

// CreateDelivery enqueues an outbound message in pending state and fills in
// its assigned id.
func (r *Repository) CreateDelivery(ctx context.Context, d *Delivery) error {
	if d.Status == "" {
		d.Status = DeliveryStatusPending
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO deliveries (phone, kind, body, status, attempts, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		d.Phone, d.Kind, d.Body, d.Status, d.Attempts, d.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("delivery insert id: %w", err)
	}
	d.ID = id
	return nil
}

// DeliveryByID fetches one delivery.
func (r *Repository) DeliveryByID(ctx context.Context, id int64) (Delivery, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id = ?", id)
	return scanDelivery(row)
}

// MarkDeliverySent flips a delivery to sent and stamps the send time.
func (r *Repository) MarkDeliverySent(ctx context.Context, id int64, sentAt time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE deliveries SET status = ?, sent_at = ?, attempts = attempts + 1 WHERE id = ?",
		DeliveryStatusSent, sentAt.Unix(), id); err != nil {
		return fmt.Errorf("mark delivery sent: %w", err)
	}
	return nil
}

// MarkDeliveryError flips a delivery to error. Errored deliveries stay
// eligible for the pending sweep.
func (r *Repository) MarkDeliveryError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE deliveries SET status = ?, attempts = attempts + 1 WHERE id = ?",
		DeliveryStatusError, id); err != nil {
		return fmt.Errorf("mark delivery error: %w", err)
	}
	return nil
}

// PendingDeliveries returns unsent deliveries, oldest first, capped at limit.
// Errored rows are included so the sweep retries them.
func (r *Repository) PendingDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE status != ? ORDER BY created_at LIMIT ?",
		DeliveryStatusSent, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending deliveries: %w", err)
	}
	defer rows.Close()

	var result []Delivery
	for rows.Next() {
		var (
			d         Delivery
			createdAt int64
			sentAt    sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Phone, &d.Kind, &d.Body, &d.Status, &d.Attempts, &createdAt, &sentAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		if sentAt.Valid {
			t := time.Unix(sentAt.Int64, 0).UTC()
			d.SentAt = &t
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return result, nil
}

func scanDelivery(row *sql.Row) (Delivery, error) {
	var (
		d         Delivery
		createdAt int64
		sentAt    sql.NullInt64
	)
	err := row.Scan(&d.ID, &d.Phone, &d.Kind, &d.Body, &d.Status, &d.Attempts, &createdAt, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Delivery{}, ErrDeliveryNotFound
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0).UTC()
		d.SentAt = &t
	}
	return d, nil
}
