// Package worker drains the write-behind queue: outbound WhatsApp
// deliveries and ledger mirror appends. The database rows are authoritative;
// queue envelopes only point at them, and a periodic sweep recovers anything
// a lost envelope left behind.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"poupapig/internal/bot"
	"poupapig/internal/sheets"
	"poupapig/internal/storage"
	"poupapig/internal/whatsapp"
)

// Gateway is the outbound WhatsApp surface the worker needs.
type Gateway interface {
	SendText(ctx context.Context, phone, text string) error
	SendList(ctx context.Context, phone, title, description string, options []whatsapp.Option) error
}

// Consumer runs the queue consume loop.
type Consumer interface {
	Consume(ctx context.Context, onDelivery, onMirror func(id int64) error) error
}

// Worker processes delivery and mirror envelopes.
type Worker struct {
	repo          *storage.Repository
	gateway       Gateway
	ledger        sheets.LedgerWriter
	batchSize     int
	sweepInterval time.Duration
}

// New builds a worker. Ledger may be nil when no mirror is configured;
// mirror envelopes are then acknowledged without effect.
func New(repo *storage.Repository, gateway Gateway, ledger sheets.LedgerWriter, batchSize int, sweepInterval time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = 20
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Worker{
		repo:          repo,
		gateway:       gateway,
		ledger:        ledger,
		batchSize:     batchSize,
		sweepInterval: sweepInterval,
	}
}

// HandleDelivery loads one delivery row, pushes it through the gateway and
// records the outcome. Already-sent rows are acknowledged silently so
// replayed envelopes stay harmless.
func (w *Worker) HandleDelivery(ctx context.Context, id int64) error {
	d, err := w.repo.DeliveryByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load delivery: %w", err)
	}
	if d.Status == storage.DeliveryStatusSent {
		return nil
	}

	if err := w.send(ctx, d); err != nil {
		if markErr := w.repo.MarkDeliveryError(ctx, d.ID); markErr != nil {
			slog.ErrorContext(ctx, "failed to mark delivery error", "delivery_id", d.ID, "error", markErr)
		}
		return fmt.Errorf("send delivery %d: %w", d.ID, err)
	}

	if err := w.repo.MarkDeliverySent(ctx, d.ID, time.Now().UTC()); err != nil {
		// The message went out; do not fail the envelope or it would resend.
		slog.ErrorContext(ctx, "failed to mark delivery sent", "delivery_id", d.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "delivery sent", "delivery_id", d.ID, "kind", d.Kind, "phone", d.Phone)
	return nil
}

func (w *Worker) send(ctx context.Context, d storage.Delivery) error {
	switch d.Kind {
	case storage.DeliveryKindMessage, storage.DeliveryKindAlert:
		return w.gateway.SendText(ctx, d.Phone, d.Body)
	case storage.DeliveryKindList:
		var body bot.ListBody
		if err := json.Unmarshal([]byte(d.Body), &body); err != nil {
			return fmt.Errorf("decode list body: %w", err)
		}
		options := make([]whatsapp.Option, 0, len(body.Options))
		for _, opt := range body.Options {
			options = append(options, whatsapp.Option{ID: opt.ID, Title: opt.Title})
		}
		return w.gateway.SendList(ctx, d.Phone, body.Title, body.Description, options)
	default:
		return fmt.Errorf("unknown delivery kind %q", d.Kind)
	}
}

// HandleMirror appends one transaction to the external ledger and marks it
// mirrored.
func (w *Worker) HandleMirror(ctx context.Context, transactionID int64) error {
	if w.ledger == nil {
		slog.WarnContext(ctx, "no ledger writer configured, skipping mirror", "transaction_id", transactionID)
		return nil
	}

	tx, err := w.repo.TransactionByID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	user, err := w.repo.UserByID(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	ref, err := w.ledger.Append(ctx, sheets.LedgerRow{
		Date:        tx.Date,
		Phone:       user.Phone,
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Category:    tx.Category.Name,
	})
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.repo.MarkTransactionMirrored(ctx, tx.ID); err != nil {
		slog.ErrorContext(ctx, "failed to mark transaction mirrored", "transaction_id", tx.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "transaction mirrored", "transaction_id", tx.ID, "ledger_ref", ref)
	return nil
}

// Sweep retries pending work that never got an envelope or whose envelope
// was lost: unsent deliveries and unmirrored transactions.
func (w *Worker) Sweep(ctx context.Context) {
	deliveries, err := w.repo.PendingDeliveries(ctx, w.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "pending deliveries sweep failed", "error", err)
	} else {
		for _, d := range deliveries {
			if err := w.HandleDelivery(ctx, d.ID); err != nil {
				slog.WarnContext(ctx, "sweep delivery failed", "delivery_id", d.ID, "error", err)
			}
		}
	}

	if w.ledger == nil {
		return
	}
	transactions, err := w.repo.PendingMirrorTransactions(ctx, w.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "pending mirrors sweep failed", "error", err)
		return
	}
	for _, tx := range transactions {
		if err := w.HandleMirror(ctx, tx.ID); err != nil {
			slog.WarnContext(ctx, "sweep mirror failed", "transaction_id", tx.ID, "error", err)
		}
	}
}

// Run consumes the queue and sweeps on an interval until ctx is cancelled.
// Consumer may be nil; the worker then runs on the sweep alone.
func (w *Worker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(ctx,
				func(id int64) error { return w.HandleDelivery(ctx, id) },
				func(id int64) error { return w.HandleMirror(ctx, id) })
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		w.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.Sweep(ctx)
			}
		}
	})

	return g.Wait()
}
