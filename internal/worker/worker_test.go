package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"poupapig/internal/core"
	"poupapig/internal/sheets"
	"poupapig/internal/storage"
	"poupapig/internal/whatsapp"
)

type fakeGateway struct {
	texts map[string]string
	lists int
	fail  bool
}

func (g *fakeGateway) SendText(_ context.Context, phone, text string) error {
	if g.fail {
		return errors.New("gateway down")
	}
	if g.texts == nil {
		g.texts = map[string]string{}
	}
	g.texts[phone] = text
	return nil
}

func (g *fakeGateway) SendList(_ context.Context, _, _, _ string, _ []whatsapp.Option) error {
	if g.fail {
		return errors.New("gateway down")
	}
	g.lists++
	return nil
}

type fakeLedger struct {
	rows []sheets.LedgerRow
}

func (l *fakeLedger) Append(_ context.Context, row sheets.LedgerRow) (string, error) {
	l.rows = append(l.rows, row)
	return "Ledger!A1:F1", nil
}

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "worker_test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleDelivery(t *testing.T) {
	repo := newTestRepo(t)
	gateway := &fakeGateway{}
	w := New(repo, gateway, nil, 10, time.Minute)
	ctx := context.Background()

	d := storage.Delivery{Phone: "5511999990001", Kind: storage.DeliveryKindMessage, Body: "Olá!"}
	if err := repo.CreateDelivery(ctx, &d); err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}

	if err := w.HandleDelivery(ctx, d.ID); err != nil {
		t.Fatalf("HandleDelivery() error = %v", err)
	}
	if gateway.texts["5511999990001"] != "Olá!" {
		t.Errorf("gateway got %q, want the delivery body", gateway.texts["5511999990001"])
	}

	got, err := repo.DeliveryByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("DeliveryByID() error = %v", err)
	}
	if got.Status != storage.DeliveryStatusSent {
		t.Errorf("status = %q, want sent", got.Status)
	}

	// A replayed envelope for a sent delivery is a no-op.
	gateway.texts = nil
	if err := w.HandleDelivery(ctx, d.ID); err != nil {
		t.Fatalf("HandleDelivery(replay) error = %v", err)
	}
	if len(gateway.texts) != 0 {
		t.Error("replayed envelope resent the delivery")
	}
}

func TestHandleDeliveryGatewayFailure(t *testing.T) {
	repo := newTestRepo(t)
	gateway := &fakeGateway{fail: true}
	w := New(repo, gateway, nil, 10, time.Minute)
	ctx := context.Background()

	d := storage.Delivery{Phone: "5511999990002", Kind: storage.DeliveryKindAlert, Body: "⚠️"}
	if err := repo.CreateDelivery(ctx, &d); err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}

	if err := w.HandleDelivery(ctx, d.ID); err == nil {
		t.Fatal("HandleDelivery() = nil, want error when gateway fails")
	}
	got, err := repo.DeliveryByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("DeliveryByID() error = %v", err)
	}
	if got.Status != storage.DeliveryStatusError || got.Attempts != 1 {
		t.Errorf("delivery = %+v, want status=error attempts=1", got)
	}

	// Sweep retries once the gateway recovers.
	gateway.fail = false
	w.Sweep(ctx)
	got, err = repo.DeliveryByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("DeliveryByID() error = %v", err)
	}
	if got.Status != storage.DeliveryStatusSent {
		t.Errorf("status after sweep = %q, want sent", got.Status)
	}
}

func TestHandleMirror(t *testing.T) {
	repo := newTestRepo(t)
	ledger := &fakeLedger{}
	w := New(repo, &fakeGateway{}, ledger, 10, time.Minute)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u, err := core.NewUser("5511999990003", "Maria", now)
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if err := repo.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	cats, err := repo.CategoriesByType(ctx, core.TypeExpense, u.ID)
	if err != nil {
		t.Fatalf("CategoriesByType() error = %v", err)
	}
	tx, err := core.NewTransaction(u.ID, "mercado", core.BRL(5000), core.TypeExpense, cats[0], true, now)
	if err != nil {
		t.Fatalf("NewTransaction() error = %v", err)
	}
	if err := repo.SaveTransaction(ctx, &tx); err != nil {
		t.Fatalf("SaveTransaction() error = %v", err)
	}

	if err := w.HandleMirror(ctx, tx.ID); err != nil {
		t.Fatalf("HandleMirror() error = %v", err)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(ledger.rows))
	}
	row := ledger.rows[0]
	if row.Phone != u.Phone || row.AmountCents != 5000 || row.Category != cats[0].Name {
		t.Errorf("ledger row = %+v, want transaction data", row)
	}

	pending, err := repo.PendingMirrorTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("PendingMirrorTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending mirrors = %d, want 0 after handle", len(pending))
	}
}
