package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"poupapig/internal/cache"
)

func newTestLimiter(t *testing.T, opts Options) *Limiter {
	t.Helper()
	mem := cache.NewMemory()
	t.Cleanup(mem.Stop)
	return New(mem, opts)
}

func TestCheckRejectsAboveLimit(t *testing.T) {
	l := newTestLimiter(t, Options{Window: time.Minute, MaxRequests: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "k"); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}

	err := l.Check(ctx, "k")
	var rlErr *Error
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rlErr.RetryAfter != 60 {
		t.Fatalf("expected retryAfter 60, got %d", rlErr.RetryAfter)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, Options{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	if err := l.Check(ctx, "a"); err != nil {
		t.Fatalf("first request for a: %v", err)
	}
	if err := l.Check(ctx, "a"); err == nil {
		t.Fatal("second request for a should be rejected")
	}
	if err := l.Check(ctx, "b"); err != nil {
		t.Fatalf("request for b should be unaffected: %v", err)
	}
}

func TestCounterResetsAfterWindow(t *testing.T) {
	l := newTestLimiter(t, Options{Window: 20 * time.Millisecond, MaxRequests: 1})
	ctx := context.Background()

	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := l.Check(ctx, "k"); err == nil {
		t.Fatal("second request inside window should be rejected")
	}

	time.Sleep(30 * time.Millisecond)

	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("request after window should pass: %v", err)
	}
}

func TestUncountOnFailure(t *testing.T) {
	l := newTestLimiter(t, Options{Window: time.Minute, MaxRequests: 1, UncountOnFailure: true})
	ctx := context.Background()

	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// The wrapped operation failed: the request is not charged.
	l.Uncount(ctx, "k", true)
	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("request after failure uncount should pass: %v", err)
	}

	// Success is still charged under this policy.
	l.Uncount(ctx, "k", false)
	if err := l.Check(ctx, "k"); err == nil {
		t.Fatal("request should be rejected, success is not uncounted")
	}
}

func TestUncountDisabled(t *testing.T) {
	l := newTestLimiter(t, Options{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	l.Uncount(ctx, "k", true)
	l.Uncount(ctx, "k", false)
	if err := l.Check(ctx, "k"); err == nil {
		t.Fatal("no-uncount policy must keep the counter")
	}
}

func TestWebhookPolicyShape(t *testing.T) {
	opts := WebhookOptions()
	if opts.Window != time.Minute || opts.MaxRequests != 30 {
		t.Fatalf("unexpected webhook policy: %+v", opts)
	}
	if !opts.UncountOnFailure || opts.UncountOnSuccess {
		t.Fatalf("webhook policy should uncount failures only: %+v", opts)
	}

	api := APIOptions()
	if api.Window != 15*time.Minute || api.MaxRequests != 100 {
		t.Fatalf("unexpected api policy: %+v", api)
	}
	if api.UncountOnFailure || api.UncountOnSuccess {
		t.Fatalf("api policy should never uncount: %+v", api)
	}
}
