// Package ratelimit bounds request volume per key over a fixed window, with
// the counters kept in the shared cache so every process sees the same state.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"poupapig/internal/cache"
)

// Error reports a rejected request. RetryAfter is the window length in
// seconds, the soonest the counter can have reset.
type Error struct {
	Limit      int
	Window     time.Duration
	RetryAfter int
}

func (e *Error) Error() string {
	return fmt.Sprintf("too many requests: limit is %d per %d seconds", e.Limit, int(e.Window.Seconds()))
}

// Options configures one limiter policy.
type Options struct {
	Window      time.Duration
	MaxRequests int

	// UncountOnSuccess / UncountOnFailure decrement the counter after the
	// wrapped operation finishes, conditioned on its outcome. The webhook
	// policy uncounts failures so a user is not charged for messages the
	// pipeline could not process.
	UncountOnSuccess bool
	UncountOnFailure bool
}

// WebhookOptions is the policy for inbound chat messages: keyed by sender
// phone, short window, high allowance, failures uncounted.
func WebhookOptions() Options {
	return Options{
		Window:           time.Minute,
		MaxRequests:      30,
		UncountOnFailure: true,
	}
}

// APIOptions is the policy for authenticated API calls: keyed by caller
// address and route, long window, low allowance, no uncounting.
func APIOptions() Options {
	return Options{
		Window:      15 * time.Minute,
		MaxRequests: 100,
	}
}

// Limiter counts requests per key in the cache.
//
// The counter update is read-then-set over the cache contract and therefore
// not atomic across concurrent requests sharing a key: two racing requests can
// both read N and both store N+1. This is a soft limit, accepted rather than
// papered over with in-process locking that would not help a shared backend.
type Limiter struct {
	cache cache.Cache
	opts  Options
}

// New builds a limiter over the given cache with the given policy.
func New(c cache.Cache, opts Options) *Limiter {
	return &Limiter{cache: c, opts: opts}
}

// Check admits or rejects one request for key. On admission the counter is
// incremented with TTL equal to the window; on rejection an *Error carrying
// the retry-after hint is returned and nothing is written.
func (l *Limiter) Check(ctx context.Context, key string) error {
	count, err := l.currentCount(ctx, key)
	if err != nil {
		return fmt.Errorf("read rate limit counter: %w", err)
	}

	if count >= l.opts.MaxRequests {
		return &Error{
			Limit:      l.opts.MaxRequests,
			Window:     l.opts.Window,
			RetryAfter: int(l.opts.Window.Seconds()),
		}
	}

	if err := l.cache.SetTTL(ctx, key, strconv.Itoa(count+1), l.opts.Window); err != nil {
		return fmt.Errorf("increment rate limit counter: %w", err)
	}
	return nil
}

// Uncount decrements the counter for key after the wrapped operation finished,
// if the policy says this outcome class should not be charged. Cache errors
// are logged, not returned; the operation itself already completed.
func (l *Limiter) Uncount(ctx context.Context, key string, failed bool) {
	if failed && !l.opts.UncountOnFailure {
		return
	}
	if !failed && !l.opts.UncountOnSuccess {
		return
	}

	count, err := l.currentCount(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read rate limit counter for uncount", "key", key, "error", err)
		return
	}
	if count <= 0 {
		return
	}
	if err := l.cache.SetTTL(ctx, key, strconv.Itoa(count-1), l.opts.Window); err != nil {
		slog.WarnContext(ctx, "Failed to decrement rate limit counter", "key", key, "error", err)
	}
}

func (l *Limiter) currentCount(ctx context.Context, key string) (int, error) {
	value, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		// A corrupt counter resets the window rather than locking the key out.
		return 0, nil
	}
	return count, nil
}

// WebhookKey derives the counter key for an inbound chat message.
func WebhookKey(phone string) string {
	return "rate_limit:webhook:" + phone
}

// APIKey derives the counter key for an authenticated API call.
func APIKey(addr, route string) string {
	return "rate_limit:api:" + addr + ":" + route
}
