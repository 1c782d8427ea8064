package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyQuotaReached is returned when the publish budget for the current
// window is spent. Public ntfy servers cap anonymous publishers per day.
var ErrDailyQuotaReached = errors.New("daily notification quota reached")

// PublishQuota paces publishes with a token bucket and caps them per rolling
// 24-hour window. The counter lives in memory, so it only spans one process.
type PublishQuota struct {
	limiter  *rate.Limiter
	maxDaily int64
	nowFunc  func() time.Time

	mu      sync.Mutex
	sent    int64
	resetAt time.Time
}

// QuotaOption configures a PublishQuota.
type QuotaOption func(*PublishQuota)

// WithQuotaNowFunc overrides the clock for tests.
func WithQuotaNowFunc(f func() time.Time) QuotaOption {
	return func(q *PublishQuota) {
		q.nowFunc = f
	}
}

// NewPublishQuota allows perSecond publishes with the given burst and at most
// maxDaily in each window. The first window starts now.
func NewPublishQuota(perSecond float64, burst int, maxDaily int64, opts ...QuotaOption) *PublishQuota {
	q := &PublishQuota{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.resetAt = q.nowFunc().Add(24 * time.Hour)
	return q
}

// Wait reserves one publish, blocking for pacing until ctx is done.
func (q *PublishQuota) Wait(ctx context.Context) error {
	q.mu.Lock()
	if now := q.nowFunc(); now.After(q.resetAt) {
		q.sent = 0
		q.resetAt = now.Add(24 * time.Hour)
	}
	if q.sent >= q.maxDaily {
		sent := q.sent
		q.mu.Unlock()
		return fmt.Errorf("%w (%d/%d)", ErrDailyQuotaReached, sent, q.maxDaily)
	}
	q.sent++
	q.mu.Unlock()

	if err := q.limiter.Wait(ctx); err != nil {
		q.mu.Lock()
		q.sent--
		q.mu.Unlock()
		return fmt.Errorf("waiting for publish slot: %w", err)
	}
	return nil
}

// Sent returns the publishes counted in the current window.
func (q *PublishQuota) Sent() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sent
}

// Remaining returns the publishes left in the current window.
func (q *PublishQuota) Remaining() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return max(q.maxDaily-q.sent, 0)
}

// ResetAt returns when the current window ends.
func (q *PublishQuota) ResetAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resetAt
}
