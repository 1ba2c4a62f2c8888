package broker

import (
	"context"
	"sync"
	"time"

	"intraday-trader/internal/models"
)

// RateLimiter implements a token bucket. The broker API budget is 3
// requests per second; callers block in Wait until a token is available.
type RateLimiter struct {
	rate       float64 // tokens per second
	burst      int     // max tokens
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a token bucket that refills at rate tokens per
// second up to burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rate
	if r.tokens > float64(r.burst) {
		r.tokens = float64(r.burst)
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 10):
		}
	}
}

// Throttled wraps a MarketData implementation with a shared token bucket
// so every upstream call respects the broker's request budget.
type Throttled struct {
	inner   MarketData
	limiter *RateLimiter
}

// NewThrottled wraps md with a requestsPerSecond budget.
func NewThrottled(md MarketData, requestsPerSecond float64) *Throttled {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		inner:   md,
		limiter: NewRateLimiter(requestsPerSecond, burst),
	}
}

func (t *Throttled) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.GetQuote(ctx, symbol)
}

func (t *Throttled) GetLTP(ctx context.Context, symbol string) (float64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return t.inner.GetLTP(ctx, symbol)
}

func (t *Throttled) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.GetHistorical(ctx, req)
}

var _ MarketData = (*Throttled)(nil)
