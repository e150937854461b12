package providers

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every request sent to one provider.
// A 429 with Retry-After pauses all callers until the deadline passes.
type RateLimiter struct {
	limiter *rate.Limiter
	rps     float64

	mu            sync.Mutex
	pausedUntil   time.Time
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RPS             float64       `json:"rps" yaml:"rps"`
	TokensAvailable int           `json:"tokens_available" yaml:"tokens_available"`
	Burst           int           `json:"burst" yaml:"burst"`
	TotalConsumed   int64         `json:"total_consumed" yaml:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited" yaml:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty" yaml:"last_429_time,omitempty"`
	PausedUntil     time.Time     `json:"paused_until,omitempty" yaml:"paused_until,omitempty"`
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of one second's worth. rps <= 0 means unlimited.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(math.Ceil(rps))
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	r.mu.Lock()
	pause := time.Until(r.pausedUntil)
	r.mu.Unlock()
	if pause > 0 {
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// TryConsume takes a token without blocking and reports whether it got one.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Now().Before(r.pausedUntil) {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}
	r.totalConsumed++
	return true
}

// Record429 notes a rate-limit answer. A positive retryAfter pauses the
// limiter for that long.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429Time = now
	if retryAfter > 0 {
		if until := now.Add(retryAfter); until.After(r.pausedUntil) {
			r.pausedUntil = until
		}
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Unlimited limiters report no token count.
	tokens := 0
	if r.rps > 0 {
		tokens = int(r.limiter.Tokens())
	}
	return RateLimiterStatus{
		RPS:             r.rps,
		TokensAvailable: tokens,
		Burst:           r.limiter.Burst(),
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
		PausedUntil:     r.pausedUntil,
	}
}
