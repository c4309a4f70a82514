package stagez

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Rate limiting modes.
const (
	ModeWait = "wait"
	ModeDrop = "drop"
)

// RateLimiter is a token bucket shared by every resolution of a stage. It
// is stateful: create it once and register its Factory, so re-resolving the
// chain after a mutation keeps the same bucket.
//
// The limiter operates in two modes:
//   - "wait": blocks the pushing goroutine until a token is available
//     (default); a cancelled context drops the value
//   - "drop": drops the value immediately if no token is available
//
// Example:
//
//	apiLimiter := stagez.NewRateLimiter[Order](100, 10)
//	_ = p.AddProcessor(5, "api-limit", apiLimiter.Factory())
type RateLimiter[T any] struct {
	limiter *rate.Limiter
	mode    string
	dropped func(context.Context, T)
	mu      sync.RWMutex
}

// NewRateLimiter creates a limiter with a sustained rate per second and a
// maximum burst.
func NewRateLimiter[T any](ratePerSecond float64, burst int) *RateLimiter[T] {
	return &RateLimiter[T]{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		mode:    ModeWait,
	}
}

// Factory returns the stage factory for this limiter.
func (r *RateLimiter[T]) Factory() Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			if !r.admit(ctx) {
				r.mu.RLock()
				dropped := r.dropped
				r.mu.RUnlock()
				if dropped != nil {
					dropped(ctx, value)
				}
				return
			}
			next()(ctx, value)
		}
	}
}

func (r *RateLimiter[T]) admit(ctx context.Context) bool {
	r.mu.RLock()
	limiter := r.limiter
	mode := r.mode
	r.mu.RUnlock()

	if mode == ModeDrop {
		return limiter.Allow()
	}
	return limiter.Wait(ctx) == nil
}

// OnDrop sets a callback for values the limiter refuses.
func (r *RateLimiter[T]) OnDrop(fn func(context.Context, T)) *RateLimiter[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = fn
	return r
}

// SetRate updates the rate limit (requests per second).
func (r *RateLimiter[T]) SetRate(ratePerSecond float64) *RateLimiter[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
	return r
}

// SetBurst updates the burst capacity.
func (r *RateLimiter[T]) SetBurst(burst int) *RateLimiter[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetBurst(burst)
	return r
}

// SetMode sets the rate limiting mode. Unknown modes are ignored.
func (r *RateLimiter[T]) SetMode(mode string) *RateLimiter[T] {
	if mode != ModeWait && mode != ModeDrop {
		return r
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	return r
}

// Rate returns the current rate limit.
func (r *RateLimiter[T]) Rate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return float64(r.limiter.Limit())
}

// Burst returns the current burst capacity.
func (r *RateLimiter[T]) Burst() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiter.Burst()
}

// Mode returns the current mode.
func (r *RateLimiter[T]) Mode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}
