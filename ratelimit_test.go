package stagez

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		r := NewRateLimiter[int](10, 2)
		if r.Rate() != 10 || r.Burst() != 2 || r.Mode() != ModeWait {
			t.Errorf("unexpected defaults: rate %f burst %d mode %s", r.Rate(), r.Burst(), r.Mode())
		}

		r.SetRate(20).SetBurst(5).SetMode("bogus")
		if r.Rate() != 20 || r.Burst() != 5 || r.Mode() != ModeWait {
			t.Errorf("unexpected settings: rate %f burst %d mode %s", r.Rate(), r.Burst(), r.Mode())
		}
	})

	t.Run("Drop Mode", func(t *testing.T) {
		var dropped atomic.Int32
		r := NewRateLimiter[int](0.001, 2).SetMode(ModeDrop).OnDrop(func(context.Context, int) {
			dropped.Add(1)
		})
		fn, seen := terminal(r.Factory())

		for i := 0; i < 5; i++ {
			fn(context.Background(), i)
		}

		if len(*seen) != 2 {
			t.Errorf("expected burst of 2 to pass, got %v", *seen)
		}
		if dropped.Load() != 3 {
			t.Errorf("expected 3 drops, got %d", dropped.Load())
		}
	})

	t.Run("Wait Mode Cancelled", func(t *testing.T) {
		r := NewRateLimiter[int](0.001, 1)
		fn, seen := terminal(r.Factory())

		fn(context.Background(), 1)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		fn(ctx, 2)

		if len(*seen) != 1 || (*seen)[0] != 1 {
			t.Errorf("expected only the first value, got %v", *seen)
		}
	})

	t.Run("Shared Across Resolutions", func(t *testing.T) {
		p := New[int]("limited")
		defer p.Close()

		r := NewRateLimiter[int](0.001, 1).SetMode(ModeDrop)
		_ = p.AddProcessor(0, "limit", r.Factory())
		push, got := collect(t, p)

		push(1)
		_ = p.AddProcessor(1, "other", Passthrough[int]())
		push(2)

		if values := got(); len(values) != 1 || values[0] != 1 {
			t.Errorf("expected bucket to survive re-resolution, got %v", values)
		}
	})
}
