package stagez

import (
	"context"
)

// Effect creates a stage Factory that performs a side effect without
// modifying the value, then forwards the original value. Use it for
// logging, counting or auditing alongside the main flow.
//
// Effect has no error channel: the framework does not intercept stage
// failures, so the side effect must deal with its own errors.
//
// Example:
//
//	p.AddProcessor(10, "audit", stagez.Effect(func(ctx context.Context, o Order) {
//	    auditLog.Record(ctx, o.ID)
//	}))
func Effect[T any](fn func(context.Context, T)) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			fn(ctx, value)
			next()(ctx, value)
		}
	}
}
