package stagez

import (
	"context"
)

// Filter creates a stage Factory that forwards only the values matching the
// predicate. Values that do not match are dropped: the flow for that push
// ends at this stage and nothing reaches the outputs. Dropping is a valid
// outcome, not an error.
//
// Example:
//
//	nonEmpty := stagez.Filter(func(_ context.Context, s string) bool {
//	    return s != ""
//	})
func Filter[T any](predicate func(context.Context, T) bool) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			if !predicate(ctx, value) {
				return
			}
			next()(ctx, value)
		}
	}
}
