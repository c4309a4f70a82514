package stagez

import (
	"context"
)

// Mutate creates a stage Factory that conditionally transforms data based on
// a predicate. When the condition is false the value is forwarded unchanged.
//
// Example:
//
//	discountPremium := stagez.Mutate(
//	    func(_ context.Context, o Order) Order {
//	        o.Total *= 0.9
//	        return o
//	    },
//	    func(_ context.Context, o Order) bool {
//	        return o.CustomerTier == "premium"
//	    },
//	)
func Mutate[T any](transformer func(context.Context, T) T, condition func(context.Context, T) bool) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			if condition(ctx, value) {
				value = transformer(ctx, value)
			}
			next()(ctx, value)
		}
	}
}
