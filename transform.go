package stagez

import (
	"context"
)

// Transform creates a stage Factory that applies a pure transformation and
// forwards the result. Transform is the simplest stage - use it when the
// operation always succeeds and always continues the flow.
//
// The transformation cannot fail, making Transform ideal for:
//   - Data formatting (uppercase, trimming)
//   - Field mapping or restructuring
//   - Adding computed fields
//
// If the stage may decide to stop the flow, use Filter. If the transformation
// applies only to some values, use Mutate.
//
// Example:
//
//	p.AddProcessor(1, "ToUpper", stagez.Transform(func(_ context.Context, s string) string {
//	    return strings.ToUpper(s)
//	}))
func Transform[T any](fn func(context.Context, T) T) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			next()(ctx, fn(ctx, value))
		}
	}
}

// Passthrough creates a stage Factory that forwards values unchanged. It is
// useful as a placeholder slot that is enabled or replaced later.
func Passthrough[T any]() Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			next()(ctx, value)
		}
	}
}
