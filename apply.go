package stagez

import (
	"context"
)

// Apply creates a stage Factory from a transformation that may fail. On
// success the result is forwarded. On failure onError (if set) receives the
// input and the error, and the value is dropped.
//
// Stages have no error channel of their own, so Apply is where a fallible
// step decides what failure means: log it, count it, divert the value to a
// dead-letter sink from onError, or simply drop it.
//
// For pure transformations that can't fail, use Transform. For operations
// that should continue on failure, use Enrich.
//
// Example:
//
//	parseJSON := stagez.Apply(func(_ context.Context, raw Raw) (Raw, error) {
//	    return raw, json.Unmarshal(raw.Body, &raw.Data)
//	}, func(ctx context.Context, raw Raw, err error) {
//	    log.Warn().Err(err).Msg("dropping malformed record")
//	})
func Apply[T any](fn func(context.Context, T) (T, error), onError func(context.Context, T, error)) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			result, err := fn(ctx, value)
			if err != nil {
				if onError != nil {
					onError(ctx, value, err)
				}
				return
			}
			next()(ctx, result)
		}
	}
}
