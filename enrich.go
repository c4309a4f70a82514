package stagez

import (
	"context"
)

// Enrich creates a stage Factory that attempts to enhance a value with
// additional information. If enrichment fails the original value is
// forwarded unchanged, so the flow always continues.
//
// Use Enrich for optional lookups: geo data from an IP, a display name from
// a cache, feature flags. Failures are swallowed; wrap fn if they need to be
// observed.
//
// Example:
//
//	addGeo := stagez.Enrich(func(ctx context.Context, e Event) (Event, error) {
//	    loc, err := geoService.Lookup(ctx, e.IP)
//	    if err != nil {
//	        return e, err
//	    }
//	    e.Country = loc.Country
//	    return e, nil
//	})
func Enrich[T any](fn func(context.Context, T) (T, error)) Factory[T] {
	return func(next Next[T]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			if enriched, err := fn(ctx, value); err == nil {
				value = enriched
			}
			next()(ctx, value)
		}
	}
}
