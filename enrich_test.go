package stagez

import (
	"context"
	"errors"
	"testing"
)

func TestEnrich(t *testing.T) {
	type user struct {
		ID   int
		Name string
	}
	lookup := func(_ context.Context, u user) (user, error) {
		if u.ID == 0 {
			return u, errors.New("unknown user")
		}
		u.Name = "user-" + string(rune('0'+u.ID))
		return u, nil
	}

	t.Run("Forwards Enriched Value", func(t *testing.T) {
		fn, seen := terminal(Enrich(lookup))
		fn(context.Background(), user{ID: 7})

		if len(*seen) != 1 || (*seen)[0].Name != "user-7" {
			t.Errorf("expected enriched user, got %v", *seen)
		}
	})

	t.Run("Forwards Original On Failure", func(t *testing.T) {
		fn, seen := terminal(Enrich(lookup))
		fn(context.Background(), user{Name: "anonymous"})

		if len(*seen) != 1 || (*seen)[0].Name != "anonymous" {
			t.Errorf("expected original user, got %v", *seen)
		}
	})
}
