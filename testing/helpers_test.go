package testing

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/stagez"
)

// newPipeline wires mock into a fresh pipeline with a recording output.
func newPipeline[T any](t *testing.T, mock *MockStage[T]) (*stagez.Pipeline[T], *Recorder[T]) {
	t.Helper()
	p := stagez.New[T]("helpers")
	t.Cleanup(func() { _ = p.Close() })
	if err := p.AddProcessor(0, mock.Name(), mock.Factory()); err != nil {
		t.Fatalf("register mock: %v", err)
	}
	return p, Attach(t, p, 0, "out")
}

func TestMockStage(t *testing.T) {
	ctx := context.Background()

	t.Run("Forwards By Default", func(t *testing.T) {
		mock := NewMockStage[string](t, "mock-forward")
		p, rec := newPipeline(t, mock)

		p.Push(ctx, "input")

		AssertReceived(t, rec, "input")
		AssertProcessedWith(t, mock, "input")
	})

	t.Run("Applies Transform", func(t *testing.T) {
		mock := NewMockStage[string](t, "mock-transform").WithTransform(strings.ToUpper)
		p, rec := newPipeline(t, mock)

		p.Push(ctx, "input")

		AssertReceived(t, rec, "INPUT")
	})

	t.Run("Drops When Configured", func(t *testing.T) {
		mock := NewMockStage[int](t, "mock-drop").WithDrop(true)
		p, rec := newPipeline(t, mock)

		p.Push(ctx, 1)

		AssertProcessed(t, mock, 1)
		AssertReceived(t, rec)
	})

	t.Run("Tracks Call Count And Builds", func(t *testing.T) {
		mock := NewMockStage[int](t, "mock-count")
		p, _ := newPipeline(t, mock)

		for i := 0; i < 5; i++ {
			p.Push(ctx, i)
		}

		if mock.CallCount() != 5 {
			t.Errorf("expected 5 calls, got %d", mock.CallCount())
		}
		if mock.BuildCount() != 1 {
			t.Errorf("expected 1 build, got %d", mock.BuildCount())
		}
	})

	t.Run("Respects Context Cancellation During Delay", func(t *testing.T) {
		mock := NewMockStage[int](t, "mock-cancel").WithDelay(time.Second)
		p, rec := newPipeline(t, mock)

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		elapsed := MeasureLatency(func() { p.Push(ctx, 1) })
		if elapsed >= time.Second {
			t.Errorf("expected cancellation to cut the delay, took %v", elapsed)
		}
		AssertReceived(t, rec)
	})

	t.Run("Panics When Configured", func(t *testing.T) {
		mock := NewMockStage[int](t, "mock-panic").WithPanic("test panic")
		p, _ := newPipeline(t, mock)

		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic, got none")
			} else if r != "test panic" {
				t.Errorf("expected panic 'test panic', got %v", r)
			}
		}()

		p.Push(ctx, 1)
	})

	t.Run("Tracks Call History", func(t *testing.T) {
		mock := NewMockStage[string](t, "mock-history").WithHistorySize(3)
		p, _ := newPipeline(t, mock)

		for _, s := range []string{"a", "b", "c", "d"} {
			p.Push(ctx, s)
		}

		history := mock.CallHistory()
		if len(history) != 3 {
			t.Fatalf("expected 3 history entries, got %d", len(history))
		}
		if history[0].Input != "b" {
			t.Errorf("expected first history entry 'b', got %q", history[0].Input)
		}
	})

	t.Run("Reset Clears State", func(t *testing.T) {
		mock := NewMockStage[int](t, "mock-reset")
		p, _ := newPipeline(t, mock)

		p.Push(ctx, 1)
		p.Push(ctx, 2)
		mock.Reset()

		if mock.CallCount() != 0 || mock.BuildCount() != 0 {
			t.Errorf("expected cleared counters, got %d calls and %d builds", mock.CallCount(), mock.BuildCount())
		}
		if len(mock.CallHistory()) != 0 {
			t.Errorf("expected empty history after reset, got %d entries", len(mock.CallHistory()))
		}
	})
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder[int]()
	sink := rec.Sink()

	ParallelTest(t, 10, func(id int) {
		sink(context.Background(), id)
	})

	if rec.Count() != 10 {
		t.Errorf("expected 10 values, got %d", rec.Count())
	}
	if !WaitForValues(rec, 10, 100*time.Millisecond) {
		t.Error("expected WaitForValues to succeed")
	}

	rec.Reset()
	if rec.Count() != 0 {
		t.Errorf("expected empty recorder after reset, got %d", rec.Count())
	}
}

func TestAssertTopology(t *testing.T) {
	mock := NewMockStage[int](t, "only")
	p, _ := newPipeline(t, mock)

	AssertTopology(t, p, "helpers: {} → only:0 → {out}")
}

func TestChaosStage(t *testing.T) {
	ctx := context.Background()

	t.Run("No Chaos Wraps Stage", func(t *testing.T) {
		chaos := NewChaosStage("chaos", stagez.Transform(func(_ context.Context, s string) string {
			return s + "_processed"
		}), ChaosConfig{Seed: 12345})

		p := stagez.New[string]("chaos")
		defer p.Close()
		_ = p.AddProcessor(0, chaos.Name(), chaos.Factory())
		rec := Attach(t, p, 0, "out")

		p.Push(ctx, "test")

		AssertReceived(t, rec, "test_processed")
		if stats := chaos.Stats(); stats.TotalCalls != 1 || stats.DroppedCalls != 0 {
			t.Errorf("unexpected stats %s", stats)
		}
	})

	t.Run("Always Drops", func(t *testing.T) {
		chaos := NewChaosStage[int]("chaos", nil, ChaosConfig{DropRate: 1.0, Seed: 1})

		p := stagez.New[int]("chaos-drop")
		defer p.Close()
		_ = p.AddProcessor(0, chaos.Name(), chaos.Factory())
		rec := Attach(t, p, 0, "out")

		for i := 0; i < 10; i++ {
			p.Push(ctx, i)
		}

		AssertReceived(t, rec)
		if rate := chaos.Stats().DropRate(); rate != 1.0 {
			t.Errorf("expected drop rate 1.0, got %f", rate)
		}
	})

	t.Run("Partial Drops", func(t *testing.T) {
		chaos := NewChaosStage[int]("chaos", nil, ChaosConfig{DropRate: 0.5, Seed: 42})

		var delivered atomic.Int64
		fn := chaos.Factory()(func() stagez.ProcessorFunc[int] {
			return func(context.Context, int) { delivered.Add(1) }
		})
		for i := 0; i < 200; i++ {
			fn(ctx, i)
		}

		stats := chaos.Stats()
		if stats.TotalCalls != 200 {
			t.Errorf("expected 200 calls, got %d", stats.TotalCalls)
		}
		if delivered.Load()+stats.DroppedCalls != 200 {
			t.Errorf("expected deliveries and drops to add up, got %d and %d", delivered.Load(), stats.DroppedCalls)
		}
		if stats.DroppedCalls == 0 || stats.DroppedCalls == 200 {
			t.Errorf("expected some but not all drops, got %d", stats.DroppedCalls)
		}
	})
}

func TestWaitForCalls(t *testing.T) {
	mock := NewMockStage[int](t, "async")
	fn := mock.Factory()(func() stagez.ProcessorFunc[int] {
		return func(context.Context, int) {}
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		fn(context.Background(), 1)
	}()

	if !WaitForCalls(mock, 1, time.Second) {
		t.Error("expected call to arrive")
	}
	if WaitForCalls(mock, 5, 30*time.Millisecond) {
		t.Error("expected timeout waiting for 5 calls")
	}
}
