package stagez_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/zoobzio/stagez"
)

// BenchmarkPipeline_Baseline measures the overhead of an empty pipeline.
func BenchmarkPipeline_Baseline(b *testing.B) {
	ctx := context.Background()
	p := stagez.New[int]("bench")
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Push(ctx, 42)
	}
}

// BenchmarkPipeline_SingleStage measures a pipeline with one stage.
func BenchmarkPipeline_SingleStage(b *testing.B) {
	ctx := context.Background()
	p := stagez.New[int]("bench")
	defer p.Close()
	_ = p.AddProcessor(0, "double", stagez.Transform(func(_ context.Context, n int) int {
		return n * 2
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Push(ctx, 42)
	}
}

// BenchmarkPipeline_StageTypes measures different stage adapters.
func BenchmarkPipeline_StageTypes(b *testing.B) {
	ctx := context.Background()
	stages := map[string]stagez.Factory[int]{
		"Transform": stagez.Transform(func(_ context.Context, n int) int { return n + 1 }),
		"Effect":    stagez.Effect(func(context.Context, int) {}),
		"Filter":    stagez.Filter(func(_ context.Context, n int) bool { return n > 0 }),
		"Mutate": stagez.Mutate(
			func(_ context.Context, n int) int { return n * 2 },
			func(_ context.Context, n int) bool { return n%2 == 0 },
		),
		"Enrich": stagez.Enrich(func(_ context.Context, n int) (int, error) { return n + 1, nil }),
	}

	for name, factory := range stages {
		b.Run(name, func(b *testing.B) {
			p := stagez.New[int]("bench")
			defer p.Close()
			_ = p.AddProcessor(0, name, factory)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p.Push(ctx, 42)
			}
		})
	}
}

// BenchmarkPipeline_Length measures how push cost scales with stage count.
func BenchmarkPipeline_Length(b *testing.B) {
	ctx := context.Background()
	for _, n := range []int{1, 5, 10, 50} {
		b.Run(fmt.Sprintf("Stages_%d", n), func(b *testing.B) {
			p := stagez.New[int]("bench")
			defer p.Close()
			for i := 0; i < n; i++ {
				_ = p.AddProcessor(i, fmt.Sprintf("inc-%d", i), stagez.Transform(func(_ context.Context, v int) int {
					return v + 1
				}))
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p.Push(ctx, 0)
			}
		})
	}
}

// BenchmarkPipeline_Endpoints measures a push through a typed input and output.
func BenchmarkPipeline_Endpoints(b *testing.B) {
	ctx := context.Background()
	p := stagez.New[int]("bench")
	defer p.Close()
	_ = stagez.AddInput[int](p, "in", stagez.Convert(func(v int) int { return v }))
	_ = stagez.AddOutput[int](p, 0, "out", stagez.Render(func(v int) int { return v }))
	_ = stagez.Out[int](p, "out", func(context.Context, int) {})
	_ = p.AddProcessor(0, "double", stagez.Transform(func(_ context.Context, n int) int { return n * 2 }))

	in, err := stagez.In[int](p, "in")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in(ctx, 42)
	}
}

// BenchmarkPipeline_Parallel measures concurrent pushes through one snapshot.
func BenchmarkPipeline_Parallel(b *testing.B) {
	p := stagez.New[int]("bench")
	defer p.Close()
	_ = p.AddProcessor(0, "double", stagez.Transform(func(_ context.Context, n int) int { return n * 2 }))
	_ = p.AddProcessor(1, "positive", stagez.Filter(func(_ context.Context, n int) bool { return n > 0 }))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			p.Push(ctx, 42)
		}
	})
}

// BenchmarkPipeline_Resolve measures re-resolution after a mutation.
func BenchmarkPipeline_Resolve(b *testing.B) {
	ctx := context.Background()
	p := stagez.New[int]("bench")
	defer p.Close()
	for i := 0; i < 10; i++ {
		_ = p.AddProcessor(i, fmt.Sprintf("stage-%d", i), stagez.Passthrough[int]())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.SetPriority("stage-0", i%3)
		p.Push(ctx, 1)
	}
}
