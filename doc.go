// Package stagez provides a priority-ordered, lazily-bound, named processing
// pipeline for in-process data flows.
//
// # Overview
//
// A Pipeline[T] sequences independent stages over an internal type T. Stages
// are registered with a name and a priority and never reference their
// neighbors directly: each stage is built by a Factory that receives a Next
// supplier, which resolves to whatever stage currently follows it. Stages can
// therefore be added, removed, reprioritized or disabled after others were
// registered without rewriting them.
//
// External code talks to a pipeline through named endpoints:
//
//   - Inputs (the head) convert an external type into T and push it in
//   - Outputs (the tail) convert T into an external type and hand it to a sink
//
// Endpoints carry a TypeToken, a reified description of their external type.
// Retrieving an input or connecting a sink with the wrong type fails with
// ErrTypeMismatch at binding time instead of failing inside the data flow.
//
// # Resolution
//
// The chain is resolved lazily on first use and invalidated by every
// mutation. Each resolution produces an immutable snapshot that is published
// atomically; a push picks up the current snapshot when it enters the
// pipeline and runs to completion on it, even if the pipeline is reconfigured
// concurrently.
//
// # Quick Start
//
//	p := stagez.New[*strings.Builder]("simple-pipeline")
//	defer p.Close()
//
//	_ = stagez.AddInput[[]rune](p, "SimpleInput", stagez.Convert(func(r []rune) *strings.Builder {
//	    sb := &strings.Builder{}
//	    sb.WriteString(string(r))
//	    return sb
//	}))
//	_ = stagez.AddOutput[string](p, 0, "SimpleOutput", stagez.Render((*strings.Builder).String))
//
//	_ = p.AddProcessor(0, "Greet", stagez.Transform(func(_ context.Context, sb *strings.Builder) *strings.Builder {
//	    sb.WriteString("!")
//	    return sb
//	}))
//
//	_ = stagez.Out[string](p, "SimpleOutput", func(_ context.Context, s string) {
//	    fmt.Println(s)
//	})
//	in, _ := stagez.In[[]rune](p, "SimpleInput")
//	in(context.Background(), []rune("hello")) // prints "hello!"
//
// # Dropping values
//
// A stage that returns without calling next ends the flow for that push.
// This is a valid outcome, not an error; Filter is the adapter for it.
//
// # Errors
//
// Registration and binding failures return *Error, which wraps one of
// ErrDuplicateName, ErrNotFound, ErrTypeMismatch, ErrNilFactory or
// ErrClosed. Failed registrations leave the pipeline unchanged. Failures
// inside stage logic are the stage's own concern.
package stagez
