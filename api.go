package stagez

import "context"

// Name is a type alias for stage, input, output and pipeline names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Example:
//
//	const (
//	    InsertName  stagez.Name = "Insert(My)"
//	    ToUpperName stagez.Name = "ToUpper"
//	)
type Name = string

// ProcessorFunc is the live form of a stage. It receives the current value and
// is expected to forward it (usually after transforming it) to the next stage.
// Returning without forwarding drops the value for this invocation; that is a
// valid terminal action, not an error.
//
// ProcessorFuncs run synchronously on the pushing goroutine. When several
// goroutines push into the same pipeline concurrently, a ProcessorFunc must be
// pure or synchronize its own state.
type ProcessorFunc[T any] func(ctx context.Context, value T)

// Next resolves to the stage that follows the one it was handed to. It is
// bound when the chain is resolved, so stages never keep pointers to their
// neighbors and can be added or removed later without rewriting older stages.
type Next[T any] func() ProcessorFunc[T]

// Factory builds the live ProcessorFunc for a stage. It is called exactly once
// per resolution of the chain with the supplier of whatever stage currently
// follows it.
//
// Example:
//
//	appendFriends := func(next stagez.Next[*strings.Builder]) stagez.ProcessorFunc[*strings.Builder] {
//	    return func(ctx context.Context, sb *strings.Builder) {
//	        sb.WriteString(" Friends")
//	        next()(ctx, sb)
//	    }
//	}
type Factory[T any] func(next Next[T]) ProcessorFunc[T]

// Input is an entry point accepting values of an external type In.
type Input[In any] func(ctx context.Context, value In)

// InputFactory builds an Input that converts In to the pipeline type T and
// forwards it to the first stage.
type InputFactory[T, In any] func(next Next[T]) Input[In]

// Sink is an external consumer of values of type O.
type Sink[O any] func(ctx context.Context, value O)

// SinkSupplier resolves to the sink currently connected to an output. Until a
// sink is connected it resolves to a no-op sink.
type SinkSupplier[O any] func() Sink[O]

// OutputFactory builds the tail-side ProcessorFunc that converts the pipeline
// type T to O and hands it to the connected sink.
type OutputFactory[T, O any] func(sink SinkSupplier[O]) ProcessorFunc[T]

// StageInfo describes a registered stage.
type StageInfo struct {
	Name     Name `json:"name" msgpack:"name"`
	Priority int  `json:"priority" msgpack:"priority"`
	Enabled  bool `json:"enabled" msgpack:"enabled"`
}
