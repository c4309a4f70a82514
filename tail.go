package stagez

import (
	"context"
	"reflect"
	"slices"
	"sync/atomic"
)

// outputEntry is a named exit adapter. Its closures are built by AddOutput
// and close over a typed sink slot.
type outputEntry[T any] struct {
	build     func() ProcessorFunc[T]
	connect   func(sink any) bool
	connected func() bool
	name      Name
	token     TypeToken
	index     int
	seq       uint64
}

// tail owns the named outputs, ordered by index then registration order.
type tail[T any] struct {
	outputs []outputEntry[T]
	nextSeq uint64
}

func (t *tail[T]) index(name Name) int {
	return slices.IndexFunc(t.outputs, func(e outputEntry[T]) bool { return e.name == name })
}

func (t *tail[T]) add(entry outputEntry[T]) error {
	if t.index(entry.name) >= 0 {
		return ErrDuplicateName
	}
	t.nextSeq++
	entry.seq = t.nextSeq
	i := slices.IndexFunc(t.outputs, func(e outputEntry[T]) bool { return e.index > entry.index })
	if i < 0 {
		i = len(t.outputs)
	}
	t.outputs = slices.Insert(slices.Clone(t.outputs), i, entry)
	return nil
}

func (t *tail[T]) remove(name Name) error {
	i := t.index(name)
	if i < 0 {
		return ErrNotFound
	}
	t.outputs = slices.Delete(slices.Clone(t.outputs), i, i+1)
	return nil
}

func (t *tail[T]) names() []Name {
	names := make([]Name, len(t.outputs))
	for i, e := range t.outputs {
		names[i] = e.name
	}
	return names
}

// resolve builds the fan-out entry of the tail. Every output receives the
// value in order; with no outputs the value is dropped.
func (t *tail[T]) resolve() ProcessorFunc[T] {
	funcs := make([]ProcessorFunc[T], 0, len(t.outputs))
	for _, out := range t.outputs {
		if fn := out.build(); fn != nil {
			funcs = append(funcs, fn)
		}
	}
	switch len(funcs) {
	case 0:
		return drop[T]
	case 1:
		return funcs[0]
	}
	return func(ctx context.Context, value T) {
		for _, fn := range funcs {
			fn(ctx, value)
		}
	}
}

// Render creates an OutputFactory from a plain conversion of the pipeline
// type T to the external type O.
//
// Example:
//
//	stagez.Render((*strings.Builder).String)
func Render[T, O any](fn func(T) O) OutputFactory[T, O] {
	return func(sink SinkSupplier[O]) ProcessorFunc[T] {
		return func(ctx context.Context, value T) {
			sink()(ctx, fn(value))
		}
	}
}

// AddOutput declares a named output producing values of type O at a tail
// slot. Outputs may share an index; at the tail they run by ascending index,
// then in registration order. Names are unique across all indices and a
// collision fails with ErrDuplicateName.
//
// Until a sink is connected the output delivers to a no-op sink, so pushes
// never fail because a consumer has not been attached yet.
func AddOutput[O, T any](p *Pipeline[T], index int, name Name, factory OutputFactory[T, O]) error {
	if factory == nil {
		return p.fail("add", KindOutput, name, ErrNilFactory)
	}

	var slot atomic.Pointer[Sink[O]]
	var warned atomic.Bool
	noop := Sink[O](func(context.Context, O) {
		p.metrics.Counter(PipelineUnconnectedTotal).Inc()
		if warned.CompareAndSwap(false, true) {
			p.log.Warn().Str("output", name).Msg("value reached an unconnected output")
		}
	})
	supplier := func() Sink[O] {
		if sink := slot.Load(); sink != nil {
			return *sink
		}
		return noop
	}

	token := TypeOf[O]()
	err := p.mutate("add", KindOutput, name, true, func() error {
		return p.tail.add(outputEntry[T]{
			name:  name,
			token: token,
			index: index,
			build: func() ProcessorFunc[T] {
				return factory(supplier)
			},
			connect: func(v any) bool {
				var sink Sink[O]
				switch s := v.(type) {
				case nil:
				case Sink[O]:
					sink = s
				case func(context.Context, O):
					sink = s
				default:
					return false
				}
				if sink == nil {
					slot.Store(nil)
					return true
				}
				delivered := Sink[O](func(ctx context.Context, value O) {
					p.metrics.Counter(PipelineDeliveredTotal).Inc()
					sink(ctx, value)
				})
				slot.Store(&delivered)
				return true
			},
			connected: func() bool {
				return slot.Load() != nil
			},
		})
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("output", name).Int("index", index).Stringer("type", token).Msg("output declared")
	return nil
}

// Out connects a sink to the named output. It fails with ErrNotFound when no
// such output exists and with ErrTypeMismatch when O differs from the type the
// output was declared with. Connecting replaces any previous sink.
func Out[O, T any](p *Pipeline[T], name Name, sink Sink[O]) error {
	return p.connect("out", name, TypeOf[O](), sink)
}

// Connect attaches a sink after checking the output against an explicit
// token. sink must be a Sink or a func(context.Context, O) of the token's
// type O; a nil sink restores the no-op sink.
func (p *Pipeline[T]) Connect(name Name, expected TypeToken, sink any) error {
	return p.connect("connect", name, expected, sink)
}

// Disconnect restores the no-op sink of the named output.
func (p *Pipeline[T]) Disconnect(name Name) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.tail.index(name)
	if i < 0 {
		return p.fail("disconnect", KindOutput, name, ErrNotFound)
	}
	p.tail.outputs[i].connect(nil)
	return nil
}

// Connected reports whether a sink is attached to the named output.
func (p *Pipeline[T]) Connected(name Name) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.tail.index(name)
	return i >= 0 && p.tail.outputs[i].connected()
}

// Outputs returns the declared output names in fan-out order.
func (p *Pipeline[T]) Outputs() []Name {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tail.names()
}

// RemoveOutput removes a named output from the tail.
func (p *Pipeline[T]) RemoveOutput(name Name) error {
	return p.mutate("remove", KindOutput, name, true, func() error {
		return p.tail.remove(name)
	})
}

func (p *Pipeline[T]) connect(op string, name Name, expected TypeToken, sink any) error {
	p.mu.Lock()
	i := p.tail.index(name)
	if i < 0 {
		p.mu.Unlock()
		return p.fail(op, KindOutput, name, ErrNotFound)
	}
	entry := p.tail.outputs[i]
	ok := expected.Equal(entry.token) && entry.connect(sink)
	p.mu.Unlock()

	if !ok {
		got := expected
		if expected.Equal(entry.token) {
			got = TokenOf(reflect.TypeOf(sink))
		}
		return &Error{
			Pipeline: p.name,
			Op:       op,
			Kind:     KindOutput,
			Name:     name,
			Expected: entry.token,
			Got:      got,
			Err:      ErrTypeMismatch,
		}
	}
	p.log.Debug().Str("output", name).Msg("sink connected")
	p.emit(PipelineEventOutputConnected, Event{Kind: KindOutput, Name: name})
	return nil
}
