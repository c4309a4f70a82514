package stagez

import (
	"context"
	"slices"
)

// inputEntry is a named entry adapter. bind wraps a typed InputFactory and
// always returns an Input of the type described by token.
type inputEntry[T any] struct {
	bind  func(Next[T]) any
	name  Name
	token TypeToken
}

// head owns the named inputs, in registration order.
type head[T any] struct {
	inputs []inputEntry[T]
}

func (h *head[T]) index(name Name) int {
	return slices.IndexFunc(h.inputs, func(e inputEntry[T]) bool { return e.name == name })
}

func (h *head[T]) add(entry inputEntry[T]) error {
	if h.index(entry.name) >= 0 {
		return ErrDuplicateName
	}
	h.inputs = append(slices.Clip(h.inputs), entry)
	return nil
}

func (h *head[T]) remove(name Name) error {
	i := h.index(name)
	if i < 0 {
		return ErrNotFound
	}
	h.inputs = slices.Delete(slices.Clone(h.inputs), i, i+1)
	return nil
}

func (h *head[T]) names() []Name {
	names := make([]Name, len(h.inputs))
	for i, e := range h.inputs {
		names[i] = e.name
	}
	return names
}

// Convert creates an InputFactory from a plain conversion of the external
// type I to the pipeline type T.
//
// Example:
//
//	stagez.Convert(func(r []rune) *strings.Builder {
//	    sb := &strings.Builder{}
//	    sb.WriteString(string(r))
//	    return sb
//	})
func Convert[T, I any](fn func(I) T) InputFactory[T, I] {
	return func(next Next[T]) Input[I] {
		return func(ctx context.Context, value I) {
			next()(ctx, fn(value))
		}
	}
}

// AddInput declares a named input accepting values of type I. The input's
// token is derived from I. A name that is already declared fails with
// ErrDuplicateName.
//
// The factory is stored unresolved and bound only when a handle is
// requested through In, Input or WithInput.
func AddInput[I, T any](p *Pipeline[T], name Name, factory InputFactory[T, I]) error {
	if factory == nil {
		return p.fail("add", KindInput, name, ErrNilFactory)
	}
	token := TypeOf[I]()
	err := p.mutate("add", KindInput, name, false, func() error {
		return p.head.add(inputEntry[T]{
			name:  name,
			token: token,
			bind: func(next Next[T]) any {
				if in := factory(next); in != nil {
					return in
				}
				return Input[I](func(context.Context, I) {})
			},
		})
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("input", name).Stringer("type", token).Msg("input declared")
	return nil
}

// In returns a handle to the named input. It fails with ErrNotFound when no
// such input exists and with ErrTypeMismatch when I differs from the type
// the input was declared with.
//
// The handle stays valid across later mutations: each push runs against the
// chain snapshot that is current when it enters the pipeline.
func In[I, T any](p *Pipeline[T], name Name) (Input[I], error) {
	bound, err := p.bindInput("in", name, TypeOf[I]())
	if err != nil {
		return nil, err
	}
	return bound.(Input[I]), nil
}

// WithInput resolves the named input and hands it to action.
//
// Example:
//
//	err := stagez.WithInput(p, "SimpleInput", func(in stagez.Input[[]rune]) {
//	    in(ctx, []rune("Best"))
//	})
func WithInput[I, T any](p *Pipeline[T], name Name, action func(Input[I])) error {
	in, err := In[I](p, name)
	if err != nil {
		return err
	}
	action(in)
	return nil
}

// Input returns the named input after checking it against an explicit
// token. The returned value is an Input of the token's type.
func (p *Pipeline[T]) Input(name Name, expected TypeToken) (any, error) {
	return p.bindInput("input", name, expected)
}

// Inputs returns the declared input names in registration order.
func (p *Pipeline[T]) Inputs() []Name {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.head.names()
}

// RemoveInput removes a named input. Handles obtained earlier keep working.
func (p *Pipeline[T]) RemoveInput(name Name) error {
	return p.mutate("remove", KindInput, name, false, func() error {
		return p.head.remove(name)
	})
}

func (p *Pipeline[T]) bindInput(op string, name Name, expected TypeToken) (any, error) {
	p.mu.Lock()
	i := p.head.index(name)
	if i < 0 {
		p.mu.Unlock()
		return nil, p.fail(op, KindInput, name, ErrNotFound)
	}
	entry := p.head.inputs[i]
	p.mu.Unlock()

	if !expected.Equal(entry.token) {
		return nil, &Error{
			Pipeline: p.name,
			Op:       op,
			Kind:     KindInput,
			Name:     name,
			Expected: entry.token,
			Got:      expected,
			Err:      ErrTypeMismatch,
		}
	}
	return entry.bind(p.entry(name)), nil
}

// entry returns an always-current supplier of the chain entry. The snapshot
// is captured when the supplier is called, once per push.
func (p *Pipeline[T]) entry(input Name) Next[T] {
	return func() ProcessorFunc[T] {
		snap := p.load()
		return func(ctx context.Context, value T) {
			p.push(ctx, input, snap, value)
		}
	}
}
