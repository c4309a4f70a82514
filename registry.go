package stagez

import (
	"context"
	"slices"
)

// stage is a registered processing unit. seq is assigned once at registration
// and breaks ties between equal priorities, so resolution is deterministic.
type stage[T any] struct {
	factory  Factory[T]
	name     Name
	priority int
	seq      uint64
	enabled  bool
}

func (s stage[T]) info() StageInfo {
	return StageInfo{Name: s.name, Priority: s.priority, Enabled: s.enabled}
}

// less orders stages by priority, then by registration sequence.
func (s stage[T]) less(other stage[T]) bool {
	if s.priority != other.priority {
		return s.priority < other.priority
	}
	return s.seq < other.seq
}

// snapshot is an immutable resolved chain. Every stage of a snapshot is wired
// to the next stage of the same snapshot, so an invocation that starts on a
// snapshot never observes another one.
type snapshot[T any] struct {
	entry   ProcessorFunc[T]
	stages  []StageInfo
	version uint64
}

// registry is the ordered set of stages. It is not synchronized; Pipeline
// serializes every access behind its mutex and publishes resolved snapshots.
type registry[T any] struct {
	stages  []stage[T]
	nextSeq uint64
}

func (r *registry[T]) index(name Name) int {
	return slices.IndexFunc(r.stages, func(s stage[T]) bool { return s.name == name })
}

// insert places s after every stage that orders before it.
func (r *registry[T]) insert(s stage[T]) {
	i, _ := slices.BinarySearchFunc(r.stages, s, func(a, b stage[T]) int {
		if a.less(b) {
			return -1
		}
		if b.less(a) {
			return 1
		}
		return 0
	})
	// Copy-on-write: snapshots never share the backing array.
	next := make([]stage[T], 0, len(r.stages)+1)
	next = append(next, r.stages[:i]...)
	next = append(next, s)
	next = append(next, r.stages[i:]...)
	r.stages = next
}

func (r *registry[T]) register(priority int, name Name, factory Factory[T]) error {
	if r.index(name) >= 0 {
		return ErrDuplicateName
	}
	r.nextSeq++
	r.insert(stage[T]{
		factory:  factory,
		name:     name,
		priority: priority,
		seq:      r.nextSeq,
		enabled:  true,
	})
	return nil
}

func (r *registry[T]) remove(name Name) (stage[T], error) {
	i := r.index(name)
	if i < 0 {
		return stage[T]{}, ErrNotFound
	}
	removed := r.stages[i]
	r.stages = slices.Delete(slices.Clone(r.stages), i, i+1)
	return removed, nil
}

// reprioritize moves a stage to a new priority. It keeps its original
// sequence number, so it sorts among equal priorities by registration age.
func (r *registry[T]) reprioritize(name Name, priority int) error {
	s, err := r.remove(name)
	if err != nil {
		return err
	}
	s.priority = priority
	r.insert(s)
	return nil
}

func (r *registry[T]) setEnabled(name Name, enabled bool) error {
	i := r.index(name)
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Clone(r.stages)
	next[i].enabled = enabled
	r.stages = next
	return nil
}

func (r *registry[T]) names() []Name {
	names := make([]Name, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.name
	}
	return names
}

func (r *registry[T]) infos() []StageInfo {
	infos := make([]StageInfo, len(r.stages))
	for i, s := range r.stages {
		infos[i] = s.info()
	}
	return infos
}

// resolve calls every enabled stage's factory once and links the results in
// order. Stage i's next returns stage i+1; the last stage's next returns tail.
// wrap decorates each live function, e.g. with tracing; it may be nil.
//
// An empty registry resolves directly to tail.
func (r *registry[T]) resolve(tail ProcessorFunc[T], wrap func(StageInfo, ProcessorFunc[T]) ProcessorFunc[T]) (ProcessorFunc[T], []StageInfo) {
	active := make([]stage[T], 0, len(r.stages))
	for _, s := range r.stages {
		if s.enabled {
			active = append(active, s)
		}
	}

	// funcs is written only here and read-only once resolve returns.
	funcs := make([]ProcessorFunc[T], len(active)+1)
	funcs[len(active)] = tail

	// Built back to front so a factory that calls next eagerly still sees
	// the stage after it.
	infos := make([]StageInfo, len(active))
	for i := len(active) - 1; i >= 0; i-- {
		s := active[i]
		next := i + 1
		fn := s.factory(func() ProcessorFunc[T] { return funcs[next] })
		if fn == nil {
			fn = drop[T]
		}
		infos[i] = s.info()
		if wrap != nil {
			fn = wrap(infos[i], fn)
		}
		funcs[i] = fn
	}
	return funcs[0], infos
}

// drop ends the flow for a value.
func drop[T any](context.Context, T) {}
