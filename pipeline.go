package stagez

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Pipeline is a named, priority-ordered chain of stages over the internal
// type T, bounded by named inputs (Head) and named outputs (Tail).
//
// Stages are registered with a priority and a Factory. The chain is resolved
// lazily on first use: each enabled stage's factory is called once and handed
// a supplier of whatever stage follows it. Any mutation invalidates the
// resolved chain and the next push resolves a fresh snapshot. Resolved
// snapshots are immutable and published atomically, so the push path is
// lock-free and an in-flight push always finishes on the snapshot it
// started with.
//
// Pushing through an input drives the value synchronously through every
// stage to the outputs. Concurrent pushes are allowed; the pipeline does not
// serialize them.
//
// Factories are called while the pipeline holds its mutation lock and must
// not mutate the pipeline themselves.
//
// Example:
//
//	p := stagez.New[*strings.Builder]("simple-pipeline")
//	_ = stagez.AddInput[[]rune](p, "SimpleInput", stagez.Convert(func(r []rune) *strings.Builder {
//	    sb := &strings.Builder{}
//	    sb.WriteString(string(r))
//	    return sb
//	}))
//	_ = stagez.AddOutput[string](p, 0, "SimpleOutput", stagez.Render((*strings.Builder).String))
//	_ = p.AddProcessor(1, "ToUpper", toUpper)
//	_ = p.AddProcessor(0, "Insert(My)", insertMy)
//
//	_ = stagez.Out[string](p, "SimpleOutput", func(_ context.Context, s string) { fmt.Println(s) })
//	in, _ := stagez.In[[]rune](p, "SimpleInput")
//	in(ctx, []rune("hello"))
type Pipeline[T any] struct {
	clock    clockz.Clock
	current  atomic.Pointer[snapshot[T]]
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[Event]
	log      zerolog.Logger
	head     head[T]
	tail     tail[T]
	stages   registry[T]
	declared TypeToken
	name     Name
	id       string
	version  uint64
	mu       sync.Mutex
	closed   atomic.Bool
}

type options struct {
	logger zerolog.Logger
	clock  clockz.Clock
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the logger used for wiring diagnostics. The default
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New creates an empty pipeline over the internal type T. The name and the
// declared type are fixed for the pipeline's lifetime.
func New[T any](name Name, opts ...Option) *Pipeline[T] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	return &Pipeline[T]{
		clock:    o.clock,
		metrics:  newMetrics(),
		tracer:   tracez.New(),
		hooks:    hookz.New[Event](),
		declared: TypeOf[T](),
		name:     name,
		id:       id,
		log: o.logger.With().
			Str("component", "stagez").
			Str("pipeline", name).
			Str("pipeline_id", id).
			Logger(),
	}
}

// Name returns the pipeline name.
func (p *Pipeline[T]) Name() Name {
	return p.name
}

// ID returns the unique id of this pipeline instance.
func (p *Pipeline[T]) ID() string {
	return p.id
}

// Type returns the token of the pipeline's internal type T.
func (p *Pipeline[T]) Type() TypeToken {
	return p.declared
}

// AddProcessor registers a stage. Stages run in ascending priority order;
// stages with equal priority run in registration order. A name that is
// already registered fails with ErrDuplicateName and leaves the pipeline
// unchanged.
func (p *Pipeline[T]) AddProcessor(priority int, name Name, factory Factory[T]) error {
	if factory == nil {
		return p.fail("add", KindStage, name, ErrNilFactory)
	}
	err := p.mutate("add", KindStage, name, true, func() error {
		return p.stages.register(priority, name, factory)
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("stage", name).Int("priority", priority).Msg("stage registered")
	p.emit(PipelineEventStageRegistered, Event{Kind: KindStage, Name: name, Priority: priority, Enabled: true})
	return nil
}

// RemoveProcessor removes a stage. Pushes that start after RemoveProcessor
// returns never reach the removed stage.
func (p *Pipeline[T]) RemoveProcessor(name Name) error {
	var removed stage[T]
	err := p.mutate("remove", KindStage, name, true, func() error {
		var err error
		removed, err = p.stages.remove(name)
		return err
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("stage", name).Msg("stage removed")
	p.emit(PipelineEventStageRemoved, Event{Kind: KindStage, Name: name, Priority: removed.priority, Enabled: removed.enabled})
	return nil
}

// SetPriority moves a stage to a new priority. Among equal priorities the
// stage keeps its original registration order.
func (p *Pipeline[T]) SetPriority(name Name, priority int) error {
	return p.updateStage("prioritize", name, func() error {
		return p.stages.reprioritize(name, priority)
	})
}

// EnableProcessor re-enables a disabled stage.
func (p *Pipeline[T]) EnableProcessor(name Name) error {
	return p.updateStage("enable", name, func() error {
		return p.stages.setEnabled(name, true)
	})
}

// DisableProcessor keeps a stage registered but skips it when the chain is
// resolved.
func (p *Pipeline[T]) DisableProcessor(name Name) error {
	return p.updateStage("disable", name, func() error {
		return p.stages.setEnabled(name, false)
	})
}

func (p *Pipeline[T]) updateStage(op string, name Name, fn func() error) error {
	var info StageInfo
	err := p.mutate(op, KindStage, name, true, func() error {
		if err := fn(); err != nil {
			return err
		}
		info = p.stages.stages[p.stages.index(name)].info()
		return nil
	})
	if err != nil {
		return err
	}
	p.log.Debug().Str("stage", name).Int("priority", info.Priority).Bool("enabled", info.Enabled).Msg("stage updated")
	p.emit(PipelineEventStageUpdated, Event{Kind: KindStage, Name: name, Priority: info.Priority, Enabled: info.Enabled})
	return nil
}

// Names returns the names of all registered stages in resolution order,
// including disabled ones.
func (p *Pipeline[T]) Names() []Name {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stages.names()
}

// Stages describes all registered stages in resolution order.
func (p *Pipeline[T]) Stages() []StageInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stages.infos()
}

// Len returns the number of registered stages.
func (p *Pipeline[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stages.stages)
}

// Version returns the version of the current chain snapshot, resolving it
// if needed. Versions increase with every resolution.
func (p *Pipeline[T]) Version() uint64 {
	return p.load().version
}

// Push sends a value of the internal type straight into the first stage,
// bypassing the inputs.
func (p *Pipeline[T]) Push(ctx context.Context, value T) {
	p.push(ctx, "", p.load(), value)
}

// Close gracefully shuts down observability components. Mutations after
// Close fail with ErrClosed.
func (p *Pipeline[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.hooks.Close()
	return nil
}

// mutate runs fn under the pipeline lock. When fn succeeds and invalidate is
// set, the resolved snapshot is dropped so the next push resolves again.
func (p *Pipeline[T]) mutate(op string, kind Kind, name Name, invalidate bool, fn func() error) error {
	if p.closed.Load() {
		return p.fail(op, kind, name, ErrClosed)
	}
	p.mu.Lock()
	err := fn()
	if err == nil && invalidate {
		p.current.Store(nil)
	}
	p.mu.Unlock()
	if err != nil {
		return p.fail(op, kind, name, err)
	}
	return nil
}

func (p *Pipeline[T]) fail(op string, kind Kind, name Name, err error) error {
	return &Error{Pipeline: p.name, Op: op, Kind: kind, Name: name, Err: err}
}

// load returns the current snapshot, resolving a new one if the last
// mutation invalidated it.
func (p *Pipeline[T]) load() *snapshot[T] {
	if snap := p.current.Load(); snap != nil {
		return snap
	}

	p.mu.Lock()
	// Double-check after acquiring the lock
	if snap := p.current.Load(); snap != nil {
		p.mu.Unlock()
		return snap
	}
	p.version++
	entry, infos := p.stages.resolve(p.tail.resolve(), p.traceStage)
	snap := &snapshot[T]{entry: entry, stages: infos, version: p.version}
	p.current.Store(snap)
	p.mu.Unlock()

	p.metrics.Counter(PipelineResolutionsTotal).Inc()
	p.metrics.Gauge(PipelineStagesTotal).Set(float64(len(infos)))
	p.metrics.Gauge(PipelineSnapshotVersion).Set(float64(snap.version))
	p.log.Debug().Uint64("version", snap.version).Int("stages", len(infos)).Msg("chain resolved")
	p.emit(PipelineEventResolved, Event{Version: snap.version, Stages: len(infos)})
	return snap
}

// push runs one invocation against a single snapshot.
func (p *Pipeline[T]) push(ctx context.Context, input Name, snap *snapshot[T], value T) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.metrics.Counter(PipelinePushedTotal).Inc()

	ctx, span := p.tracer.StartSpan(ctx, PipelinePushSpan)
	if input != "" {
		span.SetTag(PipelineTagInput, input)
	}
	span.SetTag(PipelineTagVersion, strconv.FormatUint(snap.version, 10))
	defer span.Finish()

	snap.entry(ctx, value)
}

// traceStage wraps a live stage with a span covering its invocation.
func (p *Pipeline[T]) traceStage(info StageInfo, fn ProcessorFunc[T]) ProcessorFunc[T] {
	priority := strconv.Itoa(info.Priority)
	return func(ctx context.Context, value T) {
		ctx, span := p.tracer.StartSpan(ctx, PipelineStageSpan)
		span.SetTag(PipelineTagStage, info.Name)
		span.SetTag(PipelineTagPriority, priority)
		defer span.Finish()
		fn(ctx, value)
	}
}

// getClock returns the clock to use.
func (p *Pipeline[T]) getClock() clockz.Clock {
	if p.clock == nil {
		return clockz.RealClock
	}
	return p.clock
}
