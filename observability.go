package stagez

import (
	"context"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Pipeline.
const (
	// Metrics.
	PipelinePushedTotal      = metricz.Key("pipeline.pushed.total")
	PipelineDeliveredTotal   = metricz.Key("pipeline.delivered.total")
	PipelineUnconnectedTotal = metricz.Key("pipeline.unconnected.total")
	PipelineResolutionsTotal = metricz.Key("pipeline.resolutions.total")
	PipelineStagesTotal      = metricz.Key("pipeline.stages.total")
	PipelineSnapshotVersion  = metricz.Key("pipeline.snapshot.version")

	// Spans.
	PipelinePushSpan  = tracez.Key("pipeline.push")
	PipelineStageSpan = tracez.Key("pipeline.stage")

	// Tags.
	PipelineTagInput    = tracez.Tag("pipeline.input")
	PipelineTagVersion  = tracez.Tag("pipeline.version")
	PipelineTagStage    = tracez.Tag("pipeline.stage_name")
	PipelineTagPriority = tracez.Tag("pipeline.stage_priority")

	// Hook event keys.
	PipelineEventStageRegistered = hookz.Key("pipeline.stage_registered")
	PipelineEventStageRemoved    = hookz.Key("pipeline.stage_removed")
	PipelineEventStageUpdated    = hookz.Key("pipeline.stage_updated")
	PipelineEventResolved        = hookz.Key("pipeline.resolved")
	PipelineEventOutputConnected = hookz.Key("pipeline.output_connected")
)

// Event describes a change to a pipeline's wiring. It is emitted via hookz
// when stages are registered, removed or updated, when a new chain snapshot
// is resolved and when a sink is connected.
type Event struct {
	Timestamp  time.Time // When the event occurred
	Pipeline   Name      // Pipeline name
	PipelineID string    // Pipeline instance id
	Kind       Kind      // Namespace of Name (empty for resolutions)
	Name       Name      // Stage or output name
	Priority   int       // Stage priority (stage events)
	Enabled    bool      // Stage state (stage events)
	Version    uint64    // Snapshot version (resolution events)
	Stages     int       // Active stages in the snapshot (resolution events)
}

func newMetrics() *metricz.Registry {
	metrics := metricz.New()
	metrics.Counter(PipelinePushedTotal)
	metrics.Counter(PipelineDeliveredTotal)
	metrics.Counter(PipelineUnconnectedTotal)
	metrics.Counter(PipelineResolutionsTotal)
	metrics.Gauge(PipelineStagesTotal)
	metrics.Gauge(PipelineSnapshotVersion)
	return metrics
}

// emit fires an event without blocking the caller. Handler failures are
// not the pipeline's concern.
func (p *Pipeline[T]) emit(key hookz.Key, event Event) {
	event.Pipeline = p.name
	event.PipelineID = p.id
	event.Timestamp = p.getClock().Now()
	_ = p.hooks.Emit(context.Background(), key, event) //nolint:errcheck
}

// Metrics returns the metrics registry for this pipeline.
func (p *Pipeline[T]) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the tracer for this pipeline.
func (p *Pipeline[T]) Tracer() *tracez.Tracer {
	return p.tracer
}

// OnStageRegistered registers a handler for when a stage is added.
// The handler is called asynchronously.
func (p *Pipeline[T]) OnStageRegistered(handler func(context.Context, Event) error) error {
	_, err := p.hooks.Hook(PipelineEventStageRegistered, handler)
	return err
}

// OnStageRemoved registers a handler for when a stage is removed.
// The handler is called asynchronously.
func (p *Pipeline[T]) OnStageRemoved(handler func(context.Context, Event) error) error {
	_, err := p.hooks.Hook(PipelineEventStageRemoved, handler)
	return err
}

// OnStageUpdated registers a handler for priority and enablement changes.
// The handler is called asynchronously.
func (p *Pipeline[T]) OnStageUpdated(handler func(context.Context, Event) error) error {
	_, err := p.hooks.Hook(PipelineEventStageUpdated, handler)
	return err
}

// OnResolved registers a handler for when a new chain snapshot is published.
// The handler is called asynchronously.
func (p *Pipeline[T]) OnResolved(handler func(context.Context, Event) error) error {
	_, err := p.hooks.Hook(PipelineEventResolved, handler)
	return err
}

// OnOutputConnected registers a handler for when a sink is attached to an output.
// The handler is called asynchronously.
func (p *Pipeline[T]) OnOutputConnected(handler func(context.Context, Event) error) error {
	_, err := p.hooks.Hook(PipelineEventOutputConnected, handler)
	return err
}
