// Package testing provides test utilities and helpers for stagez-based applications.
//
// This package includes mock stages, recording sinks, assertion helpers and
// chaos testing tools to make testing stagez pipelines easier and more
// comprehensive.
//
// Example usage:
//
//	func TestMyPipeline(t *testing.T) {
//		mock := stageztesting.NewMockStage[string](t, "mock-stage")
//		mock.WithTransform(strings.ToUpper)
//
//		p := stagez.New[string]("test-pipeline")
//		_ = p.AddProcessor(0, mock.Name(), mock.Factory())
//		rec := stageztesting.Attach(t, p, 0, "out")
//
//		p.Push(context.Background(), "input")
//
//		stageztesting.AssertProcessed(t, mock, 1)
//		stageztesting.AssertReceived(t, rec, "INPUT")
//	}
package testing

import (
	"context"
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/stagez"
)

// MockStage provides a configurable mock stage. It tracks calls, allows
// configuring a transformation, delays or drops, and provides assertion
// methods for testing pipeline behavior.
type MockStage[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	buildCount  int64
	lastInput   T
	transform   func(T) T
	drop        bool
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall[T]
	maxHistory  int
}

// MockCall represents a single call to the mock stage.
type MockCall[T any] struct {
	Input     T
	Timestamp time.Time
	Context   context.Context
}

// NewMockStage creates a new mock stage for testing.
// By default the stage forwards its input unchanged.
func NewMockStage[T any](t *testing.T, name string) *MockStage[T] {
	return &MockStage[T]{
		t:          t,
		name:       name,
		maxHistory: 100, // Keep last 100 calls by default
	}
}

// WithTransform configures the mock to forward fn(input) instead of input.
func (m *MockStage[T]) WithTransform(fn func(T) T) *MockStage[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = fn
	return m
}

// WithDrop configures the mock to end the flow instead of forwarding.
func (m *MockStage[T]) WithDrop(drop bool) *MockStage[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop = drop
	return m
}

// WithDelay configures the mock to delay before forwarding.
// A cancelled context ends the delay early and drops the value.
func (m *MockStage[T]) WithDelay(d time.Duration) *MockStage[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic configures the mock to panic with a specific message.
func (m *MockStage[T]) WithPanic(msg string) *MockStage[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize configures how many calls to keep in history.
// Set to 0 to disable history tracking.
func (m *MockStage[T]) WithHistorySize(size int) *MockStage[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		// Trim history to new size
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name returns the name of the mock stage.
func (m *MockStage[T]) Name() stagez.Name {
	return m.name
}

// Factory returns a stage factory backed by this mock. Every resolution of
// the chain counts as a build.
func (m *MockStage[T]) Factory() stagez.Factory[T] {
	return func(next stagez.Next[T]) stagez.ProcessorFunc[T] {
		atomic.AddInt64(&m.buildCount, 1)
		return func(ctx context.Context, data T) {
			m.process(ctx, next, data)
		}
	}
}

func (m *MockStage[T]) process(ctx context.Context, next stagez.Next[T], data T) {
	// Record the call
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = data
	if m.maxHistory > 0 {
		call := MockCall[T]{
			Input:     data,
			Timestamp: time.Now(),
			Context:   ctx,
		}
		m.callHistory = append(m.callHistory, call)
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:] // Remove oldest
		}
	}

	// Get configured behavior
	delay := m.delay
	transform := m.transform
	drop := m.drop
	panicMsg := m.panicMsg
	m.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	if drop {
		return
	}
	if transform != nil {
		data = transform(data)
	}
	next()(ctx, data)
}

// CallCount returns the number of values the stage has received.
func (m *MockStage[T]) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// BuildCount returns how many times the factory has been resolved.
func (m *MockStage[T]) BuildCount() int {
	return int(atomic.LoadInt64(&m.buildCount))
}

// LastInput returns the input from the most recent call.
func (m *MockStage[T]) LastInput() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// CallHistory returns a copy of all recorded calls.
// Returns nil if history tracking is disabled.
func (m *MockStage[T]) CallHistory() []MockCall[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall[T], len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking.
func (m *MockStage[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	atomic.StoreInt64(&m.buildCount, 0)
	m.lastInput = *new(T)
	m.callHistory = nil
}

// Recorder is a sink that stores every value it receives.
type Recorder[O any] struct {
	values []O
	mu     sync.Mutex
}

// NewRecorder creates an empty recorder.
func NewRecorder[O any]() *Recorder[O] {
	return &Recorder[O]{}
}

// Sink returns the recorder as a stagez sink.
func (r *Recorder[O]) Sink() stagez.Sink[O] {
	return func(_ context.Context, value O) {
		r.mu.Lock()
		r.values = append(r.values, value)
		r.mu.Unlock()
	}
}

// Values returns a copy of the received values in arrival order.
func (r *Recorder[O]) Values() []O {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]O, len(r.values))
	copy(values, r.values)
	return values
}

// Count returns the number of received values.
func (r *Recorder[O]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Reset discards the received values.
func (r *Recorder[O]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = nil
}

// Attach declares an identity output at index on p and connects a new
// recorder to it. It fails the test if the output cannot be declared.
func Attach[T any](t *testing.T, p *stagez.Pipeline[T], index int, name stagez.Name) *Recorder[T] {
	t.Helper()
	rec := NewRecorder[T]()
	if err := stagez.AddOutput[T](p, index, name, stagez.Render(func(v T) T { return v })); err != nil {
		t.Fatalf("declaring output %s: %v", name, err)
	}
	if err := stagez.Out[T](p, name, rec.Sink()); err != nil {
		t.Fatalf("connecting output %s: %v", name, err)
	}
	return rec
}

// Assertion Helpers

// AssertProcessed verifies that a mock stage was called exactly n times.
func AssertProcessed[T any](t *testing.T, mock *MockStage[T], expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock stage %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotProcessed verifies that a mock stage was never called.
func AssertNotProcessed[T any](t *testing.T, mock *MockStage[T]) {
	t.Helper()
	AssertProcessed(t, mock, 0)
}

// AssertProcessedWith verifies that a mock stage was last called with specific input.
func AssertProcessedWith[T comparable](t *testing.T, mock *MockStage[T], expectedInput T) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock stage %s to be called with input %v, but it was never called",
			mock.name, expectedInput)
		return
	}

	actualInput := mock.LastInput()
	if actualInput != expectedInput {
		t.Errorf("expected mock stage %s to be called with input %v, but was called with %v",
			mock.name, expectedInput, actualInput)
	}
}

// AssertProcessedBetween verifies that a mock stage was called between min and max times.
func AssertProcessedBetween[T any](t *testing.T, mock *MockStage[T], minCalls, maxCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls < minCalls || actualCalls > maxCalls {
		t.Errorf("expected mock stage %s to be called between %d and %d times, but was called %d times",
			mock.name, minCalls, maxCalls, actualCalls)
	}
}

// AssertReceived verifies that a recorder received exactly the expected values in order.
func AssertReceived[O any](t *testing.T, rec *Recorder[O], expected ...O) {
	t.Helper()
	actual := rec.Values()
	if len(expected) == 0 && len(actual) == 0 {
		return
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected recorder to receive %v, but received %v", expected, actual)
	}
}

// AssertTopology verifies a pipeline's rendered topology.
func AssertTopology[T any](t *testing.T, p *stagez.Pipeline[T], expected string) {
	t.Helper()
	if actual := p.DescribeTopology(); actual != expected {
		t.Errorf("expected topology %q, got %q", expected, actual)
	}
}

// ChaosStage introduces controlled drops, delays and panics for chaos
// testing. It wraps another stage and randomly interferes based on
// configured rates.
type ChaosStage[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	name         string
	wrapped      stagez.Factory[T]
	dropRate     float64
	latencyMin   time.Duration
	latencyMax   time.Duration
	panicRate    float64
	rng          *mathrand.Rand
	mu           sync.Mutex
	totalCalls   int64
	droppedCalls int64
	panicCalls   int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	DropRate   float64       // Probability of dropping the value (0.0 to 1.0)
	LatencyMin time.Duration // Minimum additional latency to inject
	LatencyMax time.Duration // Maximum additional latency to inject
	PanicRate  float64       // Probability of panicking (0.0 to 1.0)
	Seed       int64         // Random seed for reproducible chaos (0 for random seed)
}

// NewChaosStage creates a chaos stage that wraps another stage factory.
// A nil wrapped factory behaves as a passthrough.
func NewChaosStage[T any](name string, wrapped stagez.Factory[T], config ChaosConfig) *ChaosStage[T] {
	seed := config.Seed
	if seed == 0 {
		// Use crypto/rand for better randomness
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			// Fallback to time-based seed if crypto/rand fails
			seed = time.Now().UnixNano()
		} else {
			seed = int64(seedBytes[0])<<56 | int64(seedBytes[1])<<48 | int64(seedBytes[2])<<40 | int64(seedBytes[3])<<32 |
				int64(seedBytes[4])<<24 | int64(seedBytes[5])<<16 | int64(seedBytes[6])<<8 | int64(seedBytes[7])
		}
	}
	if wrapped == nil {
		wrapped = stagez.Passthrough[T]()
	}

	return &ChaosStage[T]{
		name:       name,
		wrapped:    wrapped,
		dropRate:   config.DropRate,
		latencyMin: config.LatencyMin,
		latencyMax: config.LatencyMax,
		panicRate:  config.PanicRate,
		rng:        mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: Test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Name returns the name of the chaos stage.
func (c *ChaosStage[T]) Name() stagez.Name {
	return c.name
}

// Factory returns the chaos-injecting stage factory.
func (c *ChaosStage[T]) Factory() stagez.Factory[T] {
	return func(next stagez.Next[T]) stagez.ProcessorFunc[T] {
		inner := c.wrapped(next)
		return func(ctx context.Context, data T) {
			c.process(ctx, inner, data)
		}
	}
}

func (c *ChaosStage[T]) process(ctx context.Context, inner stagez.ProcessorFunc[T], data T) {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	if c.rng.Float64() < c.panicRate {
		c.mu.Unlock()
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos stage induced panic")
	}

	var latency time.Duration
	if c.latencyMax > c.latencyMin {
		latencyRange := c.latencyMax - c.latencyMin
		latency = c.latencyMin + time.Duration(c.rng.Int63n(int64(latencyRange)))
	} else if c.latencyMin > 0 {
		latency = c.latencyMin
	}

	injectDrop := c.rng.Float64() < c.dropRate
	c.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			atomic.AddInt64(&c.droppedCalls, 1)
			return
		}
	}

	if injectDrop {
		atomic.AddInt64(&c.droppedCalls, 1)
		return
	}
	if inner != nil {
		inner(ctx, data)
	}
}

// Stats returns statistics about chaos injection.
func (c *ChaosStage[T]) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:   atomic.LoadInt64(&c.totalCalls),
		DroppedCalls: atomic.LoadInt64(&c.droppedCalls),
		PanicCalls:   atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls   int64
	DroppedCalls int64
	PanicCalls   int64
}

// DropRate returns the actual drop rate observed.
func (s ChaosStats) DropRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.DroppedCalls) / float64(s.TotalCalls)
}

// PanicRate returns the actual panic rate observed.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Dropped: %d (%.1f%%), Panics: %d (%.1f%%)}",
		s.TotalCalls, s.DroppedCalls, s.DropRate()*100,
		s.PanicCalls, s.PanicRate()*100)
}

// Helper Functions

// WaitForCalls waits for a mock stage to be called at least n times,
// with a timeout. Returns true if the expected calls were reached.
func WaitForCalls[T any](mock *MockStage[T], expectedCalls int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if mock.CallCount() >= expectedCalls {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForValues waits for a recorder to receive at least n values, with a
// timeout. Returns true if the expected count was reached.
func WaitForValues[O any](rec *Recorder[O], expected int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if rec.Count() >= expected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// ParallelTest runs a test function in parallel with multiple goroutines.
// Useful for testing concurrent pushes into a pipeline.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}

// MeasureLatency measures the latency of a function call.
func MeasureLatency(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}
