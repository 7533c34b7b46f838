// Package telemetry implements the entity and metric-set registries
// nodes use to expose themselves and their counters to the engine's
// self-observability surface. Instruments are built on
// go.opentelemetry.io/otel/metric's Meter, grounded on
// `receiver/otelarrowreceiver/internal/arrow/arrow.go`'s
// meter.Int64UpDownCounter in-flight-metric construction and on
// `gen/internal/netstats`'s configtelemetry.Level-gated instrument
// creation; readback is grounded on `netstats_test.go`'s
// metricValues helper (a sdkmetric.ManualReader collected and walked by
// type-asserting metricdata.Sum[int64]). Entity lifecycle management
// (RegisterEntity/Guard) follows `internal/effect`'s RAII-by-closure
// convention (TCPListener returns a release func in place of Rust's Drop).
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/collector/config/configtelemetry"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/multierr"
)

// EntityKey identifies one registered entity (a node, a pipeline, a
// core) in the registry; it also names the entity's otel/metric Meter
// scope, so Snapshot can recover exactly the metrics one entity owns.
type EntityKey string

// Counter is a monotonically-increasing metric handle backed by an
// otel/metric Int64Counter. The zero value is a valid no-op counter,
// produced when the registry's configured level gates the metric out
// (mirroring NetworkReporter's nil-receiver no-op in netstats.go).
type Counter struct{ inst metric.Int64Counter }

// Add increments the counter by delta. delta must be non-negative;
// negative deltas are clamped to zero.
func (c Counter) Add(ctx context.Context, delta int64, attrs ...metric.AddOption) {
	if c.inst == nil {
		return
	}
	if delta < 0 {
		delta = 0
	}
	c.inst.Add(ctx, delta, attrs...)
}

// Gauge is a metric handle that can move up or down, backed by an
// otel/metric Int64UpDownCounter — the same instrument the teacher uses
// for its in-flight-bytes/items/requests gauges (arrow.go) and its
// active-span gauge (otelkit.go), since otel/metric has no synchronous
// settable gauge instrument.
type Gauge struct{ inst metric.Int64UpDownCounter }

// Add applies delta to the gauge; delta may be negative.
func (g Gauge) Add(ctx context.Context, delta int64, attrs ...metric.AddOption) {
	if g.inst == nil {
		return
	}
	g.inst.Add(ctx, delta, attrs...)
}

// MetricSpec names one instrument to register in a batch call.
type MetricSpec struct {
	Name        string
	Description string
	Unit        string
}

func (s MetricSpec) counterOpts() []metric.Int64CounterOption {
	var opts []metric.Int64CounterOption
	if s.Description != "" {
		opts = append(opts, metric.WithDescription(s.Description))
	}
	if s.Unit != "" {
		opts = append(opts, metric.WithUnit(s.Unit))
	}
	return opts
}

func (s MetricSpec) gaugeOpts() []metric.Int64UpDownCounterOption {
	var opts []metric.Int64UpDownCounterOption
	if s.Description != "" {
		opts = append(opts, metric.WithDescription(s.Description))
	}
	if s.Unit != "" {
		opts = append(opts, metric.WithUnit(s.Unit))
	}
	return opts
}

// Registry is the process-wide entity registry and otel/metric
// MeterProvider: each registered EntityKey gets its own Meter scope
// (provider.Meter(string(key))), so Snapshot can recover a single
// entity's metrics by filtering ScopeMetrics on Scope.Name, exactly as
// netstats_test.go's metricValues helper walks one ResourceMetrics.
type Registry struct {
	level    configtelemetry.Level
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader

	mu       sync.Mutex
	entities map[EntityKey]struct{}
}

// NewRegistry builds an empty registry whose instruments report through
// an in-process sdkmetric.ManualReader, collected on demand by Snapshot.
// level gates instrument creation the way NewReceiverNetworkReporter
// gates NetworkReporter construction: at configtelemetry.LevelNone,
// NewCounter/NewGauge return no-op handles instead of real instruments.
func NewRegistry(level configtelemetry.Level) *Registry {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Registry{
		level:    level,
		provider: provider,
		reader:   reader,
		entities: map[EntityKey]struct{}{},
	}
}

// RegisterEntity admits a new entity key. Re-registering an already-known
// key is a no-op.
func (r *Registry) RegisterEntity(key EntityKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[key] = struct{}{}
}

// UnregisterEntity removes an entity key; its Meter scope is left in
// place (otel/metric has no instrument-removal API) but Snapshot stops
// being called for it once the owning node tears down.
func (r *Registry) UnregisterEntity(key EntityKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, key)
}

// Entities returns the currently-registered entity keys.
func (r *Registry) Entities() []EntityKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntityKey, 0, len(r.entities))
	for k := range r.entities {
		out = append(out, k)
	}
	return out
}

func (r *Registry) hasEntity(key EntityKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entities[key]
	return ok
}

func (r *Registry) meter(key EntityKey) metric.Meter {
	return r.provider.Meter(string(key))
}

// NewCounter registers a named counter instrument under key.
func (r *Registry) NewCounter(key EntityKey, spec MetricSpec) (Counter, error) {
	if r.level <= configtelemetry.LevelNone {
		return Counter{}, nil
	}
	if !r.hasEntity(key) {
		return Counter{}, fmt.Errorf("telemetry: unknown entity %q", key)
	}
	inst, err := r.meter(key).Int64Counter(spec.Name, spec.counterOpts()...)
	if err != nil {
		return Counter{}, err
	}
	return Counter{inst: inst}, nil
}

// NewGauge registers a named up/down instrument under key.
func (r *Registry) NewGauge(key EntityKey, spec MetricSpec) (Gauge, error) {
	if r.level <= configtelemetry.LevelNone {
		return Gauge{}, nil
	}
	if !r.hasEntity(key) {
		return Gauge{}, fmt.Errorf("telemetry: unknown entity %q", key)
	}
	inst, err := r.meter(key).Int64UpDownCounter(spec.Name, spec.gaugeOpts()...)
	if err != nil {
		return Gauge{}, err
	}
	return Gauge{inst: inst}, nil
}

// NewCounters registers several counters under key in one call,
// aggregating any instrument-creation failures with multierr.Append —
// the same pattern arrow.go's receiver uses to build its three in-flight
// gauges, generalized here to an arbitrary spec list.
func (r *Registry) NewCounters(key EntityKey, specs ...MetricSpec) ([]Counter, error) {
	counters := make([]Counter, len(specs))
	var errs error
	for i, spec := range specs {
		c, err := r.NewCounter(key, spec)
		errs = multierr.Append(errs, err)
		counters[i] = c
	}
	return counters, errs
}

// NewGauges registers several gauges under key in one call, aggregating
// any instrument-creation failures with multierr.Append.
func (r *Registry) NewGauges(key EntityKey, specs ...MetricSpec) ([]Gauge, error) {
	gauges := make([]Gauge, len(specs))
	var errs error
	for i, spec := range specs {
		g, err := r.NewGauge(key, spec)
		errs = multierr.Append(errs, err)
		gauges[i] = g
	}
	return gauges, errs
}

// Snapshot collects every instrument currently registered on the
// provider and returns the point-in-time sums recorded under key, keyed
// by metric name. Grounded directly on netstats_test.go's metricValues
// helper: collect via the ManualReader, then walk ScopeMetrics and
// type-assert each Metric's Data as metricdata.Sum[int64] (both
// Int64Counter and Int64UpDownCounter report as Sum[int64], the latter
// with IsMonotonic false).
func (r *Registry) Snapshot(ctx context.Context, key EntityKey) (map[string]int64, error) {
	rm, err := r.reader.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != string(key) {
			continue
		}
		for _, mm := range sm.Metrics {
			sum, ok := mm.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			out[mm.Name] = total
		}
	}
	return out, nil
}

// NodeTaskContext is the task-local handle a running node holds: its own
// entity key plus any child keys (e.g. per-timer, per-connection
// sub-entities) it registers during its lifetime.
type NodeTaskContext struct {
	reg      *Registry
	Key      EntityKey
	mu       sync.Mutex
	children []EntityKey
}

// NewNodeTaskContext registers key as an entity and returns a task
// context scoped to it.
func NewNodeTaskContext(reg *Registry, key EntityKey) *NodeTaskContext {
	reg.RegisterEntity(key)
	return &NodeTaskContext{reg: reg, Key: key}
}

// RegisterChild registers an additional entity key owned by this node
// task (e.g. a per-connection sub-entity) so it is unregistered together
// with the parent.
func (c *NodeTaskContext) RegisterChild(key EntityKey) {
	c.reg.RegisterEntity(key)
	c.mu.Lock()
	c.children = append(c.children, key)
	c.mu.Unlock()
}

// Guard is the RAII-style cleanup object: calling Close unregisters the
// task's own entity key and every child key it accumulated, mirroring
// Rust's Drop via an explicit call in place of scope-exit semantics
// (same convention as effect.Handler's TCPListener release closure).
type Guard struct {
	ctx    *NodeTaskContext
	closed bool
	mu     sync.Mutex
}

// Guard returns a cleanup handle for this task context. Call Close
// (typically via defer) when the node stops.
func (c *NodeTaskContext) Guard() *Guard {
	return &Guard{ctx: c}
}

// Close unregisters the owning task's entity key and all children.
// Idempotent.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true

	g.ctx.mu.Lock()
	children := g.ctx.children
	g.ctx.mu.Unlock()

	for _, k := range children {
		g.ctx.reg.UnregisterEntity(k)
	}
	g.ctx.reg.UnregisterEntity(g.ctx.Key)
}
