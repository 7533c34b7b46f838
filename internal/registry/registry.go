package registry

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/collector/component"

	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

// ReceiverFactory builds a Receiver from a component.TelemetrySettings
// (the logger/meter/tracer bundle every collector component factory
// receives) and a JSON config blob.
type ReceiverFactory[PData any] func(settings component.TelemetrySettings, rawConfig []byte) (node.Receiver[PData], error)

// ProcessorFactory builds a Processor from a component.TelemetrySettings
// and a JSON config blob.
type ProcessorFactory[PData any] func(settings component.TelemetrySettings, rawConfig []byte) (node.Processor[PData], error)

// ExporterFactory builds an Exporter from a component.TelemetrySettings
// and a JSON config blob.
type ExporterFactory[PData any] func(settings component.TelemetrySettings, rawConfig []byte) (node.Exporter[PData], error)

// ErrUnknownReceiver/Processor/Exporter/UnsupportedNodeKind are the
// fixed error kinds BuildReceiver/BuildProcessor/BuildExporter return.
type (
	ErrUnknownReceiver     struct{ URN string }
	ErrUnknownProcessor    struct{ URN string }
	ErrUnknownExporter     struct{ URN string }
	ErrUnsupportedNodeKind struct{ Kind node.Kind }
)

func (e *ErrUnknownReceiver) Error() string  { return fmt.Sprintf("unknown receiver %q", e.URN) }
func (e *ErrUnknownProcessor) Error() string { return fmt.Sprintf("unknown processor %q", e.URN) }
func (e *ErrUnknownExporter) Error() string  { return fmt.Sprintf("unknown exporter %q", e.URN) }
func (e *ErrUnsupportedNodeKind) Error() string {
	return fmt.Sprintf("unsupported node kind %q", e.Kind.String())
}

// FactoryRegistry is a process-wide, once-published URN->factory map for
// one pdata type, matching the "OnceLock-style one-shot initialization"
// called for in the (Shared-resource policy).
type FactoryRegistry[PData any] struct {
	mu         sync.RWMutex
	receivers  map[string]ReceiverFactory[PData]
	processors map[string]ProcessorFactory[PData]
	exporters  map[string]ExporterFactory[PData]
	published  bool
}

// NewFactoryRegistry creates an empty, mutable registry. Call Publish once
// registration is complete; thereafter Register* calls are rejected, and
// the registry is safe for concurrent read-only use by many pipelines.
func NewFactoryRegistry[PData any]() *FactoryRegistry[PData] {
	return &FactoryRegistry[PData]{
		receivers:  map[string]ReceiverFactory[PData]{},
		processors: map[string]ProcessorFactory[PData]{},
		exporters:  map[string]ExporterFactory[PData]{},
	}
}

func (f *FactoryRegistry[PData]) RegisterReceiver(urn string, factory ReceiverFactory[PData]) error {
	canon, err := Canonicalize(urn)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published {
		return fmt.Errorf("registry: already published, cannot register %q", canon)
	}
	f.receivers[canon] = factory
	return nil
}

func (f *FactoryRegistry[PData]) RegisterProcessor(urn string, factory ProcessorFactory[PData]) error {
	canon, err := Canonicalize(urn)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published {
		return fmt.Errorf("registry: already published, cannot register %q", canon)
	}
	f.processors[canon] = factory
	return nil
}

func (f *FactoryRegistry[PData]) RegisterExporter(urn string, factory ExporterFactory[PData]) error {
	canon, err := Canonicalize(urn)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published {
		return fmt.Errorf("registry: already published, cannot register %q", canon)
	}
	f.exporters[canon] = factory
	return nil
}

// Publish freezes the registry against further registration. Read-only
// lookups remain safe for concurrent use afterward.
func (f *FactoryRegistry[PData]) Publish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = true
}

// BuildReceiver, BuildProcessor, and BuildExporter look up and invoke the
// factory for a canonicalized URN plus expected kind, returning one of
// the fixed error kinds above on mismatch. settings is forwarded to the
// factory unchanged, the same way collector.Factory.CreateXReceiver
// forwards its component.TelemetrySettings to the concrete receiver
// constructor.
func (f *FactoryRegistry[PData]) BuildReceiver(settings component.TelemetrySettings, urn string, rawConfig []byte) (node.Receiver[PData], error) {
	u, err := ParseURN(urn)
	if err != nil {
		return nil, err
	}
	if u.Kind != node.KindReceiver {
		return nil, &ErrUnsupportedNodeKind{Kind: u.Kind}
	}
	f.mu.RLock()
	factory, ok := f.receivers[u.String()]
	f.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownReceiver{URN: u.String()}
	}
	return factory(settings, rawConfig)
}

func (f *FactoryRegistry[PData]) BuildProcessor(settings component.TelemetrySettings, urn string, rawConfig []byte) (node.Processor[PData], error) {
	u, err := ParseURN(urn)
	if err != nil {
		return nil, err
	}
	if u.Kind != node.KindProcessor && u.Kind != node.KindProcessorChain {
		return nil, &ErrUnsupportedNodeKind{Kind: u.Kind}
	}
	f.mu.RLock()
	factory, ok := f.processors[u.String()]
	f.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownProcessor{URN: u.String()}
	}
	return factory(settings, rawConfig)
}

func (f *FactoryRegistry[PData]) BuildExporter(settings component.TelemetrySettings, urn string, rawConfig []byte) (node.Exporter[PData], error) {
	u, err := ParseURN(urn)
	if err != nil {
		return nil, err
	}
	if u.Kind != node.KindExporter {
		return nil, &ErrUnsupportedNodeKind{Kind: u.Kind}
	}
	f.mu.RLock()
	factory, ok := f.exporters[u.String()]
	f.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownExporter{URN: u.String()}
	}
	return factory(settings, rawConfig)
}
