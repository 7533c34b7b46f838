// Node lifecycle trait definitions. Receiver, Processor, and
// Exporter are uniform async contracts parameterized by the pdata type;
// each has a Flavor (Local or Shared) selected at factory-registration
// time, mirroring go.opentelemetry.io/collector's own
// receiver/processor/exporter package split without inheriting its wire
// protocol concerns.
package node

import (
	"context"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
)

// Flavor selects the concurrency discipline a node implementation
// requires. Go has no compile-time Send/!Send distinction; the pipeline
// runtime (C7) reads Flavor only to choose the node's input channel
// implementation (chanpipe.NewLocal or chanpipe.NewShared). Every node
// runs as an ordinary goroutine whichever Flavor it has.
type Flavor int

const (
	FlavorLocal Flavor = iota
	FlavorShared
)

// EffectHandler is the capability surface every node receives; defined
// here as an interface (rather than importing package effect directly)
// to avoid a dependency cycle between node and effect, and because
// factories only need to depend on the capability shape, not its
// concrete implementation.
type EffectHandler[PData any] interface {
	SendMessage(ctx context.Context, data PData) error
	SendMessageTo(ctx context.Context, port PortName, data PData) error
	ConnectedPorts() []PortName
	Info(msg string, fields ...any)
}

// Receiver owns an async loop that biases control messages and exits on
// Shutdown; externally sourced data enters via side channels held by the
// receiver's own EffectHandler-derived resources.
type Receiver[PData any] interface {
	Flavor() Flavor
	Start(ctx context.Context, controlRx chanpipe.Receiver[message.ControlMsg], eh EffectHandler[PData]) error
}

// Processor is a pure per-message callback; the engine owns the loop and
// decides task granularity.
type Processor[PData any] interface {
	Flavor() Flavor
	Process(ctx context.Context, msg message.Message[PData], eh EffectHandler[PData]) error
}

// TerminalState is returned by Exporter.Start on graceful exit, carrying
// enough information for the pipeline runtime to emit the right observed
// event.
type TerminalState struct {
	Reason string
}

// Exporter owns its loop and receives fused control+data; it terminates
// the pipeline by sending data outside the process.
type Exporter[PData any] interface {
	Flavor() Flavor
	Start(ctx context.Context, recv func(context.Context) (message.Message[PData], bool), eh EffectHandler[PData]) (TerminalState, error)
}
