// Package pipeline instantiates and runs one pipeline's node DAG: it
// allocates one control channel per node and one data channel per
// node's fan-in, wires EffectHandler outputs to downstream inputs, spawns
// one goroutine per node, and drives the broadcast-Shutdown/await-drain
// sequence. Grounded on `internal/msgchannel`'s fused-recv contract (which
// this package drives in the Processor/Exporter loop) and on
// `internal/effect.New`'s output-map construction.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/effect"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
	"github.com/otelcol-arrow-dataflow/engine/internal/msgchannel"
	"github.com/otelcol-arrow-dataflow/engine/internal/node"
	"github.com/otelcol-arrow-dataflow/engine/internal/observed"
	"github.com/otelcol-arrow-dataflow/engine/internal/policy"
	"github.com/otelcol-arrow-dataflow/engine/internal/werror"
)

// NodeSpec describes one DAG node. Exactly one of Receiver/Processor/
// Exporter is populated, matching Kind.
type NodeSpec[PData any] struct {
	ID          node.NodeId
	Kind        node.Kind
	Flavor      node.Flavor
	Receiver    node.Receiver[PData]
	Processor   node.Processor[PData]
	Exporter    node.Exporter[PData]
	DefaultPort node.PortName
}

// EdgeSpec connects an upstream node's output port to a downstream node's
// single fan-in input. Multiple edges may target the same To node; they
// share one underlying channel via Sender.Clone.
type EdgeSpec struct {
	From     node.NodeId
	FromPort node.PortName
	To       node.NodeId
}

// Spec is everything needed to build a runnable Pipeline.
type Spec[PData any] struct {
	ID    string
	Nodes []NodeSpec[PData]
	Edges []EdgeSpec
}

type nodeRuntime[PData any] struct {
	id          node.NodeId
	kind        node.Kind
	spec        NodeSpec[PData]
	controlSend chanpipe.Sender[message.ControlMsg]
	controlRecv chanpipe.Receiver[message.ControlMsg]
	dataSend    chanpipe.Sender[PData]
	dataRecv    chanpipe.Receiver[PData]
	eh          *effect.Handler[PData]
	err         error
}

// Pipeline is one running instance of a node DAG.
type Pipeline[PData any] struct {
	id      string
	logger  *zap.Logger
	store   *observed.Store
	nodes   map[node.NodeId]*nodeRuntime[PData]
	order   []node.NodeId
	wg      sync.WaitGroup
	started bool
}

// Build wires spec's nodes and edges into a Pipeline, ready for Start.
// It does not validate that every configured output port is actually
// connected — an unused port only fails at send time, never at link
// time.
func Build[PData any](spec Spec[PData], policies policy.Resolved, store *observed.Store, logger *zap.Logger) (*Pipeline[PData], error) {
	p := &Pipeline[PData]{
		id:     spec.ID,
		logger: logger,
		store:  store,
		nodes:  map[node.NodeId]*nodeRuntime[PData]{},
	}

	for _, ns := range spec.Nodes {
		if _, dup := p.nodes[ns.ID]; dup {
			return nil, werror.Wrap(fmt.Errorf("pipeline: duplicate node id %q", ns.ID))
		}
		ctrlSend, ctrlRecv := chanpipe.NewLocal[message.ControlMsg](16)

		capacity := policies.CapacityFor(string(ns.ID))
		var dataSend chanpipe.Sender[PData]
		var dataRecv chanpipe.Receiver[PData]
		if ns.Flavor == node.FlavorShared {
			dataSend, dataRecv = chanpipe.NewShared[PData](capacity, 0)
		} else {
			dataSend, dataRecv = chanpipe.NewLocal[PData](capacity)
		}

		p.nodes[ns.ID] = &nodeRuntime[PData]{
			id:          ns.ID,
			kind:        ns.Kind,
			spec:        ns,
			controlSend: ctrlSend,
			controlRecv: ctrlRecv,
			dataSend:    dataSend,
			dataRecv:    dataRecv,
		}
		p.order = append(p.order, ns.ID)
	}

	outputs := map[node.NodeId]map[node.PortName]chanpipe.Sender[PData]{}
	for _, e := range spec.Edges {
		if _, ok := p.nodes[e.From]; !ok {
			return nil, werror.Wrap(fmt.Errorf("pipeline: edge references unknown node %q", e.From))
		}
		target, ok := p.nodes[e.To]
		if !ok {
			return nil, werror.Wrap(fmt.Errorf("pipeline: edge references unknown node %q", e.To))
		}
		if outputs[e.From] == nil {
			outputs[e.From] = map[node.PortName]chanpipe.Sender[PData]{}
		}
		outputs[e.From][e.FromPort] = target.dataSend.Clone()
	}

	for id, rt := range p.nodes {
		rt.eh = effect.New(id, logger, outputs[id], rt.spec.DefaultPort, rt.controlSend.Clone())
	}

	return p, nil
}

// Start spawns one goroutine per node and returns immediately; node
// exits are tracked internally and observed into store.
func (p *Pipeline[PData]) Start(ctx context.Context) {
	p.started = true
	for _, id := range p.order {
		rt := p.nodes[id]
		p.store.Record(observed.Event{PipelineID: p.id, NodeID: string(id), Kind: observed.EventAdmitted})
		p.wg.Add(1)
		go p.runNode(ctx, rt)
	}
}

func (p *Pipeline[PData]) runNode(ctx context.Context, rt *nodeRuntime[PData]) {
	defer p.wg.Done()

	p.store.Record(observed.Event{PipelineID: p.id, NodeID: string(rt.id), Kind: observed.EventReady})

	var err error
	switch rt.kind {
	case node.KindReceiver:
		err = rt.spec.Receiver.Start(ctx, rt.controlRecv, rt.eh)
	case node.KindProcessor, node.KindProcessorChain:
		err = p.runProcessor(ctx, rt)
	case node.KindExporter:
		err = p.runExporter(ctx, rt)
	default:
		err = fmt.Errorf("pipeline: unsupported node kind %v", rt.kind)
	}

	rt.err = err
	if err != nil {
		p.store.Record(observed.Event{PipelineID: p.id, NodeID: string(rt.id), Kind: observed.EventRuntimeError, Detail: err.Error()})
		return
	}
	p.store.Record(observed.Event{PipelineID: p.id, NodeID: string(rt.id), Kind: observed.EventDrained})
}

func (p *Pipeline[PData]) runProcessor(ctx context.Context, rt *nodeRuntime[PData]) error {
	mc := msgchannel.New[PData](ctx, rt.controlRecv, rt.dataRecv)
	for {
		msg, ok := mc.Recv(ctx)
		if !ok {
			return nil
		}
		if err := rt.spec.Processor.Process(ctx, msg, rt.eh); err != nil {
			return err
		}
	}
}

func (p *Pipeline[PData]) runExporter(ctx context.Context, rt *nodeRuntime[PData]) error {
	mc := msgchannel.New[PData](ctx, rt.controlRecv, rt.dataRecv)
	_, err := rt.spec.Exporter.Start(ctx, mc.Recv, rt.eh)
	return err
}

// Shutdown broadcasts a Shutdown control message (with the given drain
// deadline) to every node and waits for all node goroutines to finish or
// for deadline to elapse, whichever comes first.
func (p *Pipeline[PData]) Shutdown(ctx context.Context, deadline time.Duration, reason string) error {
	p.store.Record(observed.Event{PipelineID: p.id, Kind: observed.EventShutdownRequested, Detail: reason})

	shutdown := message.ShutdownCtrlMsg[PData](deadline, reason).Control
	for _, id := range p.order {
		_ = p.nodes[id].controlSend.Send(ctx, shutdown)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	waitCtx := ctx
	var cancel context.CancelFunc
	if deadline > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	select {
	case <-done:
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("pipeline %q: shutdown deadline exceeded before all nodes drained", p.id)
	}
}

// Close releases every node's channel handles and emits a Deleted event
// per node plus the pipeline itself.
func (p *Pipeline[PData]) Close() {
	for _, id := range p.order {
		rt := p.nodes[id]
		rt.controlSend.Close()
		rt.dataSend.Close()
		p.store.Record(observed.Event{PipelineID: p.id, NodeID: string(id), Kind: observed.EventDeleted})
	}
	p.store.Record(observed.Event{PipelineID: p.id, Kind: observed.EventDeleted})
}

// ID returns the pipeline's identifier, as given in its Spec.
func (p *Pipeline[PData]) ID() string { return p.id }

// NodeIDs returns every node id in build order, for phase aggregation
// queries against the observed store.
func (p *Pipeline[PData]) NodeIDs() []string {
	out := make([]string, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, string(id))
	}
	return out
}
