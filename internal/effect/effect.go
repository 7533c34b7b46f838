// Package effect implements EffectHandler: the per-node
// capability object used to send to named output ports, start timers,
// log, and (for receivers) acquire external resources such as listeners.
package effect

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/collector/config/configgrpc"
	"go.uber.org/zap"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

// TimerCancelHandle cancels a periodic timer started via StartPeriodicTimer.
// Cancellation is idempotent.
type TimerCancelHandle struct {
	once   sync.Once
	cancel context.CancelFunc
}

// Cancel stops the timer. Safe to call more than once or concurrently.
func (h *TimerCancelHandle) Cancel() {
	h.once.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
}

// Handler is the EffectHandler implementation shared by both the local
// and shared node flavors; the flavors differ only in the
// Send+Sync-ness of the underlying chanpipe senders, which Go does not
// distinguish at the type level, so a single struct serves both.
type Handler[PData any] struct {
	nodeID        node.NodeId
	logger        *zap.Logger
	outputs       map[node.PortName]chanpipe.Sender[PData]
	defaultSender chanpipe.Sender[PData]
	controlOut    chanpipe.Sender[message.ControlMsg]

	mu     sync.Mutex
	timers []*TimerCancelHandle
}

// New builds an EffectHandler for a node. defaultPort, if non-empty and
// present in outputs, is used to resolve SendMessage when more than one
// port is connected; with exactly one connected port the cached default
// is filled automatically regardless of defaultPort.
func New[PData any](id node.NodeId, logger *zap.Logger, outputs map[node.PortName]chanpipe.Sender[PData], defaultPort node.PortName, controlOut chanpipe.Sender[message.ControlMsg]) *Handler[PData] {
	h := &Handler[PData]{
		nodeID:     id,
		logger:     logger,
		outputs:    outputs,
		controlOut: controlOut,
	}
	if len(outputs) == 1 {
		for _, s := range outputs {
			h.defaultSender = s
		}
	} else if defaultPort != "" {
		h.defaultSender = outputs[defaultPort]
	}
	return h
}

// ConnectedPorts returns the names of every connected output port.
func (h *Handler[PData]) ConnectedPorts() []node.PortName {
	ports := make([]node.PortName, 0, len(h.outputs))
	for p := range h.outputs {
		ports = append(ports, p)
	}
	return ports
}

// SendMessage sends to the default output port.
func (h *Handler[PData]) SendMessage(ctx context.Context, data PData) error {
	if h.defaultSender == nil {
		return node.ErrAmbiguousDefaultPort()
	}
	return h.defaultSender.Send(ctx, data)
}

// SendMessageTo sends to a named output port.
func (h *Handler[PData]) SendMessageTo(ctx context.Context, port node.PortName, data PData) error {
	sender, ok := h.outputs[port]
	if !ok {
		return node.ErrUnknownPort(port)
	}
	return sender.Send(ctx, data)
}

// Info emits a non-blocking diagnostic log line. kv is an alternating
// key/value list (matching the node.EffectHandler interface shape, which
// stays logging-library-agnostic); pairs are rendered via zap.Any.
func (h *Handler[PData]) Info(msg string, kv ...any) {
	fields := make([]zap.Field, 0, len(kv)/2+1)
	fields = append(fields, zap.String("node_id", string(h.nodeID)))
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	h.logger.Info(msg, fields...)
}

// StartPeriodicTimer starts emitting TimerTick control messages on the
// node's control channel every d, until the returned handle is cancelled.
func (h *Handler[PData]) StartPeriodicTimer(ctx context.Context, d time.Duration) *TimerCancelHandle {
	timerCtx, cancel := context.WithCancel(ctx)
	handle := &TimerCancelHandle{cancel: cancel}

	h.mu.Lock()
	h.timers = append(h.timers, handle)
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-timerCtx.Done():
				return
			case <-ticker.C:
				if err := h.controlOut.Send(timerCtx, message.TimerTickCtrlMsg[PData]().Control); err != nil {
					return
				}
			}
		}
	}()
	return handle
}

// CancelAllTimers cancels every timer started through this handler; used
// during node teardown.
func (h *Handler[PData]) CancelAllTimers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.timers {
		t.Cancel()
	}
}

// TCPListener acquires a TCP listener for a receiver node from cfg's
// network address, wrapping it in TLS when cfg.TLSSetting is configured,
// the same `GRPCServerSettings` shape `receiver/otelarrowreceiver` embeds
// in its own config rather than a bespoke address string. Returns an
// explicit release closure in place of Drop-based RAII: the caller must
// invoke release when done, typically via defer.
func (h *Handler[PData]) TCPListener(ctx context.Context, cfg configgrpc.GRPCServerSettings) (net.Listener, func(), error) {
	ln, err := cfg.NetAddr.Listen(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cfg.TLSSetting != nil {
		tlsCfg, err := cfg.TLSSetting.LoadTLSConfig()
		if err != nil {
			_ = ln.Close()
			return nil, nil, err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}
	release := func() {
		_ = ln.Close()
	}
	return ln, release, nil
}
