// Package msgchannel implements the fused control+data receiver:
// a single recv() that biases control messages over data, and on a
// draining Shutdown discards further control while delivering in-flight
// data up to a deadline.
package msgchannel

import (
	"context"
	"time"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
)

type state int

const (
	stateNormal state = iota
	stateDraining
	stateClosed
)

// MessageChannel fuses a control Receiver and a data Receiver into one
// recv() with biased priority and drain-on-shutdown semantics.
//
// Each underlying receiver is pumped by exactly one background goroutine
// for the lifetime of the MessageChannel, feeding two internal channels;
// Recv selects over those rather than calling chanpipe.Receiver.Recv
// directly on every call, which would require a fresh goroutine per call
// and risk two concurrent readers racing for the same item.
type MessageChannel[PData any] struct {
	controlCh chan message.ControlMsg
	dataCh    chan PData

	st              state
	pendingShutdown message.ControlMsg
	deadlineAt      time.Time
}

// New wires a control and data receiver into a MessageChannel and starts
// the pump goroutines. ctx bounds the pumps' lifetime; callers should
// cancel it when the owning node exits.
func New[PData any](ctx context.Context, control chanpipe.Receiver[message.ControlMsg], data chanpipe.Receiver[PData]) *MessageChannel[PData] {
	m := &MessageChannel[PData]{
		controlCh: make(chan message.ControlMsg),
		dataCh:    make(chan PData),
		st:        stateNormal,
	}
	go pump(ctx, control, m.controlCh)
	go pump(ctx, data, m.dataCh)
	return m
}

func pump[T any](ctx context.Context, r chanpipe.Receiver[T], out chan<- T) {
	defer close(out)
	for {
		v, ok := r.Recv(ctx)
		if !ok {
			return
		}
		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}

// Recv returns the next message, applying the Normal/Draining/Closed
// state machine described above.
func (m *MessageChannel[PData]) Recv(ctx context.Context) (message.Message[PData], bool) {
	switch m.st {
	case stateClosed:
		var zero message.Message[PData]
		return zero, false

	case stateNormal:
		// Bias: check control first without blocking.
		select {
		case ctrl, ok := <-m.controlCh:
			if !ok {
				return m.latchImmediateShutdownFromClosedControl(ctx)
			}
			return m.handleControl(ctx, ctrl)
		default:
		}

		select {
		case ctrl, ok := <-m.controlCh:
			if !ok {
				return m.latchImmediateShutdownFromClosedControl(ctx)
			}
			return m.handleControl(ctx, ctrl)
		case d, ok := <-m.dataCh:
			if !ok {
				m.st = stateClosed
				var zero message.Message[PData]
				return zero, false
			}
			return message.DataMsg(d), true
		case <-ctx.Done():
			var zero message.Message[PData]
			return zero, false
		}

	default: // stateDraining
		drainCtx := ctx
		var cancel context.CancelFunc
		if !m.deadlineAt.IsZero() {
			drainCtx, cancel = context.WithDeadline(ctx, m.deadlineAt)
		}
		defer func() {
			if cancel != nil {
				cancel()
			}
		}()
		// Control is discarded while draining: the control channel is
		// not read at all in this state, so no control value is returned.
		select {
		case d, ok := <-m.dataCh:
			if !ok {
				return m.emitLatchedShutdown()
			}
			return message.DataMsg(d), true
		case <-drainCtx.Done():
			return m.emitLatchedShutdown()
		}
	}
}

func (m *MessageChannel[PData]) handleControl(ctx context.Context, ctrl message.ControlMsg) (message.Message[PData], bool) {
	if ctrl.Kind != message.ControlShutdown {
		return message.Message[PData]{Kind: message.KindControl, Control: ctrl}, true
	}
	if ctrl.Deadline == 0 {
		m.st = stateClosed
		return message.Message[PData]{Kind: message.KindControl, Control: ctrl}, true
	}
	m.pendingShutdown = ctrl
	m.deadlineAt = time.Now().Add(ctrl.Deadline)
	m.st = stateDraining
	return m.Recv(ctx)
}

func (m *MessageChannel[PData]) latchImmediateShutdownFromClosedControl(ctx context.Context) (message.Message[PData], bool) {
	// The control channel closed without an explicit Shutdown: treat as
	// an immediate shutdown so Recv eventually terminates.
	m.st = stateClosed
	return message.Message[PData]{Kind: message.KindControl, Control: message.ControlMsg{Kind: message.ControlShutdown, Deadline: 0}}, true
}

func (m *MessageChannel[PData]) emitLatchedShutdown() (message.Message[PData], bool) {
	shutdown := m.pendingShutdown
	m.st = stateClosed
	return message.Message[PData]{Kind: message.KindControl, Control: shutdown}, true
}
