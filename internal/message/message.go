// Package message defines the tagged message envelope carried on
// every node channel: either a data payload or a control command.
package message

import "time"

// Kind distinguishes the two Message variants.
type Kind int

const (
	KindData Kind = iota
	KindControl
)

// Message is the envelope carried on a node's channels. Exactly one of
// Data/Control is meaningful, selected by Kind — a tagged struct
// standing in for a closed `PData(payload) | Control(ControlMsg)` sum
// type, the same idiom used for BatchStatus/error unions elsewhere in
// this codebase.
type Message[PData any] struct {
	Kind    Kind
	Data    PData
	Control ControlMsg
}

// ControlKind enumerates the fixed control-message taxonomy.
type ControlKind int

const (
	ControlAck ControlKind = iota
	ControlNack
	ControlConfig
	ControlTimerTick
	ControlShutdown
)

// ControlMsg is the tagged control payload. Only the fields relevant to
// Kind are populated by the constructors below.
type ControlMsg struct {
	Kind ControlKind

	// Ack/Nack
	ID     uint64
	Reason string

	// Config
	ConfigJSON []byte

	// Shutdown
	Deadline time.Duration
	ShutdownReason string
}

// DataMsg wraps a data payload.
func DataMsg[PData any](data PData) Message[PData] {
	return Message[PData]{Kind: KindData, Data: data}
}

// AckCtrlMsg builds an Ack control message.
func AckCtrlMsg[PData any](id uint64) Message[PData] {
	return Message[PData]{Kind: KindControl, Control: ControlMsg{Kind: ControlAck, ID: id}}
}

// NackCtrlMsg builds a Nack control message.
func NackCtrlMsg[PData any](id uint64, reason string) Message[PData] {
	return Message[PData]{Kind: KindControl, Control: ControlMsg{Kind: ControlNack, ID: id, Reason: reason}}
}

// ConfigCtrlMsg builds a Config control message.
func ConfigCtrlMsg[PData any](configJSON []byte) Message[PData] {
	return Message[PData]{Kind: KindControl, Control: ControlMsg{Kind: ControlConfig, ConfigJSON: configJSON}}
}

// TimerTickCtrlMsg builds a TimerTick control message.
func TimerTickCtrlMsg[PData any]() Message[PData] {
	return Message[PData]{Kind: KindControl, Control: ControlMsg{Kind: ControlTimerTick}}
}

// ShutdownCtrlMsg builds a Shutdown control message. deadline=0 means
// immediate shutdown; deadline>0 is a drain deadline.
func ShutdownCtrlMsg[PData any](deadline time.Duration, reason string) Message[PData] {
	return Message[PData]{Kind: KindControl, Control: ControlMsg{Kind: ControlShutdown, Deadline: deadline, ShutdownReason: reason}}
}

// IsShutdown reports whether m is a Shutdown control message, in O(1).
func (m Message[PData]) IsShutdown() bool {
	return m.Kind == KindControl && m.Control.Kind == ControlShutdown
}

// IsImmediate reports whether a Shutdown message requests immediate
// (non-draining) shutdown.
func (c ControlMsg) IsImmediate() bool {
	return c.Kind == ControlShutdown && c.Deadline == 0
}
