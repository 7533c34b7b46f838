package node_test

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

// MockEffectHandler is a hand-written stand-in for what mockgen would
// generate for node.EffectHandler[int] (mockgen does not yet handle
// generic interfaces cleanly across the versions this module targets),
// following the same Controller/Recorder split the collector's own
// arrow-payload tests drive their mocked auth/stream servers with.
type MockEffectHandler struct {
	ctrl     *gomock.Controller
	recorder *MockEffectHandlerMockRecorder
}

type MockEffectHandlerMockRecorder struct {
	mock *MockEffectHandler
}

func NewMockEffectHandler(ctrl *gomock.Controller) *MockEffectHandler {
	m := &MockEffectHandler{ctrl: ctrl}
	m.recorder = &MockEffectHandlerMockRecorder{mock: m}
	return m
}

func (m *MockEffectHandler) EXPECT() *MockEffectHandlerMockRecorder {
	return m.recorder
}

func (m *MockEffectHandler) SendMessage(ctx context.Context, data int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendMessage", ctx, data)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockEffectHandlerMockRecorder) SendMessage(ctx, data any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendMessage", reflect.TypeOf((*MockEffectHandler)(nil).SendMessage), ctx, data)
}

func (m *MockEffectHandler) SendMessageTo(ctx context.Context, port node.PortName, data int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendMessageTo", ctx, port, data)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockEffectHandlerMockRecorder) SendMessageTo(ctx, port, data any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendMessageTo", reflect.TypeOf((*MockEffectHandler)(nil).SendMessageTo), ctx, port, data)
}

func (m *MockEffectHandler) ConnectedPorts() []node.PortName {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ConnectedPorts")
	ports, _ := ret[0].([]node.PortName)
	return ports
}

func (mr *MockEffectHandlerMockRecorder) ConnectedPorts() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ConnectedPorts", reflect.TypeOf((*MockEffectHandler)(nil).ConnectedPorts))
}

func (m *MockEffectHandler) Info(msg string, fields ...any) {
	m.ctrl.T.Helper()
	args := make([]any, 0, len(fields)+1)
	args = append(args, msg)
	for _, f := range fields {
		args = append(args, f)
	}
	m.ctrl.Call(m, "Info", args...)
}

func (mr *MockEffectHandlerMockRecorder) Info(args ...any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Info", reflect.TypeOf((*MockEffectHandler)(nil).Info), args...)
}

var _ node.EffectHandler[int] = (*MockEffectHandler)(nil)
