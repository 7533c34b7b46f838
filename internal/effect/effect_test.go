package effect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/config/configgrpc"
	"go.opentelemetry.io/collector/config/confignet"
	"go.uber.org/zap"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

func TestSingleOutputBecomesDefault(t *testing.T) {
	s, r := chanpipe.NewLocal[int](2)
	ctrlS, _ := chanpipe.NewLocal[message.ControlMsg](2)
	h := New[int]("n1", zap.NewNop(), map[node.PortName]chanpipe.Sender[int]{"out": s}, "", ctrlS)

	require.NoError(t, h.SendMessage(context.Background(), 7))
	v, ok := r.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestAmbiguousDefaultWithoutConfig(t *testing.T) {
	s1, _ := chanpipe.NewLocal[int](2)
	s2, _ := chanpipe.NewLocal[int](2)
	ctrlS, _ := chanpipe.NewLocal[message.ControlMsg](2)
	h := New[int]("n1", zap.NewNop(), map[node.PortName]chanpipe.Sender[int]{"a": s1, "b": s2}, "", ctrlS)

	err := h.SendMessage(context.Background(), 1)
	require.Error(t, err)
	var pe *node.ProcessorError
	require.ErrorAs(t, err, &pe)
}

func TestUnknownPort(t *testing.T) {
	s1, _ := chanpipe.NewLocal[int](2)
	ctrlS, _ := chanpipe.NewLocal[message.ControlMsg](2)
	h := New[int]("n1", zap.NewNop(), map[node.PortName]chanpipe.Sender[int]{"a": s1}, "", ctrlS)

	err := h.SendMessageTo(context.Background(), "missing", 1)
	require.Error(t, err)
}

func TestPeriodicTimerCancelIdempotent(t *testing.T) {
	s1, _ := chanpipe.NewLocal[int](2)
	ctrlS, ctrlR := chanpipe.NewLocal[message.ControlMsg](4)
	h := New[int]("n1", zap.NewNop(), map[node.PortName]chanpipe.Sender[int]{"a": s1}, "", ctrlS)

	handle := h.StartPeriodicTimer(context.Background(), 5*time.Millisecond)
	msg, ok := ctrlR.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, message.ControlTimerTick, msg.Kind)

	handle.Cancel()
	handle.Cancel() // idempotent
}

func TestTCPListenerBindsConfiguredAddress(t *testing.T) {
	s1, _ := chanpipe.NewLocal[int](2)
	ctrlS, _ := chanpipe.NewLocal[message.ControlMsg](2)
	h := New[int]("n1", zap.NewNop(), map[node.PortName]chanpipe.Sender[int]{"a": s1}, "", ctrlS)

	cfg := configgrpc.GRPCServerSettings{NetAddr: confignet.NetAddr{Endpoint: "127.0.0.1:0", Transport: "tcp"}}
	ln, release, err := h.TCPListener(context.Background(), cfg)
	require.NoError(t, err)
	defer release()
	assert.NotEmpty(t, ln.Addr().String())
}
