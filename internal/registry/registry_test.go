package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/component"

	"github.com/otelcol-arrow-dataflow/engine/internal/chanpipe"
	"github.com/otelcol-arrow-dataflow/engine/internal/message"
	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

func TestURNCanonicalization(t *testing.T) {
	a, err := Canonicalize("OTLP:receiver")
	require.NoError(t, err)
	b, err := Canonicalize("urn:otel:otlp:receiver")
	require.NoError(t, err)
	assert.Equal(t, "urn:otel:otlp:receiver", a)
	assert.Equal(t, a, b)

	idem, err := Canonicalize(a)
	require.NoError(t, err)
	assert.Equal(t, a, idem)
}

func TestURNRejections(t *testing.T) {
	_, err := ParseURN("urn:otel:otlp:sink")
	require.Error(t, err)

	_, err = ParseURN("urn:otel::otlp:receiver")
	require.Error(t, err)

	_, err = ParseURN("urn:OTEL:otlp:receiver")
	require.NoError(t, err) // namespace case-insensitive on input

	_, err = ParseURN("urn:otel:ot%6cp:receiver")
	require.Error(t, err)
}

type noopReceiver struct{}

func (noopReceiver) Flavor() node.Flavor { return node.FlavorLocal }
func (noopReceiver) Start(ctx context.Context, controlRx chanpipe.Receiver[message.ControlMsg], eh node.EffectHandler[int]) error {
	return nil
}

func TestBuildReceiverUnknown(t *testing.T) {
	reg := NewFactoryRegistry[int]()
	reg.Publish()
	_, err := reg.BuildReceiver(component.TelemetrySettings{}, "urn:otel:missing:receiver", nil)
	require.Error(t, err)
	var ue *ErrUnknownReceiver
	require.ErrorAs(t, err, &ue)
}

func TestBuildReceiverKindMismatch(t *testing.T) {
	reg := NewFactoryRegistry[int]()
	require.NoError(t, reg.RegisterReceiver("otlp:receiver", func(settings component.TelemetrySettings, raw []byte) (node.Receiver[int], error) {
		return noopReceiver{}, nil
	}))
	reg.Publish()

	_, err := reg.BuildReceiver(component.TelemetrySettings{}, "otlp:exporter", nil)
	require.Error(t, err)

	r, err := reg.BuildReceiver(component.TelemetrySettings{}, "otlp:receiver", nil)
	require.NoError(t, err)
	assert.Equal(t, node.FlavorLocal, r.Flavor())
}
