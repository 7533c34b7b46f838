package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/config/configtelemetry"
)

func TestCounterAddAccumulates(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(configtelemetry.LevelNormal)
	reg.RegisterEntity("node-1")

	c, err := reg.NewCounter("node-1", MetricSpec{Name: "messages_sent"})
	require.NoError(t, err)
	c.Add(ctx, 3)
	c.Add(ctx, 2)

	snap, err := reg.Snapshot(ctx, "node-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, snap["messages_sent"])
}

func TestCounterClampsNegativeDelta(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(configtelemetry.LevelNormal)
	reg.RegisterEntity("node-1")
	c, err := reg.NewCounter("node-1", MetricSpec{Name: "x"})
	require.NoError(t, err)
	c.Add(ctx, 5)
	c.Add(ctx, -3)

	snap, err := reg.Snapshot(ctx, "node-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, snap["x"])
}

func TestGaugeAddMovesBothWays(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(configtelemetry.LevelNormal)
	reg.RegisterEntity("node-1")
	g, err := reg.NewGauge("node-1", MetricSpec{Name: "queue_depth"})
	require.NoError(t, err)
	g.Add(ctx, 10)
	g.Add(ctx, -6)

	snap, err := reg.Snapshot(ctx, "node-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, snap["queue_depth"])
}

func TestMetricOnUnknownEntity(t *testing.T) {
	reg := NewRegistry(configtelemetry.LevelNormal)
	_, err := reg.NewCounter("ghost", MetricSpec{Name: "x"})
	require.Error(t, err)
}

func TestLevelNoneProducesNoOpInstruments(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(configtelemetry.LevelNone)
	reg.RegisterEntity("node-1")

	c, err := reg.NewCounter("node-1", MetricSpec{Name: "x"})
	require.NoError(t, err)
	c.Add(ctx, 5) // no panic on a nil-backed handle

	snap, err := reg.Snapshot(ctx, "node-1")
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshotReturnsAllMetricsScopedToEntity(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(configtelemetry.LevelNormal)
	reg.RegisterEntity("node-1")
	reg.RegisterEntity("node-2")

	c, err := reg.NewCounter("node-1", MetricSpec{Name: "a"})
	require.NoError(t, err)
	g, err := reg.NewGauge("node-1", MetricSpec{Name: "b"})
	require.NoError(t, err)
	other, err := reg.NewCounter("node-2", MetricSpec{Name: "a"})
	require.NoError(t, err)

	c.Add(ctx, 1)
	g.Add(ctx, 2)
	other.Add(ctx, 99)

	snap, err := reg.Snapshot(ctx, "node-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap["a"])
	assert.EqualValues(t, 2, snap["b"])
}

func TestNewCountersAggregatesViaMultierr(t *testing.T) {
	reg := NewRegistry(configtelemetry.LevelNormal)
	reg.RegisterEntity("node-1")

	counters, err := reg.NewCounters("node-1",
		MetricSpec{Name: "sent"},
		MetricSpec{Name: "sent_wire"},
	)
	require.NoError(t, err)
	require.Len(t, counters, 2)
}

func TestGuardUnregistersEntityAndChildren(t *testing.T) {
	reg := NewRegistry(configtelemetry.LevelNormal)
	ctx := NewNodeTaskContext(reg, "node-1")
	ctx.RegisterChild("node-1/conn-7")
	require.ElementsMatch(t, []EntityKey{"node-1", "node-1/conn-7"}, reg.Entities())

	g := ctx.Guard()
	g.Close()
	assert.Empty(t, reg.Entities())

	// idempotent
	g.Close()
}
