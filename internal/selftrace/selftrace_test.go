package selftrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/consumer/consumertest"
	"go.opentelemetry.io/collector/pdata/plog"
	semconv "go.opentelemetry.io/collector/semconv/v1.5.0"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type recordingSink struct {
	batches []plog.Logs
}

func (s *recordingSink) AcceptLogs(l plog.Logs) error {
	s.batches = append(s.batches, l)
	return nil
}

func TestSeverityMappingTable(t *testing.T) {
	assert.Equal(t, plog.SeverityNumberDebug, SeverityNumber(zapcore.DebugLevel))
	assert.Equal(t, plog.SeverityNumberInfo, SeverityNumber(zapcore.InfoLevel))
	assert.Equal(t, plog.SeverityNumberWarn, SeverityNumber(zapcore.WarnLevel))
	assert.Equal(t, plog.SeverityNumberError, SeverityNumber(zapcore.ErrorLevel))
}

func TestCoreWriteProducesLogRecordWithAttributes(t *testing.T) {
	sink := &recordingSink{}
	core := NewCore(sink, zapcore.DebugLevel, "engine-1")

	logger := zap.New(core)
	logger.Info("node started", zap.String("node_id", "n1"), zap.Int("port", 4317))

	require.Len(t, sink.batches, 1)
	rl := sink.batches[0].ResourceLogs().At(0)
	v, ok := rl.Resource().Attributes().Get(semconv.AttributeServiceInstanceID)
	require.True(t, ok)
	assert.Equal(t, "engine-1", v.Str())

	rec := rl.ScopeLogs().At(0).LogRecords().At(0)
	assert.Equal(t, "node started", rec.Body().Str())
	assert.Equal(t, plog.SeverityNumberInfo, rec.SeverityNumber())

	nodeID, ok := rec.Attributes().Get("node_id")
	require.True(t, ok)
	assert.Equal(t, "n1", nodeID.Str())

	port, ok := rec.Attributes().Get("port")
	require.True(t, ok)
	assert.EqualValues(t, 4317, port.Int())
}

func TestCoreEnabledRespectsMinLevel(t *testing.T) {
	sink := &recordingSink{}
	core := NewCore(sink, zapcore.WarnLevel, "engine-1")
	logger := zap.New(core)

	logger.Info("should be dropped")
	assert.Empty(t, sink.batches)

	logger.Warn("should pass")
	assert.Len(t, sink.batches, 1)
}

func TestSpanEmitsStartAndEndPair(t *testing.T) {
	sink := &recordingSink{}
	core := NewCore(sink, zapcore.DebugLevel, "engine-1")

	span := core.StartSpan(context.Background(), "process_batch")
	time.Sleep(time.Millisecond)
	span.End()

	require.Len(t, sink.batches, 2)
	start := sink.batches[0].ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)
	end := sink.batches[1].ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)

	assert.Equal(t, "span.start", start.Body().Str())
	assert.Equal(t, "span.end", end.Body().Str())

	name, ok := start.Attributes().Get("span.name")
	require.True(t, ok)
	assert.Equal(t, "process_batch", name.Str())

	dur, ok := end.Attributes().Get("span.duration_nanos")
	require.True(t, ok)
	assert.Greater(t, dur.Int(), int64(0))
}

func TestSpanStampsTraceAndSpanIDsFromContext(t *testing.T) {
	sink := &recordingSink{}
	core := NewCore(sink, zapcore.DebugLevel, "engine-1")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	span := core.StartSpan(ctx, "process_batch")
	span.End()

	require.Len(t, sink.batches, 2)
	start := sink.batches[0].ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)

	traceID, ok := start.Attributes().Get("trace.id")
	require.True(t, ok)
	assert.Equal(t, sc.TraceID().String(), traceID.Str())

	spanID, ok := start.Attributes().Get("span.id")
	require.True(t, ok)
	assert.Equal(t, sc.SpanID().String(), spanID.Str())
}

func TestExtractIncomingContextRecoversPropagatedSpan(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	sendCtx := trace.ContextWithSpanContext(context.Background(), sc)
	headers := map[string]string{}
	propagation.TraceContext{}.Inject(sendCtx, propagation.MapCarrier(headers))

	recvCtx := ExtractIncomingContext(context.Background(), headers)
	got := trace.SpanContextFromContext(recvCtx)
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}

func TestExtractIncomingContextNoopWithoutPropagator(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	defer otel.SetTextMapPropagator(prev)

	ctx := context.Background()
	got := ExtractIncomingContext(ctx, map[string]string{"traceparent": "ignored"})
	assert.Equal(t, ctx, got)
}

func TestConsumerSinkForwardsToCollectorConsumer(t *testing.T) {
	next := new(consumertest.LogsSink)
	sink := ConsumerSink{Next: next}
	core := NewCore(sink, zapcore.DebugLevel, "engine-1")

	zap.New(core).Info("forwarded via consumer.Logs")

	require.Len(t, next.AllLogs(), 1)
	rec := next.AllLogs()[0].ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)
	assert.Equal(t, "forwarded via consumer.Logs", rec.Body().Str())
}
