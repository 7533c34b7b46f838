// Package selftrace bridges the engine's own zap-based tracing/logging
// calls into OTLP LogRecords, so the engine can observe itself
// through the same OTAP pipeline it runs for user data. Grounded on the
// use of `zap.Logger`/`zapcore.Core` throughout
// `collector/receiver/otelarrowreceiver` for structured logging, and on
// `pdata/convert`'s plog construction for the OTLP side.
package selftrace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/collector/consumer"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	semconv "go.opentelemetry.io/collector/semconv/v1.5.0"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SeverityNumber maps a zap level to the fixed OTLP severity number
// table below.
func SeverityNumber(lvl zapcore.Level) plog.SeverityNumber {
	switch {
	case lvl < zapcore.DebugLevel:
		return plog.SeverityNumberTrace
	case lvl < zapcore.InfoLevel:
		return plog.SeverityNumberDebug
	case lvl < zapcore.WarnLevel:
		return plog.SeverityNumberInfo
	case lvl < zapcore.ErrorLevel:
		return plog.SeverityNumberWarn
	default:
		return plog.SeverityNumberError
	}
}

func severityText(n plog.SeverityNumber) string {
	switch n {
	case plog.SeverityNumberTrace:
		return "TRACE"
	case plog.SeverityNumberDebug:
		return "DEBUG"
	case plog.SeverityNumberInfo:
		return "INFO"
	case plog.SeverityNumberWarn:
		return "WARN"
	case plog.SeverityNumberError:
		return "ERROR"
	default:
		return "UNSPECIFIED"
	}
}

// Sink receives a fully-built plog.Logs batch each time the bridge
// flushes an entry (or a span pair). The engine's internal OTAP pipeline
// implements this to ingest self-telemetry as ordinary OTLP input.
type Sink interface {
	AcceptLogs(plog.Logs) error
}

// ConsumerSink adapts a collector consumer.Logs (the same interface
// `otelarrowreceiver/internal/logs.Receiver` forwards its decoded OTLP
// batches to via nextConsumer.ConsumeLogs) into a Sink, so self-telemetry
// can be handed to any ordinary collector logs consumer without that
// consumer knowing it's receiving the engine's own traces.
type ConsumerSink struct {
	Next consumer.Logs
}

func (s ConsumerSink) AcceptLogs(logs plog.Logs) error {
	return s.Next.ConsumeLogs(context.Background(), logs)
}

// Core is a zapcore.Core that converts every logged entry into an OTLP
// LogRecord and forwards the resulting one-record plog.Logs batch to
// Sink, instead of (or alongside) formatting to a writer.
type Core struct {
	sink       Sink
	fields     []zapcore.Field
	minLevel   zapcore.Level
	resourceID string
}

// NewCore builds a selftrace Core that forwards to sink. resourceID is
// stamped as a `service.instance.id`-equivalent resource attribute.
func NewCore(sink Sink, minLevel zapcore.Level, resourceID string) *Core {
	return &Core{sink: sink, minLevel: minLevel, resourceID: resourceID}
}

func (c *Core) Enabled(lvl zapcore.Level) bool { return lvl >= c.minLevel }

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &Core{sink: c.sink, fields: merged, minLevel: c.minLevel, resourceID: c.resourceID}
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write converts one zap entry into a single-record plog.Logs batch and
// forwards it to the sink. Structured fields become attributes; the
// entry message becomes the log body.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr(semconv.AttributeServiceInstanceID, c.resourceID)
	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName("engine-self-trace")

	record := sl.LogRecords().AppendEmpty()
	populateRecord(record, ent.Time, ent.Level, ent.Message, append(c.fields, fields...))

	return c.sink.AcceptLogs(logs)
}

func (c *Core) Sync() error { return nil }

// ExtractIncomingContext recovers a propagated trace context from a
// header-like carrier (e.g. gRPC metadata) into ctx using the global
// propagator, the same "get the global propagator, extract if any
// fields are present" shape
// `otelarrowreceiver/internal/arrow/arrow.go` uses for its own incoming
// Arrow-stream headers. When no propagator is configured (or headers
// carry nothing it recognizes), ctx is returned unchanged.
func ExtractIncomingContext(ctx context.Context, headers map[string]string) context.Context {
	prop := otel.GetTextMapPropagator()
	if len(prop.Fields()) == 0 {
		return ctx
	}
	return prop.Extract(ctx, propagation.MapCarrier(headers))
}

func populateRecord(record plog.LogRecord, t time.Time, lvl zapcore.Level, msg string, fields []zapcore.Field) {
	record.SetTimestamp(pcommon.NewTimestampFromTime(t))
	sev := SeverityNumber(lvl)
	record.SetSeverityNumber(sev)
	record.SetSeverityText(severityText(sev))
	record.Body().SetStr(msg)

	enc := &mapObjectEncoder{m: record.Attributes()}
	for _, f := range fields {
		f.AddTo(enc)
	}
}

// mapObjectEncoder implements zapcore.ObjectEncoder by writing directly
// into a pcommon.Map, so a field's structured value becomes a LogRecord
// attribute instead of formatted text.
type mapObjectEncoder struct{ m pcommon.Map }

func (e *mapObjectEncoder) AddBool(k string, v bool)          { e.m.PutBool(k, v) }
func (e *mapObjectEncoder) AddString(k, v string)             { e.m.PutStr(k, v) }
func (e *mapObjectEncoder) AddInt(k string, v int)            { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddInt64(k string, v int64)        { e.m.PutInt(k, v) }
func (e *mapObjectEncoder) AddInt32(k string, v int32)        { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddInt16(k string, v int16)        { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddInt8(k string, v int8)          { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUint(k string, v uint)          { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUint64(k string, v uint64)      { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUint32(k string, v uint32)      { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUint16(k string, v uint16)      { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUint8(k string, v uint8)        { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddUintptr(k string, v uintptr)    { e.m.PutInt(k, int64(v)) }
func (e *mapObjectEncoder) AddFloat64(k string, v float64)    { e.m.PutDouble(k, v) }
func (e *mapObjectEncoder) AddFloat32(k string, v float32)    { e.m.PutDouble(k, float64(v)) }
func (e *mapObjectEncoder) AddDuration(k string, v time.Duration) {
	e.m.PutInt(k, v.Nanoseconds())
}
func (e *mapObjectEncoder) AddTime(k string, v time.Time) {
	e.m.PutStr(k, v.Format(time.RFC3339Nano))
}
func (e *mapObjectEncoder) AddByteString(k string, v []byte) { e.m.PutStr(k, string(v)) }
func (e *mapObjectEncoder) AddComplex128(k string, v complex128) {
	e.m.PutStr(k, fmt.Sprintf("%v", v))
}
func (e *mapObjectEncoder) AddComplex64(k string, v complex64) {
	e.m.PutStr(k, fmt.Sprintf("%v", v))
}
func (e *mapObjectEncoder) AddReflected(k string, v any) error {
	e.m.PutStr(k, fmt.Sprintf("%+v", v))
	return nil
}
func (e *mapObjectEncoder) AddBinary(k string, v []byte) {
	dst := e.m.PutEmptyBytes(k)
	dst.FromRaw(v)
}
func (e *mapObjectEncoder) AddArray(k string, v zapcore.ArrayMarshaler) error {
	sub := arrayObjectEncoder{}
	if err := v.MarshalLogArray(&sub); err != nil {
		return err
	}
	e.m.PutStr(k, fmt.Sprintf("%v", sub.items))
	return nil
}
func (e *mapObjectEncoder) AddObject(k string, v zapcore.ObjectMarshaler) error {
	sub := &mapObjectEncoder{m: e.m.PutEmptyMap(k)}
	return v.MarshalLogObject(sub)
}
func (e *mapObjectEncoder) OpenNamespace(k string) {
	e.m = e.m.PutEmptyMap(k)
}

// arrayObjectEncoder collects a zapcore.ArrayMarshaler's elements as
// plain Go values; mapObjectEncoder.AddArray then renders the collected
// slice as one flattened text attribute. Arrays are rare enough in the
// engine's own log calls that this is an acceptable attribute shape.
type arrayObjectEncoder struct{ items []any }

func (a *arrayObjectEncoder) AppendBool(v bool)              { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendString(v string)          { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendInt(v int)                { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendInt64(v int64)            { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendInt32(v int32)            { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendInt16(v int16)            { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendInt8(v int8)              { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUint(v uint)              { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUint64(v uint64)          { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUint32(v uint32)          { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUint16(v uint16)          { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUint8(v uint8)            { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendUintptr(v uintptr)        { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendFloat64(v float64)        { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendFloat32(v float32)        { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendComplex128(v complex128)  { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendComplex64(v complex64)    { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendDuration(v time.Duration) { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendTime(v time.Time)         { a.items = append(a.items, v) }
func (a *arrayObjectEncoder) AppendByteString(v []byte)      { a.items = append(a.items, string(v)) }
func (a *arrayObjectEncoder) AppendReflected(v any) error {
	a.items = append(a.items, v)
	return nil
}
func (a *arrayObjectEncoder) AppendArray(v zapcore.ArrayMarshaler) error {
	sub := arrayObjectEncoder{}
	if err := v.MarshalLogArray(&sub); err != nil {
		return err
	}
	a.items = append(a.items, sub.items)
	return nil
}
func (a *arrayObjectEncoder) AppendObject(v zapcore.ObjectMarshaler) error {
	sub := &reflectObjectEncoder{}
	if err := v.MarshalLogObject(sub); err != nil {
		return err
	}
	a.items = append(a.items, sub.fields)
	return nil
}

// reflectObjectEncoder collects a nested ObjectMarshaler's fields as a
// plain map for embedding inside an array element.
type reflectObjectEncoder struct{ fields map[string]any }

func (r *reflectObjectEncoder) set(k string, v any) {
	if r.fields == nil {
		r.fields = map[string]any{}
	}
	r.fields[k] = v
}
func (r *reflectObjectEncoder) AddBool(k string, v bool)                 { r.set(k, v) }
func (r *reflectObjectEncoder) AddString(k, v string)                    { r.set(k, v) }
func (r *reflectObjectEncoder) AddInt(k string, v int)                   { r.set(k, v) }
func (r *reflectObjectEncoder) AddInt64(k string, v int64)               { r.set(k, v) }
func (r *reflectObjectEncoder) AddInt32(k string, v int32)               { r.set(k, v) }
func (r *reflectObjectEncoder) AddInt16(k string, v int16)               { r.set(k, v) }
func (r *reflectObjectEncoder) AddInt8(k string, v int8)                 { r.set(k, v) }
func (r *reflectObjectEncoder) AddUint(k string, v uint)                 { r.set(k, v) }
func (r *reflectObjectEncoder) AddUint64(k string, v uint64)             { r.set(k, v) }
func (r *reflectObjectEncoder) AddUint32(k string, v uint32)             { r.set(k, v) }
func (r *reflectObjectEncoder) AddUint16(k string, v uint16)             { r.set(k, v) }
func (r *reflectObjectEncoder) AddUint8(k string, v uint8)               { r.set(k, v) }
func (r *reflectObjectEncoder) AddUintptr(k string, v uintptr)           { r.set(k, v) }
func (r *reflectObjectEncoder) AddFloat64(k string, v float64)           { r.set(k, v) }
func (r *reflectObjectEncoder) AddFloat32(k string, v float32)           { r.set(k, v) }
func (r *reflectObjectEncoder) AddComplex128(k string, v complex128)     { r.set(k, v) }
func (r *reflectObjectEncoder) AddComplex64(k string, v complex64)       { r.set(k, v) }
func (r *reflectObjectEncoder) AddDuration(k string, v time.Duration)    { r.set(k, v) }
func (r *reflectObjectEncoder) AddTime(k string, v time.Time)            { r.set(k, v) }
func (r *reflectObjectEncoder) AddByteString(k string, v []byte)         { r.set(k, string(v)) }
func (r *reflectObjectEncoder) AddBinary(k string, v []byte)             { r.set(k, v) }
func (r *reflectObjectEncoder) AddReflected(k string, v any) error       { r.set(k, v); return nil }
func (r *reflectObjectEncoder) OpenNamespace(k string)                  {}
func (r *reflectObjectEncoder) AddArray(k string, v zapcore.ArrayMarshaler) error {
	sub := arrayObjectEncoder{}
	if err := v.MarshalLogArray(&sub); err != nil {
		return err
	}
	r.set(k, sub.items)
	return nil
}
func (r *reflectObjectEncoder) AddObject(k string, v zapcore.ObjectMarshaler) error {
	sub := &reflectObjectEncoder{}
	if err := v.MarshalLogObject(sub); err != nil {
		return err
	}
	r.set(k, sub.fields)
	return nil
}

// Span represents one in-flight self-traced span. Start/End emit a
// paired span.start/span.end log record, with span.end carrying the
// elapsed duration. When ctx carries a real trace.SpanContext (e.g. one
// propagated in from an upstream OTLP receiver), its trace/span IDs are
// stamped onto both records so self-telemetry can be correlated back to
// the request that triggered it.
type Span struct {
	core    *Core
	name    string
	start   time.Time
	fields  []zapcore.Field
	spanCtx trace.SpanContext
}

// StartSpan begins a span, emitting its span.start record immediately.
func (c *Core) StartSpan(ctx context.Context, name string, fields ...zapcore.Field) *Span {
	s := &Span{core: c, name: name, start: time.Now(), fields: fields, spanCtx: trace.SpanContextFromContext(ctx)}
	s.emit("span.start", nil)
	return s
}

// End emits the span.end record, including span.duration_nanos.
func (s *Span) End() {
	elapsed := time.Since(s.start)
	s.emit("span.end", []zapcore.Field{
		zapFieldInt64("span.duration_nanos", elapsed.Nanoseconds()),
	})
}

func (s *Span) emit(kind string, extra []zapcore.Field) {
	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr(semconv.AttributeServiceInstanceID, s.core.resourceID)
	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName("engine-self-trace")

	record := sl.LogRecords().AppendEmpty()
	all := append(append([]zapcore.Field{zapFieldString("span.name", s.name)}, s.fields...), extra...)
	if s.spanCtx.IsValid() {
		all = append(all,
			zapFieldString("trace.id", s.spanCtx.TraceID().String()),
			zapFieldString("span.id", s.spanCtx.SpanID().String()),
		)
	}
	populateRecord(record, time.Now(), zapcore.InfoLevel, kind, all)

	_ = s.core.sink.AcceptLogs(logs)
}

func zapFieldString(key, val string) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringType, String: val}
}

func zapFieldInt64(key string, val int64) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.Int64Type, Integer: val}
}

// DispatchOTLPLogs decodes an OTLP-proto-encoded log batch and re-emits
// every record through logger, so records produced elsewhere (e.g. read
// back off the wire, or replayed from a conversion round trip) still
// flow through whatever zapcore.Core the caller's logger is configured
// with, such as the ordinary console formatter.
func DispatchOTLPLogs(logger *zap.Logger, otlpBytes []byte) error {
	var unmarshaler plog.ProtoUnmarshaler
	logs, err := unmarshaler.UnmarshalLogs(otlpBytes)
	if err != nil {
		return err
	}

	rls := logs.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		sls := rls.At(i).ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			records := sls.At(j).LogRecords()
			for k := 0; k < records.Len(); k++ {
				dispatchRecord(logger, records.At(k))
			}
		}
	}
	return nil
}

func dispatchRecord(logger *zap.Logger, rec plog.LogRecord) {
	fields := make([]zap.Field, 0, rec.Attributes().Len())
	rec.Attributes().Range(func(k string, v pcommon.Value) bool {
		fields = append(fields, zap.Any(k, v.AsRaw()))
		return true
	})

	switch rec.SeverityNumber() {
	case plog.SeverityNumberTrace, plog.SeverityNumberDebug:
		logger.Debug(rec.Body().Str(), fields...)
	case plog.SeverityNumberWarn:
		logger.Warn(rec.Body().Str(), fields...)
	case plog.SeverityNumberError, plog.SeverityNumberFatal:
		logger.Error(rec.Body().Str(), fields...)
	default:
		logger.Info(rec.Body().Str(), fields...)
	}
}
