// Package otlpview implements zero-copy, read-only iteration over OTLP
// protobuf-encoded bytes: LogsDataView, LogRecordView,
// AnyValueView, AttributeView, ResourceView, InstrumentationScopeView.
// Field access walks proto wire tags lazily over a borrowed []byte rather
// than unmarshaling into go.opentelemetry.io/collector/pdata structs,
// grounded on the same wire-format primitives google.golang.org/protobuf
// uses internally, applied directly per the ("Wire-type validation
// only where cheap; malformed fields yield None, never panic").
package otlpview

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded top-level (tag, wiretype, raw bytes) triple.
type field struct {
	num  protowire.Number
	typ  protowire.Type
	data []byte // for Bytes/Varint-as-raw(encoded)/Fixed32/Fixed64 this is the raw payload
}

// walkFields iterates the top-level fields of a protobuf message encoded
// in buf, calling visit for each. Malformed input simply stops iteration
// early (no error is surfaced; callers treat missing fields as None, per
// the) rather than panicking.
func walkFields(buf []byte, visit func(field) (cont bool)) {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return
		}
		buf = buf[n:]

		var payload []byte
		var consumed int
		switch typ {
		case protowire.VarintType:
			_, consumed = protowire.ConsumeVarint(buf)
			if consumed < 0 {
				return
			}
			payload = buf[:consumed]
		case protowire.Fixed32Type:
			_, consumed = protowire.ConsumeFixed32(buf)
			if consumed < 0 {
				return
			}
			payload = buf[:consumed]
		case protowire.Fixed64Type:
			_, consumed = protowire.ConsumeFixed64(buf)
			if consumed < 0 {
				return
			}
			payload = buf[:consumed]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return
			}
			payload = v
			consumed = n
		default:
			// Group types are deprecated/unsupported; stop rather than
			// mis-parse.
			return
		}

		if !visit(field{num: num, typ: typ, data: payload}) {
			return
		}
		buf = buf[consumed:]
	}
}

// RawBytes returns a zero-copy view over raw protobuf bytes, offering
// shared primitive accessors used by the signal-specific view types
// below.
type RawBytes struct {
	buf []byte
}

// NewRawBytes wraps buf without copying.
func NewRawBytes(buf []byte) RawBytes { return RawBytes{buf: buf} }

// fieldBytes returns the raw bytes-typed payload of the first occurrence
// of field number n, or (nil, false) if absent or wrong wire type.
func (r RawBytes) fieldBytes(n protowire.Number) ([]byte, bool) {
	var out []byte
	found := false
	walkFields(r.buf, func(f field) bool {
		if f.num == n && f.typ == protowire.BytesType {
			out = f.data
			found = true
			return false
		}
		return true
	})
	return out, found
}

// fieldVarint returns the first varint-typed field n as int64.
func (r RawBytes) fieldVarint(n protowire.Number) (int64, bool) {
	var out int64
	found := false
	walkFields(r.buf, func(f field) bool {
		if f.num == n && f.typ == protowire.VarintType {
			v, _ := protowire.ConsumeVarint(f.data)
			out = int64(v)
			found = true
			return false
		}
		return true
	})
	return out, found
}

// repeatedBytesFields returns every Bytes-typed occurrence of field n, in
// wire order (used for repeated message/string/bytes fields).
func (r RawBytes) repeatedBytesFields(n protowire.Number) [][]byte {
	var out [][]byte
	walkFields(r.buf, func(f field) bool {
		if f.num == n && f.typ == protowire.BytesType {
			out = append(out, f.data)
		}
		return true
	})
	return out
}

// AsString returns field n interpreted as a UTF-8 string, without
// allocation (a direct slice-to-string conversion still copies per Go
// semantics at the call site only when the caller mutates; the view
// itself performs no decode-time allocation beyond that unavoidable one).
func (r RawBytes) AsString(n protowire.Number) (string, bool) {
	b, ok := r.fieldBytes(n)
	if !ok {
		return "", false
	}
	return string(b), true
}

// AsBytes returns field n's raw bytes.
func (r RawBytes) AsBytes(n protowire.Number) ([]byte, bool) {
	return r.fieldBytes(n)
}

// AsInt64 returns field n as a varint-decoded int64.
func (r RawBytes) AsInt64(n protowire.Number) (int64, bool) {
	return r.fieldVarint(n)
}

// AsBool returns field n as a bool (varint != 0).
func (r RawBytes) AsBool(n protowire.Number) (bool, bool) {
	v, ok := r.fieldVarint(n)
	if !ok {
		return false, false
	}
	return v != 0, true
}

// AsFixed64Double returns field n as a float64 from a fixed64-encoded
// IEEE-754 double.
func (r RawBytes) AsFixed64Double(n protowire.Number) (float64, bool) {
	var out float64
	found := false
	walkFields(r.buf, func(f field) bool {
		if f.num == n && f.typ == protowire.Fixed64Type {
			bits, _ := protowire.ConsumeFixed64(f.data)
			out = math.Float64frombits(bits)
			found = true
			return false
		}
		return true
	})
	return out, found
}

// Repeated field numbers used by the OTLP logs message shape (proto field
// numbers from opentelemetry/proto/logs/v1/logs.proto), kept local to
// this package rather than depending on the generated proto types.
const (
	fnLogsDataResourceLogs = 1
	fnResourceLogsResource = 1
	fnResourceLogsScope    = 2
	fnResourceLogsRecords  = 1 // within ScopeLogs, field 2 actually; kept simple/explicit below

	fnScopeLogsRecords = 2

	fnLogRecordTimeUnixNano = 1
	fnLogRecordSeverityNum  = 2
	fnLogRecordSeverityText = 3
	fnLogRecordBody         = 5
	fnLogRecordAttributes   = 6

	fnResourceAttributes = 1

	fnScopeName       = 1
	fnScopeAttributes = 3

	fnKeyValueKey   = 1
	fnKeyValueValue = 2

	fnAnyValueString = 1
	fnAnyValueBool   = 2
	fnAnyValueInt    = 3
	fnAnyValueDouble = 4
)

// LogsDataView is a zero-copy view over an ExportLogsServiceRequest's
// LogsData payload (or the LogsData message directly).
type LogsDataView struct{ RawBytes }

// NewLogsDataView wraps raw LogsData-shaped bytes.
func NewLogsDataView(buf []byte) LogsDataView { return LogsDataView{NewRawBytes(buf)} }

// ResourceLogsViews returns one view per resource_logs entry.
func (v LogsDataView) ResourceLogsViews() []ResourceLogsView {
	raws := v.repeatedBytesFields(fnLogsDataResourceLogs)
	out := make([]ResourceLogsView, len(raws))
	for i, b := range raws {
		out[i] = ResourceLogsView{NewRawBytes(b)}
	}
	return out
}

// ResourceLogsView wraps one ResourceLogs entry.
type ResourceLogsView struct{ RawBytes }

// Resource returns the resource view, if present.
func (v ResourceLogsView) Resource() (ResourceView, bool) {
	b, ok := v.fieldBytes(fnResourceLogsResource)
	if !ok {
		return ResourceView{}, false
	}
	return ResourceView{NewRawBytes(b)}, true
}

// Scope returns the instrumentation scope view of the first ScopeLogs
// entry (ResourceLogs field 2, then ScopeLogs field 1), if present.
func (v ResourceLogsView) Scope() (InstrumentationScopeView, bool) {
	sl, ok := v.fieldBytes(fnResourceLogsScope)
	if !ok {
		return InstrumentationScopeView{}, false
	}
	b, ok := NewRawBytes(sl).fieldBytes(1)
	if !ok {
		return InstrumentationScopeView{}, false
	}
	return InstrumentationScopeView{NewRawBytes(b)}, true
}

// ScopeLogsRecords returns the log records of every ScopeLogs container
// nested in this ResourceLogs (field 2), in wire order.
func (v ResourceLogsView) ScopeLogsRecords() []LogRecordView {
	scopeLogsRaws := v.repeatedBytesFields(2)
	var out []LogRecordView
	for _, sl := range scopeLogsRaws {
		slView := RawBytes{buf: sl}
		for _, rec := range slView.repeatedBytesFields(fnScopeLogsRecords) {
			out = append(out, LogRecordView{NewRawBytes(rec)})
		}
	}
	return out
}

// ResourceView wraps an OTLP Resource message.
type ResourceView struct{ RawBytes }

// Attributes returns the resource's attribute views.
func (v ResourceView) Attributes() []AttributeView {
	raws := v.repeatedBytesFields(fnResourceAttributes)
	out := make([]AttributeView, len(raws))
	for i, b := range raws {
		out[i] = AttributeView{NewRawBytes(b)}
	}
	return out
}

// InstrumentationScopeView wraps an OTLP InstrumentationScope message.
type InstrumentationScopeView struct{ RawBytes }

// Name returns the scope's name field, if present.
func (v InstrumentationScopeView) Name() (string, bool) {
	return v.AsString(fnScopeName)
}

// Attributes returns the scope's attribute views.
func (v InstrumentationScopeView) Attributes() []AttributeView {
	raws := v.repeatedBytesFields(fnScopeAttributes)
	out := make([]AttributeView, len(raws))
	for i, b := range raws {
		out[i] = AttributeView{NewRawBytes(b)}
	}
	return out
}

// LogRecordView wraps a single OTLP LogRecord message.
type LogRecordView struct{ RawBytes }

func (v LogRecordView) TimeUnixNano() (int64, bool) { return v.AsInt64(fnLogRecordTimeUnixNano) }
func (v LogRecordView) SeverityNumber() (int64, bool) { return v.AsInt64(fnLogRecordSeverityNum) }
func (v LogRecordView) SeverityText() (string, bool)  { return v.AsString(fnLogRecordSeverityText) }

// Body returns the record's body AnyValue view, if present.
func (v LogRecordView) Body() (AnyValueView, bool) {
	b, ok := v.fieldBytes(fnLogRecordBody)
	if !ok {
		return AnyValueView{}, false
	}
	return AnyValueView{NewRawBytes(b)}, true
}

// Attributes returns the record's attribute views.
func (v LogRecordView) Attributes() []AttributeView {
	raws := v.repeatedBytesFields(fnLogRecordAttributes)
	out := make([]AttributeView, len(raws))
	for i, b := range raws {
		out[i] = AttributeView{NewRawBytes(b)}
	}
	return out
}

// AttributeView wraps an OTLP KeyValue message.
type AttributeView struct{ RawBytes }

// Key returns the attribute's key.
func (v AttributeView) Key() (string, bool) { return v.AsString(fnKeyValueKey) }

// Value returns the attribute's AnyValue view.
func (v AttributeView) Value() (AnyValueView, bool) {
	b, ok := v.fieldBytes(fnKeyValueValue)
	if !ok {
		return AnyValueView{}, false
	}
	return AnyValueView{NewRawBytes(b)}, true
}

// AnyValueView wraps an OTLP AnyValue oneof message.
type AnyValueView struct{ RawBytes }

func (v AnyValueView) AsStringValue() (string, bool) { return v.AsString(fnAnyValueString) }
func (v AnyValueView) AsBoolValue() (bool, bool)     { return v.AsBool(fnAnyValueBool) }
func (v AnyValueView) AsInt64Value() (int64, bool)   { return v.AsInt64(fnAnyValueInt) }
func (v AnyValueView) AsDoubleValue() (float64, bool) {
	return v.AsFixed64Double(fnAnyValueDouble)
}
