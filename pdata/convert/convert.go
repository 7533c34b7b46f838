// Package convert implements the cost-aware fan of conversions between
// OtapPdata's three representations: OtapBatch<->OTAPData via
// Arrow IPC, OtapBatch->OtlpBytes via go.opentelemetry.io/collector/pdata
// struct construction plus protobuf marshaling, and OtlpBytes->OtapBatch
// for logs only — grounded on pkg/otel/arrow_record/consumer.go's
// ipc.Reader/Writer usage and pkg/otel/logs/otlp_to_arrow.go's
// struct-to-column shape, generalized to this core's closed OTAP schema
//.
package convert

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/otelcol-arrow-dataflow/engine/internal/werror"
	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
	"github.com/otelcol-arrow-dataflow/engine/pdata/otlpview"
)

// ConversionError wraps any failure crossing a representation boundary
//, surfaced to the engine as a PdataConversionError.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string { return fmt.Sprintf("conversion error: %v", e.Err) }
func (e *ConversionError) Unwrap() error { return e.Err }

// wrap attaches werror's file/line/function provenance to err before
// surfacing it as the package's own ConversionError: ConversionError
// stays the concrete exported type callers match with errors.As, with
// werror underneath. werror records the frame that calls werror.Wrap,
// which is this helper, so the recorded file/line is this function's,
// not that of the conversion step that failed.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &ConversionError{Err: werror.Wrap(err)}
}

// logsSchema is the minimal columnar schema this core materializes for
// the Logs signal's primary payload-type record: enough columns to drive
// the query engine's filter/project operators over severity_text and
// body.
var logsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "time_unix_nano", Type: arrow.PrimitiveTypes.Int64},
	{Name: "severity_number", Type: arrow.PrimitiveTypes.Int64},
	{Name: "severity_text", Type: arrow.BinaryTypes.String},
	{Name: "body", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// LogsSchema exposes the fixed logs record schema for callers (e.g. the
// query planner/executor tests) that need to construct compatible
// batches.
func LogsSchema() *arrow.Schema { return logsSchema }

// OtlpBytesToOtapBatch converts protobuf-encoded OTLP bytes to an
// OtapArrowRecords container. Only Logs is currently supported; other
// signals return a ConversionError rather
// than guessing at an encoder.
func OtlpBytesToOtapBatch(signal otap.SignalType, buf []byte) (*otap.ArrowRecords, error) {
	if signal != otap.SignalLogs {
		return nil, wrap(fmt.Errorf("OtlpBytes->OtapBatch not yet supported for signal %v", signal))
	}

	view := otlpview.NewLogsDataView(buf)
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, logsSchema)
	defer b.Release()

	tsB := b.Field(0).(*array.Int64Builder)
	sevNumB := b.Field(1).(*array.Int64Builder)
	sevTextB := b.Field(2).(*array.StringBuilder)
	bodyB := b.Field(3).(*array.StringBuilder)

	for _, rl := range view.ResourceLogsViews() {
		for _, rec := range rl.ScopeLogsRecords() {
			if ts, ok := rec.TimeUnixNano(); ok {
				tsB.Append(ts)
			} else {
				tsB.AppendNull()
			}
			if sn, ok := rec.SeverityNumber(); ok {
				sevNumB.Append(sn)
			} else {
				sevNumB.AppendNull()
			}
			if st, ok := rec.SeverityText(); ok {
				sevTextB.Append(st)
			} else {
				sevTextB.AppendNull()
			}
			if bodyView, ok := rec.Body(); ok {
				if s, ok := bodyView.AsStringValue(); ok {
					bodyB.Append(s)
				} else {
					bodyB.AppendNull()
				}
			} else {
				bodyB.AppendNull()
			}
		}
	}

	rec := b.NewRecord()
	out := otap.New(otap.SignalLogs)
	out.Set(otap.PayloadTypeLogs, rec)
	return out, nil
}

// OtapBatchToOtlpBytes produces an OTLP ExportLogsServiceRequest-shaped
// protobuf encoding from an OtapArrowRecords container, by reconstructing
// plog.Logs from the columnar record and delegating to its proto
// marshaler, matching the approach of
// pkg/otel/arrow_record/consumer.go's record2Metrics/LogsFrom pattern of
// "decode columns into the collector's own pdata struct, then use its
// marshaler."
func OtapBatchToOtlpBytes(rec *otap.ArrowRecords) ([]byte, error) {
	if rec.Signal != otap.SignalLogs {
		return nil, wrap(fmt.Errorf("OtapBatch->OtlpBytes not yet supported for signal %v", rec.Signal))
	}

	logsRec, ok := rec.Get(otap.PayloadTypeLogs)
	if !ok {
		return nil, wrap(fmt.Errorf("OtapBatch missing required payload type %s", otap.PayloadTypeLogs))
	}

	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()

	tsCol, ok := logsRec.Column(0).(*array.Int64)
	if !ok {
		return nil, wrap(fmt.Errorf("unexpected column 0 type %T", logsRec.Column(0)))
	}
	sevNumCol, ok := logsRec.Column(1).(*array.Int64)
	if !ok {
		return nil, wrap(fmt.Errorf("unexpected column 1 type %T", logsRec.Column(1)))
	}
	sevTextCol, ok := logsRec.Column(2).(*array.String)
	if !ok {
		return nil, wrap(fmt.Errorf("unexpected column 2 type %T", logsRec.Column(2)))
	}
	var bodyCol *array.String
	if logsRec.NumCols() > 3 {
		bodyCol, _ = logsRec.Column(3).(*array.String)
	}

	for i := 0; i < int(logsRec.NumRows()); i++ {
		lr := sl.LogRecords().AppendEmpty()
		if !tsCol.IsNull(i) {
			lr.SetTimestamp(pcommon.Timestamp(tsCol.Value(i)))
		}
		if !sevNumCol.IsNull(i) {
			lr.SetSeverityNumber(plog.SeverityNumber(sevNumCol.Value(i)))
		}
		if !sevTextCol.IsNull(i) {
			lr.SetSeverityText(sevTextCol.Value(i))
		}
		if bodyCol != nil && !bodyCol.IsNull(i) {
			lr.Body().SetStr(bodyCol.Value(i))
		}
	}

	var marshaler plog.ProtoMarshaler
	b, err := marshaler.MarshalLogs(logs)
	if err != nil {
		return nil, wrap(err)
	}
	return b, nil
}

// OtapBatchToIPC encodes every payload-type record of rec into a single
// Arrow-IPC stream, primary payload type written first (matching the
// producer-writes-primary-first convention relied on by
// pdata.numItemsFromIPC).
func OtapBatchToIPC(rec *otap.ArrowRecords) ([]byte, error) {
	primary, err := rec.PrimaryPayloadType()
	if err != nil {
		return nil, wrap(err)
	}
	primaryRec, ok := rec.Get(primary)
	if !ok {
		return nil, wrap(fmt.Errorf("OtapBatch missing primary payload type %s", primary))
	}

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(primaryRec.Schema()))
	if err := w.Write(primaryRec); err != nil {
		return nil, wrap(err)
	}

	for _, pt := range rec.PayloadTypes() {
		if pt == primary {
			continue
		}
		r, ok := rec.Get(pt)
		if !ok {
			continue
		}
		if err := w.Write(r); err != nil {
			return nil, wrap(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, wrap(err)
	}
	return buf.Bytes(), nil
}

// IPCToOtapBatch decodes an Arrow-IPC stream back into an OtapArrowRecords
// container for the given signal. The first record in the stream is
// assigned to the signal's primary payload type; the producer/consumer
// pairing relies on that convention rather than carrying type tags in the
// stream (Arrow IPC has no side channel for an arbitrary caller enum).
func IPCToOtapBatch(signal otap.SignalType, ipcBytes []byte) (*otap.ArrowRecords, error) {
	out := otap.New(signal)
	primary, err := out.PrimaryPayloadType()
	if err != nil {
		return nil, wrap(err)
	}

	reader, err := ipc.NewReader(bytes.NewReader(ipcBytes), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, wrap(err)
	}
	defer reader.Release()

	first := true
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		if first {
			out.Set(primary, rec)
			first = false
		} else {
			rec.Release()
		}
	}
	return out, nil
}
