package pdata

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
	"github.com/otelcol-arrow-dataflow/engine/pdata/otlpview"
)

// ErrUnknownVariant is returned when an OtapPdata value's Variant tag is
// not one of the three defined values.
var ErrUnknownVariant = errors.New("pdata: unknown OtapPdata variant")

// numItemsFromOtlpBytes counts the batch length directly from OTLP
// protobuf bytes using the zero-copy views (pdata/otlpview), avoiding a
// full decode just to compute a count.
func numItemsFromOtlpBytes(signal otap.SignalType, buf []byte) (int64, error) {
	switch signal {
	case otap.SignalLogs:
		view := otlpview.NewLogsDataView(buf)
		var n int64
		for _, rl := range view.ResourceLogsViews() {
			n += int64(len(rl.ScopeLogsRecords()))
		}
		return n, nil
	default:
		// Only the Logs decode path for OtlpBytes<->OtapBatch exists so
		// far; other signals' byte-level view walking isn't wired up yet,
		// so this returns a plain error rather than guess at a parse.
		return 0, fmt.Errorf("pdata: num_items from OtlpBytes not yet supported for signal %v", signal)
	}
}

// numItemsFromIPC counts rows in the primary payload-type record of an
// Arrow-IPC-encoded OTAPData stream, without retaining the decoded
// records beyond the count.
func numItemsFromIPC(signal otap.SignalType, ipcBytes []byte) (int64, error) {
	rec := otap.New(signal)
	if _, err := rec.PrimaryPayloadType(); err != nil {
		return 0, err
	}

	reader, err := ipc.NewReader(bytes.NewReader(ipcBytes), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return 0, fmt.Errorf("pdata: ipc reader: %w", err)
	}
	defer reader.Release()

	// By producer convention the primary payload-type record (Logs,
	// Spans, or a metrics data-point table) is always written first in
	// the stream; subsequent records are attribute/child tables that do
	// not contribute to num_items.
	if reader.Next() {
		return reader.Record().NumRows(), nil
	}
	return 0, nil
}
