// Package pdata defines OtapPdata: the three interconvertible
// telemetry payload representations flowing through the node runtime. The
// variant currently held is invisible to downstream code except for
// conversion cost; pdata/convert implements the TryFrom-style fan between
// variants, grounded on pkg/otel/arrow_record's streaming IPC consumer and
// go.opentelemetry.io/collector/pdata's decoded-struct types.
package pdata

import (
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
)

// Variant tags which representation an OtapPdata value currently holds.
type Variant int

const (
	VariantOtlpBytes Variant = iota
	VariantOTAPData
	VariantOtapBatch
)

// OtapPdata is a tagged union over the three payload representations.
// Exactly one of the payload fields is meaningful, selected by Variant;
// Signal is fixed for the lifetime of the value and preserved across
// conversions (num-items conservation is asserted in pdata/convert tests).
type OtapPdata struct {
	Variant Variant
	Signal  otap.SignalType

	// VariantOtlpBytes
	OtlpBytes []byte

	// VariantOTAPData: a streaming batch of Arrow IPC records carrying
	// multiple OTAP payload types, kept as raw IPC bytes until a
	// consumer materializes it (pdata/convert owns that decode).
	OTAPDataIPC []byte

	// VariantOtapBatch
	OtapBatch *otap.ArrowRecords

	// decoded is populated lazily by conversions that already produced
	// a decoded OTLP struct, to avoid a redundant encode/decode round
	// trip when the next hop wants the same representation.
	decodedLogs    *plog.Logs
	decodedMetrics *pmetric.Metrics
	decodedTraces  *ptrace.Traces
}

// FromOtlpBytes wraps OTLP protobuf-encoded bytes for a fixed signal.
func FromOtlpBytes(signal otap.SignalType, b []byte) OtapPdata {
	return OtapPdata{Variant: VariantOtlpBytes, Signal: signal, OtlpBytes: b}
}

// FromOtapBatch wraps a materialized OtapArrowRecords container.
func FromOtapBatch(rec *otap.ArrowRecords) OtapPdata {
	return OtapPdata{Variant: VariantOtapBatch, Signal: rec.Signal, OtapBatch: rec}
}

// FromOTAPDataIPC wraps raw Arrow-IPC-encoded streaming bytes.
func FromOTAPDataIPC(signal otap.SignalType, ipcBytes []byte) OtapPdata {
	return OtapPdata{Variant: VariantOTAPData, Signal: signal, OTAPDataIPC: ipcBytes}
}

// NumItems returns the OTel batch length for whichever variant is held,
// without requiring the caller to convert first.
func (p OtapPdata) NumItems() (int64, error) {
	switch p.Variant {
	case VariantOtapBatch:
		return p.OtapBatch.NumItems(), nil
	case VariantOtlpBytes:
		return numItemsFromOtlpBytes(p.Signal, p.OtlpBytes)
	case VariantOTAPData:
		return numItemsFromIPC(p.Signal, p.OTAPDataIPC)
	default:
		return 0, ErrUnknownVariant
	}
}
