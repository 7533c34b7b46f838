// Package otap implements the OTAP Arrow record container: a
// HashMap<ArrowPayloadType, RecordBatch>-shaped structure per signal,
// grounded on the RecordMessage/payload-type modeling in
// pkg/otel/arrow_record/arrow_record.go and the real arrowpb.ArrowPayloadType
// enum referenced from collector/receiver/otelarrowreceiver/internal/arrow/arrow.go
// (ArrowPayloadType_UNIVARIATE_METRICS, _LOGS, _SPANS), generalized to the
// closed schema this core defines as its source of truth.
package otap

import (
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
)

// PayloadType enumerates the discrete Arrow table roles within a signal
//.
type PayloadType int32

const (
	PayloadTypeUnknown PayloadType = iota
	PayloadTypeLogs
	PayloadTypeLogAttrs
	PayloadTypeResourceAttrs
	PayloadTypeScopeAttrs
	PayloadTypeSpans
	PayloadTypeSpanAttrs
	PayloadTypeSpanEvents
	PayloadTypeSpanLinks
	PayloadTypeMetrics
	PayloadTypeNumberDataPoints
	PayloadTypeSummaryDataPoints
	PayloadTypeHistogramDataPoints
	PayloadTypeExpHistogramDataPoints
	PayloadTypeMetricAttrs
)

func (t PayloadType) String() string {
	switch t {
	case PayloadTypeLogs:
		return "LOGS"
	case PayloadTypeLogAttrs:
		return "LOG_ATTRS"
	case PayloadTypeResourceAttrs:
		return "RESOURCE_ATTRS"
	case PayloadTypeScopeAttrs:
		return "SCOPE_ATTRS"
	case PayloadTypeSpans:
		return "SPANS"
	case PayloadTypeSpanAttrs:
		return "SPAN_ATTRS"
	case PayloadTypeSpanEvents:
		return "SPAN_EVENTS"
	case PayloadTypeSpanLinks:
		return "SPAN_LINKS"
	case PayloadTypeMetrics:
		return "METRICS"
	case PayloadTypeNumberDataPoints:
		return "NUMBER_DATA_POINTS"
	case PayloadTypeSummaryDataPoints:
		return "SUMMARY_DATA_POINTS"
	case PayloadTypeHistogramDataPoints:
		return "HISTOGRAM_DATA_POINTS"
	case PayloadTypeExpHistogramDataPoints:
		return "EXP_HISTOGRAM_DATA_POINTS"
	case PayloadTypeMetricAttrs:
		return "METRIC_ATTRS"
	default:
		return "UNKNOWN"
	}
}

// SignalType identifies which of the three fixed OTel signals an
// OtapArrowRecords or OtapPdata value carries.
type SignalType int

const (
	SignalLogs SignalType = iota
	SignalMetrics
	SignalTraces
)

// ArrowRecords holds the materialized RecordBatch per OTAP payload type
// for one signal. The set of present keys is the schema the
// query planner sees.
type ArrowRecords struct {
	Signal  SignalType
	records map[PayloadType]arrow.Record
}

// New creates an empty ArrowRecords container for a signal.
func New(signal SignalType) *ArrowRecords {
	return &ArrowRecords{Signal: signal, records: map[PayloadType]arrow.Record{}}
}

// Get returns the RecordBatch for a payload type, if present.
func (a *ArrowRecords) Get(pt PayloadType) (arrow.Record, bool) {
	r, ok := a.records[pt]
	return r, ok
}

// Set stores (replacing) the RecordBatch for a payload type. Set does not
// call Retain, but Release releases every stored record, so the reference
// passed in belongs to the container from then on. A record replaced by
// a later Set is not released.
func (a *ArrowRecords) Set(pt PayloadType, rec arrow.Record) {
	a.records[pt] = rec
}

// PayloadTypes returns the set of payload types currently present, in no
// particular order.
func (a *ArrowRecords) PayloadTypes() []PayloadType {
	types := make([]PayloadType, 0, len(a.records))
	for pt := range a.records {
		types = append(types, pt)
	}
	return types
}

// NumItems returns the OTel "batch length" for this container: log
// records for Logs, spans for Traces, or data points sumed across all
// metric data-point payload types for Metrics.
func (a *ArrowRecords) NumItems() int64 {
	switch a.Signal {
	case SignalLogs:
		if r, ok := a.records[PayloadTypeLogs]; ok {
			return r.NumRows()
		}
		return 0
	case SignalTraces:
		if r, ok := a.records[PayloadTypeSpans]; ok {
			return r.NumRows()
		}
		return 0
	case SignalMetrics:
		var n int64
		for _, pt := range []PayloadType{
			PayloadTypeNumberDataPoints, PayloadTypeSummaryDataPoints,
			PayloadTypeHistogramDataPoints, PayloadTypeExpHistogramDataPoints,
		} {
			if r, ok := a.records[pt]; ok {
				n += r.NumRows()
			}
		}
		return n
	default:
		return 0
	}
}

// Release releases every held record's Arrow reference count. Call once
// the container is no longer needed.
func (a *ArrowRecords) Release() {
	for _, r := range a.records {
		r.Release()
	}
}

// PrimaryPayloadType returns the payload type carrying the signal's main
// rows (Logs, Spans) used by query planning's column-resolution rules
//.
func (a *ArrowRecords) PrimaryPayloadType() (PayloadType, error) {
	switch a.Signal {
	case SignalLogs:
		return PayloadTypeLogs, nil
	case SignalTraces:
		return PayloadTypeSpans, nil
	case SignalMetrics:
		return PayloadTypeMetrics, nil
	default:
		return PayloadTypeUnknown, fmt.Errorf("otap: unknown signal type %v", a.Signal)
	}
}
