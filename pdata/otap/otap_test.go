package otap

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStringRecord(t *testing.T, values []string) arrow.Record {
	t.Helper()
	pool := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "severity_text", Type: arrow.BinaryTypes.String},
	}, nil)
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	sb := b.Field(0).(*array.StringBuilder)
	for _, v := range values {
		sb.Append(v)
	}
	return b.NewRecord()
}

func TestNumItemsLogs(t *testing.T) {
	rec := buildStringRecord(t, []string{"INFO", "ERROR"})
	defer rec.Release()

	recs := New(SignalLogs)
	recs.Set(PayloadTypeLogs, rec)
	defer recs.Release()

	assert.EqualValues(t, 2, recs.NumItems())
	pt, err := recs.PrimaryPayloadType()
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeLogs, pt)
}

func TestNumItemsMetricsSumsDataPointTypes(t *testing.T) {
	n1 := buildStringRecord(t, []string{"a", "b"})
	defer n1.Release()
	n2 := buildStringRecord(t, []string{"c"})
	defer n2.Release()

	recs := New(SignalMetrics)
	recs.Set(PayloadTypeNumberDataPoints, n1)
	recs.Set(PayloadTypeHistogramDataPoints, n2)
	defer recs.Release()

	assert.EqualValues(t, 3, recs.NumItems())
}

func TestPayloadTypesAndGet(t *testing.T) {
	rec := buildStringRecord(t, []string{"x"})
	defer rec.Release()

	recs := New(SignalTraces)
	recs.Set(PayloadTypeSpans, rec)
	defer recs.Release()

	_, ok := recs.Get(PayloadTypeSpanAttrs)
	assert.False(t, ok)

	got, ok := recs.Get(PayloadTypeSpans)
	require.True(t, ok)
	assert.EqualValues(t, 1, got.NumRows())
	assert.ElementsMatch(t, []PayloadType{PayloadTypeSpans}, recs.PayloadTypes())
}
