package pdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/otelcol-arrow-dataflow/engine/pdata/otap"
)

func appendBytesField(buf []byte, num protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, v)
}

func buildLogRecord(severity string) []byte {
	var rec []byte
	rec = appendBytesField(rec, 3, []byte(severity)) // severity_text
	return rec
}

func buildScopeLogs(records ...[]byte) []byte {
	var sl []byte
	for _, r := range records {
		sl = appendBytesField(sl, 2, r)
	}
	return sl
}

func buildResourceLogs(scopeLogs ...[]byte) []byte {
	var rl []byte
	for _, sl := range scopeLogs {
		rl = appendBytesField(rl, 2, sl)
	}
	return rl
}

func buildLogsData(resourceLogs ...[]byte) []byte {
	var ld []byte
	for _, rl := range resourceLogs {
		ld = appendBytesField(ld, 1, rl)
	}
	return ld
}

func TestNumItemsOtlpBytesLogs(t *testing.T) {
	r1 := buildLogRecord("INFO")
	r2 := buildLogRecord("ERROR")
	scope := buildScopeLogs(r1, r2)
	resource := buildResourceLogs(scope)
	buf := buildLogsData(resource)

	p := FromOtlpBytes(otap.SignalLogs, buf)
	n, err := p.NumItems()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestNumItemsUnsupportedSignalForBytes(t *testing.T) {
	p := FromOtlpBytes(otap.SignalTraces, []byte{})
	_, err := p.NumItems()
	require.Error(t, err)
}

func TestNumItemsOtapBatch(t *testing.T) {
	recs := otap.New(otap.SignalLogs)
	p := FromOtapBatch(recs)
	n, err := p.NumItems()
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
