package otlpview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendBytes(buf []byte, num protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, v)
}

func appendVarint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func buildAttr(key, val string) []byte {
	var anyVal []byte
	anyVal = appendBytes(anyVal, fnAnyValueString, []byte(val))
	var kv []byte
	kv = appendBytes(kv, fnKeyValueKey, []byte(key))
	kv = appendBytes(kv, fnKeyValueValue, anyVal)
	return kv
}

func TestLogRecordViewFields(t *testing.T) {
	var rec []byte
	rec = appendVarint(rec, fnLogRecordTimeUnixNano, 123456789)
	rec = appendBytes(rec, fnLogRecordSeverityText, []byte("ERROR"))
	rec = appendBytes(rec, fnLogRecordAttributes, buildAttr("http.status_code", "500"))

	view := LogRecordView{NewRawBytes(rec)}
	ts, ok := view.TimeUnixNano()
	require.True(t, ok)
	assert.EqualValues(t, 123456789, ts)

	sev, ok := view.SeverityText()
	require.True(t, ok)
	assert.Equal(t, "ERROR", sev)

	attrs := view.Attributes()
	require.Len(t, attrs, 1)
	key, ok := attrs[0].Key()
	require.True(t, ok)
	assert.Equal(t, "http.status_code", key)

	val, ok := attrs[0].Value()
	require.True(t, ok)
	s, ok := val.AsStringValue()
	require.True(t, ok)
	assert.Equal(t, "500", s)
}

func TestMissingFieldReturnsFalseNotPanic(t *testing.T) {
	view := LogRecordView{NewRawBytes([]byte{})}
	_, ok := view.SeverityText()
	assert.False(t, ok)
	_, ok = view.Body()
	assert.False(t, ok)
}

func TestMalformedBytesDoesNotPanic(t *testing.T) {
	// Truncated varint: tag present, but no value bytes follow.
	buf := []byte{0x08}
	assert.NotPanics(t, func() {
		view := LogRecordView{NewRawBytes(buf)}
		_, _ = view.TimeUnixNano()
	})
}

func TestResourceLogsNesting(t *testing.T) {
	r1 := func() []byte {
		var rec []byte
		rec = appendBytes(rec, fnLogRecordSeverityText, []byte("INFO"))
		return rec
	}()
	var scopeLogs []byte
	scopeLogs = appendBytes(scopeLogs, fnScopeLogsRecords, r1)

	var resourceLogs []byte
	resourceLogs = appendBytes(resourceLogs, 2, scopeLogs)

	rl := ResourceLogsView{NewRawBytes(resourceLogs)}
	records := rl.ScopeLogsRecords()
	require.Len(t, records, 1)
	sev, ok := records[0].SeverityText()
	require.True(t, ok)
	assert.Equal(t, "INFO", sev)
}
