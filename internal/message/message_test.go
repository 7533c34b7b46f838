package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsShutdown(t *testing.T) {
	m := ShutdownCtrlMsg[int](50*time.Millisecond, "drain")
	assert.True(t, m.IsShutdown())
	assert.False(t, m.Control.IsImmediate())

	imm := ShutdownCtrlMsg[int](0, "stop")
	assert.True(t, imm.IsShutdown())
	assert.True(t, imm.Control.IsImmediate())

	data := DataMsg(42)
	assert.False(t, data.IsShutdown())
	assert.Equal(t, 42, data.Data)
}

func TestAckNackHelpers(t *testing.T) {
	ack := AckCtrlMsg[string](7)
	assert.Equal(t, ControlAck, ack.Control.Kind)
	assert.EqualValues(t, 7, ack.Control.ID)

	nack := NackCtrlMsg[string](8, "boom")
	assert.Equal(t, ControlNack, nack.Control.Kind)
	assert.Equal(t, "boom", nack.Control.Reason)
}
