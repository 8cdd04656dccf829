package frame

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNew(t *testing.T) {
	f := New(42)
	payload, ok := f.Payload()
	assert.True(t, ok)
	assert.Equal(t, 42, payload)
	assert.False(t, f.IsEOS())
}

func TestEOS(t *testing.T) {
	f := EOS()
	_, ok := f.Payload()
	assert.False(t, ok)
	assert.True(t, f.IsEOS())
}

func TestEOSWithPayload(t *testing.T) {
	f := EOSWithPayload("last")
	payload, ok := f.Payload()
	assert.True(t, ok)
	assert.Equal(t, "last", payload)
	assert.True(t, f.IsEOS())
}

func TestZeroValueHasNoPayload(t *testing.T) {
	var f Frame
	_, ok := f.Payload()
	assert.False(t, ok)
	assert.False(t, f.IsEOS())
}
