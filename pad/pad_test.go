package pad

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/dagflow/frame"
)

type fakeOwner struct {
	pulls    []frame.Frame
	newFrame frame.Frame
	newErr   error
}

func (f *fakeOwner) Pull(sinkPad string, fr frame.Frame) error {
	f.pulls = append(f.pulls, fr)
	return nil
}

func (f *fakeOwner) New(sourcePad string) (frame.Frame, error) {
	return f.newFrame, f.newErr
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "el:src:out", FullName("el", Src, "out"))
	assert.Equal(t, "el:snk:in", FullName("el", Snk, "in"))
}

func TestSourceBindAndCall(t *testing.T) {
	owner := &fakeOwner{newFrame: frame.New(1)}
	src := NewSource(owner, "e1", "out")
	sinkOwner := &fakeOwner{}
	sink := NewSink(sinkOwner, "e2", "in")

	assert.NoError(t, src.Bind(sink))
	assert.Equal(t, []*Sink{sink}, src.Sinks())
	assert.Equal(t, src, sink.Source())
	assert.True(t, sink.Bound())

	f, err := src.Call()
	assert.NoError(t, err)
	payload, ok := f.Payload()
	assert.True(t, ok)
	assert.Equal(t, 1, payload)
	assert.False(t, src.EOSSent())
}

func TestSourceCallSetsEOSSent(t *testing.T) {
	owner := &fakeOwner{newFrame: frame.EOS()}
	src := NewSource(owner, "e1", "out")

	f, err := src.Call()
	assert.NoError(t, err)
	assert.True(t, f.IsEOS())
	assert.True(t, src.EOSSent())

	_, err = src.Call()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrEOSAlreadySet))
}

func TestBindAlreadyBoundSink(t *testing.T) {
	owner := &fakeOwner{}
	src1 := NewSource(owner, "e1", "out")
	src2 := NewSource(owner, "e2", "out")
	sink := NewSink(owner, "e3", "in")

	assert.NoError(t, src1.Bind(sink))
	err := src2.Bind(sink)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyBound))
}

func TestSinkOneSlotInvariant(t *testing.T) {
	owner := &fakeOwner{}
	sink := NewSink(owner, "e1", "in")

	assert.NoError(t, sink.SetPending(frame.New(1)))
	err := sink.SetPending(frame.New(2))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotOccupied))

	f, ok := sink.Pending()
	assert.True(t, ok)
	payload, _ := f.Payload()
	assert.Equal(t, 1, payload)

	sink.ClearPending()
	_, ok = sink.Pending()
	assert.False(t, ok)
	assert.NoError(t, sink.SetPending(frame.New(2)))
}

func TestSinkDeliverRecordsEOS(t *testing.T) {
	owner := &fakeOwner{}
	sink := NewSink(owner, "e1", "in")

	assert.False(t, sink.EOSReceived())
	assert.NoError(t, sink.Deliver(frame.New(1)))
	assert.False(t, sink.EOSReceived())
	assert.Equal(t, []frame.Frame{frame.New(1)}, owner.pulls)

	assert.NoError(t, sink.Deliver(frame.EOS()))
	assert.True(t, sink.EOSReceived())
}

func TestSinkMarkEOS(t *testing.T) {
	owner := &fakeOwner{}
	sink := NewSink(owner, "e1", "in")
	assert.False(t, sink.EOSReceived())
	sink.MarkEOS()
	assert.True(t, sink.EOSReceived())
}
