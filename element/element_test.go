package element

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/dagflow/frame"
	"github.com/birdayz/dagflow/pad"
)

func TestNewGeneratesNameWhenEmpty(t *testing.T) {
	e, err := New("", []string{"out"}, nil, Hooks{New: func(*Element, string) (frame.Frame, error) {
		return frame.EOS(), nil
	}}, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, "", e.Name())
}

func TestNewRejectsDuplicatePadNames(t *testing.T) {
	_, err := New("e", []string{"out", "out"}, nil, Hooks{New: func(*Element, string) (frame.Frame, error) {
		return frame.EOS(), nil
	}}, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePadName))
}

func TestNewAllowsSameShortNameAcrossDirections(t *testing.T) {
	e, err := New("e", []string{"x"}, []string{"x"}, Hooks{
		Pull: func(*Element, string, frame.Frame) error { return nil },
		New:  func(*Element, string) (frame.Frame, error) { return frame.EOS(), nil },
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(e.Srcs()))
	assert.Equal(t, 1, len(e.Snks()))
}

func TestNewRequiresPullWhenSinksPresent(t *testing.T) {
	_, err := New("e", nil, []string{"in"}, Hooks{}, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, pad.ErrHookMissing))
}

func TestNewRequiresNewWhenSourcesPresent(t *testing.T) {
	_, err := New("e", []string{"out"}, nil, Hooks{}, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, pad.ErrHookMissing))
}

func TestElementRoles(t *testing.T) {
	source := Must("src", []string{"out"}, nil, Hooks{New: func(*Element, string) (frame.Frame, error) {
		return frame.EOS(), nil
	}}, nil)
	assert.True(t, source.IsSource())
	assert.False(t, source.IsSink())
	assert.False(t, source.IsTransform())

	sink := Must("snk", nil, []string{"in"}, Hooks{Pull: func(*Element, string, frame.Frame) error { return nil }}, nil)
	assert.True(t, sink.IsSink())
	assert.False(t, sink.IsSource())

	transform := Must("xform", []string{"out"}, []string{"in"}, Hooks{
		Pull: func(*Element, string, frame.Frame) error { return nil },
		New:  func(*Element, string) (frame.Frame, error) { return frame.EOS(), nil },
	}, nil)
	assert.True(t, transform.IsTransform())
}

func TestPullDispatchesToHook(t *testing.T) {
	var got frame.Frame
	e := Must("e", nil, []string{"in"}, Hooks{
		Pull: func(_ *Element, sinkPad string, f frame.Frame) error {
			got = f
			return nil
		},
	}, nil)

	assert.NoError(t, e.Pull("in", frame.New(7)))
	payload, ok := got.Payload()
	assert.True(t, ok)
	assert.Equal(t, 7, payload)
}

func TestPullNoHookIsNoop(t *testing.T) {
	e := Must("e", nil, nil, Hooks{}, nil)
	assert.NoError(t, e.Pull("nonexistent", frame.New(1)))
}

func TestNewWithoutHookErrors(t *testing.T) {
	e := Must("e", nil, nil, Hooks{}, nil)
	_, err := e.New("out")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, pad.ErrHookMissing))
}

func TestMarkEOSUnknownPad(t *testing.T) {
	e := Must("e", nil, []string{"in"}, Hooks{Pull: func(*Element, string, frame.Frame) error { return nil }}, nil)
	err := e.MarkEOS("nope")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchElement))
}

func TestMarkEOSKnownPad(t *testing.T) {
	e := Must("e", nil, []string{"in"}, Hooks{Pull: func(*Element, string, frame.Frame) error { return nil }}, nil)
	assert.NoError(t, e.MarkEOS("in"))
	assert.True(t, e.Snks()["in"].EOSReceived())
}

func TestInternalDefaultNoop(t *testing.T) {
	e := Must("e", nil, nil, Hooks{}, nil)
	assert.NoError(t, e.Internal())
}
