// Package pad implements the named ports elements expose and the
// edges that bind them. A pad is owned exclusively by its element;
// its lifetime equals the element's. Pads hold a non-owning back-link
// to their owning element (an Owner implementation) rather than a
// direct reference, so this package never needs to import element -
// the same trick the teacher uses in internal/runtime/node.go to keep
// InputProcessor generic without an import cycle back to the DAG.
package pad

import (
	"errors"
	"fmt"

	"github.com/birdayz/dagflow/frame"
)

// Direction distinguishes source (output) pads from sink (input) pads.
type Direction int

const (
	// Src is a source (output) pad.
	Src Direction = iota
	// Snk is a sink (input) pad.
	Snk
)

func (d Direction) String() string {
	switch d {
	case Src:
		return "src"
	case Snk:
		return "snk"
	default:
		return "unknown"
	}
}

// Sentinel errors for pad-level construction and binding failures.
var (
	ErrAlreadyBound  = errors.New("pad already bound")
	ErrSlotOccupied  = errors.New("scheduling invariant violated: sink pad slot occupied")
	ErrHookMissing   = errors.New("required hook not set")
	ErrEOSAlreadySet = errors.New("new called on already-EOS source pad")
)

// Owner is implemented by the element that owns a pad. It is the
// dispatch surface pads call into; it exists so this package never
// needs to import the element package.
type Owner interface {
	// Pull delivers a frame to the named sink pad.
	Pull(sinkPad string, f frame.Frame) error
	// New produces the next frame for the named source pad.
	New(sourcePad string) (frame.Frame, error)
}

// FullName renders a pad's full name of the form
// "<element>:<dir>:<short>".
func FullName(element string, dir Direction, short string) string {
	return fmt.Sprintf("%s:%s:%s", element, dir, short)
}

// Source is a source (output) pad. A source pad may fan out to any
// number of sink pads.
type Source struct {
	owner   Owner
	element string
	name    string

	sinks      []*Sink
	eosSent    bool
	callsMade  int
}

// NewSource constructs a source pad owned by owner.
func NewSource(owner Owner, element, name string) *Source {
	return &Source{owner: owner, element: element, name: name}
}

// Element returns the name of the owning element.
func (s *Source) Element() string { return s.element }

// Name returns the pad's short name.
func (s *Source) Name() string { return s.name }

// FullName returns "<element>:src:<name>".
func (s *Source) FullName() string { return FullName(s.element, Src, s.name) }

// EOSSent reports whether this pad has already emitted its terminal
// frame. Once true, Call must not be invoked again on this pad.
func (s *Source) EOSSent() bool { return s.eosSent }

// Sinks returns the sink pads currently bound to this source pad, in
// bind order. The returned slice must not be mutated by callers.
func (s *Source) Sinks() []*Sink { return s.sinks }

// Bind fan-out binds a sink pad to this source pad. Fails if the sink
// pad is already bound to a different source.
func (s *Source) Bind(sink *Sink) error {
	if sink.source != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, sink.FullName())
	}
	sink.source = s
	s.sinks = append(s.sinks, sink)
	return nil
}

// Call invokes the owning element's New hook for this pad. It is a
// scheduling-invariant error to call it again after EOS has been
// sent.
func (s *Source) Call() (frame.Frame, error) {
	if s.eosSent {
		return frame.Frame{}, fmt.Errorf("%w: %s", ErrEOSAlreadySet, s.FullName())
	}
	f, err := s.owner.New(s.name)
	if err != nil {
		return frame.Frame{}, err
	}
	s.callsMade++
	if f.IsEOS() {
		s.eosSent = true
	}
	return f, nil
}

// Sink is a sink (input) pad. It is bound to exactly one source pad
// and holds a single-slot buffer for the most recently produced,
// not-yet-delivered frame.
type Sink struct {
	owner   Owner
	element string
	name    string

	source      *Source
	pending     *frame.Frame
	eosReceived bool
}

// NewSink constructs a sink pad owned by owner.
func NewSink(owner Owner, element, name string) *Sink {
	return &Sink{owner: owner, element: element, name: name}
}

// Element returns the name of the owning element.
func (k *Sink) Element() string { return k.element }

// Name returns the pad's short name.
func (k *Sink) Name() string { return k.name }

// FullName returns "<element>:snk:<name>".
func (k *Sink) FullName() string { return FullName(k.element, Snk, k.name) }

// Source returns the source pad this sink is bound to, or nil if
// unbound.
func (k *Sink) Source() *Source { return k.source }

// Bound reports whether this sink pad is bound to a source pad.
func (k *Sink) Bound() bool { return k.source != nil }

// EOSReceived reports whether this pad has observed a terminal frame,
// either delivered with EOS set or explicitly marked via MarkEOS.
func (k *Sink) EOSReceived() bool { return k.eosReceived }

// MarkEOS records this sink pad as drained. Called by an element's
// Pull hook (via element.MarkEOS) to declare upstream exhaustion from
// its own perspective, independent of whether the delivered frame
// itself carried EOS.
func (k *Sink) MarkEOS() { k.eosReceived = true }

// SetPending places f into the pad's one-slot buffer. It is a fatal
// scheduling-invariant violation to write into an occupied slot: the
// topological order guarantees the previous occupant was already
// delivered and cleared earlier in the same tick.
func (k *Sink) SetPending(f frame.Frame) error {
	if k.pending != nil {
		return fmt.Errorf("%w: %s", ErrSlotOccupied, k.FullName())
	}
	cp := f
	k.pending = &cp
	return nil
}

// Pending returns the buffered frame, if any.
func (k *Sink) Pending() (frame.Frame, bool) {
	if k.pending == nil {
		return frame.Frame{}, false
	}
	return *k.pending, true
}

// ClearPending empties the one-slot buffer after delivery.
func (k *Sink) ClearPending() { k.pending = nil }

// Deliver invokes the owning element's Pull hook with f, then records
// EOS if f carries the terminal marker. Deliver does not clear the
// pending slot and does not itself enforce that f was actually the
// buffered frame; callers (the scheduler) are responsible for that
// sequencing and call ClearPending after a successful delivery.
func (k *Sink) Deliver(f frame.Frame) error {
	if err := k.owner.Pull(k.name, f); err != nil {
		return err
	}
	if f.IsEOS() {
		k.eosReceived = true
	}
	return nil
}
