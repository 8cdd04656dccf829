// Package element implements the stateful graph node the scheduler
// drives: a small state machine that alternately consumes frames on
// its sink pads and produces frames on its source pads.
//
// Following the source's function-value hook dispatch (see
// internal/runtime/node.go's Node interface in the teacher, which
// keeps behavior out of an inheritance hierarchy), hooks are stored as
// function values on Element rather than expressed through an
// interface a caller must implement in full. A hook left nil is
// simply skipped by the scheduler.
package element

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/birdayz/dagflow/frame"
	"github.com/birdayz/dagflow/pad"
)

// Sentinel construction errors (spec §7 "Construction errors").
var (
	ErrEmptyName        = errors.New("element name cannot be empty")
	ErrDuplicatePadName = errors.New("duplicate pad name")
	ErrUnknownPad       = errors.New("unknown pad")
	ErrNoSuchElement    = errors.New("no such sink pad on element")
)

// PullFunc handles a frame delivered to a sink pad. It MUST NOT block
// indefinitely and MUST NOT produce frames; it may call
// Element.MarkEOS to declare upstream exhaustion.
type PullFunc func(e *Element, sinkPad string, f frame.Frame) error

// InternalFunc runs once per scheduling tick, after all of a tick's
// Pull calls and before any New call.
type InternalFunc func(e *Element) error

// NewFunc produces the next frame for a source pad. It MUST return a
// non-zero Frame; returning frame.EOS() (or EOSWithPayload) marks the
// pad terminal.
type NewFunc func(e *Element, sourcePad string) (frame.Frame, error)

// Hooks bundles an element's three optional lifecycle callbacks.
type Hooks struct {
	Pull     PullFunc
	Internal InternalFunc
	New      NewFunc
}

// Element is a node in the graph: a unique name, ordered source and
// sink pad lists, opaque user state, and the three lifecycle hooks.
type Element struct {
	name  string
	state any
	hooks Hooks

	srcOrder []string
	snkOrder []string
	srcPads  map[string]*pad.Source
	snkPads  map[string]*pad.Sink
}

// New constructs an element. If name is empty, a unique identifier is
// generated (Design Note §9: "UUID-ish default names ... used only
// for diagnostics and topological tie-breaking"). srcNames/snkNames
// must each be free of duplicates within their own direction; source
// and sink namespaces are independent, so the same short name may
// appear in both.
func New(name string, srcNames, snkNames []string, hooks Hooks, state any) (*Element, error) {
	if name == "" {
		name = uuid.NewString()
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	e := &Element{
		name:     name,
		state:    state,
		hooks:    hooks,
		srcOrder: append([]string(nil), srcNames...),
		snkOrder: append([]string(nil), snkNames...),
		srcPads:  make(map[string]*pad.Source, len(srcNames)),
		snkPads:  make(map[string]*pad.Sink, len(snkNames)),
	}

	for _, n := range srcNames {
		if _, exists := e.srcPads[n]; exists {
			return nil, fmt.Errorf("%w: source pad %q on element %q", ErrDuplicatePadName, n, name)
		}
		e.srcPads[n] = pad.NewSource(e, name, n)
	}
	for _, n := range snkNames {
		if _, exists := e.snkPads[n]; exists {
			return nil, fmt.Errorf("%w: sink pad %q on element %q", ErrDuplicatePadName, n, name)
		}
		e.snkPads[n] = pad.NewSink(e, name, n)
	}

	if len(snkNames) > 0 && hooks.Pull == nil {
		return nil, fmt.Errorf("%w: element %q has sink pads but no Pull hook", pad.ErrHookMissing, name)
	}
	if len(srcNames) > 0 && hooks.New == nil {
		return nil, fmt.Errorf("%w: element %q has source pads but no New hook", pad.ErrHookMissing, name)
	}

	return e, nil
}

// Must is like New but panics on error, mirroring the teacher's
// MustBuild/MustRegisterStore convention.
func Must(name string, srcNames, snkNames []string, hooks Hooks, state any) *Element {
	e, err := New(name, srcNames, snkNames, hooks, state)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the element's unique name.
func (e *Element) Name() string { return e.name }

// State returns the opaque user state handed to New, for hooks to
// type-assert back to their own concrete type.
func (e *Element) State() any { return e.state }

// SrcOrder returns source pad short names in declaration order.
func (e *Element) SrcOrder() []string { return e.srcOrder }

// SnkOrder returns sink pad short names in declaration order.
func (e *Element) SnkOrder() []string { return e.snkOrder }

// Srcs returns the element's source pads keyed by short name.
func (e *Element) Srcs() map[string]*pad.Source { return e.srcPads }

// Snks returns the element's sink pads keyed by short name.
func (e *Element) Snks() map[string]*pad.Sink { return e.snkPads }

// IsSource reports whether the element has only source pads.
func (e *Element) IsSource() bool { return len(e.snkPads) == 0 && len(e.srcPads) > 0 }

// IsSink reports whether the element has only sink pads.
func (e *Element) IsSink() bool { return len(e.srcPads) == 0 && len(e.snkPads) > 0 }

// IsTransform reports whether the element has both source and sink pads.
func (e *Element) IsTransform() bool { return len(e.srcPads) > 0 && len(e.snkPads) > 0 }

// MarkEOS declares sinkPad drained, per the element's own upstream
// exhaustion policy - independent of whatever EOS flag the most
// recently delivered frame carried.
func (e *Element) MarkEOS(sinkPad string) error {
	sink, ok := e.snkPads[sinkPad]
	if !ok {
		return fmt.Errorf("%w: %q on element %q", ErrNoSuchElement, sinkPad, e.name)
	}
	sink.MarkEOS()
	return nil
}

// Pull implements pad.Owner by dispatching to the Pull hook, if any.
func (e *Element) Pull(sinkPad string, f frame.Frame) error {
	if e.hooks.Pull == nil {
		return nil
	}
	return e.hooks.Pull(e, sinkPad, f)
}

// New implements pad.Owner by dispatching to the New hook.
func (e *Element) New(sourcePad string) (frame.Frame, error) {
	if e.hooks.New == nil {
		return frame.Frame{}, fmt.Errorf("%w: element %q has no New hook", pad.ErrHookMissing, e.name)
	}
	return e.hooks.New(e, sourcePad)
}

// Internal dispatches to the Internal hook, if any; the default is a
// no-op, matching spec §4.3.
func (e *Element) Internal() error {
	if e.hooks.Internal == nil {
		return nil
	}
	return e.hooks.Internal(e)
}

var _ pad.Owner = (*Element)(nil)
