package kdag

import (
	"fmt"
	"sort"

	"github.com/birdayz/dagflow/element"
	"github.com/birdayz/dagflow/pad"
)

// PadProvider is anything LinkGroup can pull a named set of source or
// sink pads from: a bare element, a Selection narrowed to a subset of
// one element's pads, or a Group combining several of either. Grounded
// on original_source/src/sgn/groups.py, where Element, PadSelection,
// and ElementGroup all expose the same srcs/snks/elements surface so
// pipeline wiring never has to special-case which one it was handed.
type PadProvider interface {
	Srcs() (map[string]*pad.Source, error)
	Snks() (map[string]*pad.Sink, error)
	Elements() []*element.Element
}

// elementProvider adapts *element.Element to PadProvider directly.
// Unlike Selection, it errors outright when asked for the direction
// the element doesn't have - matching groups.py's srcs/snks raising
// ValueError for a bare SinkElement/SourceElement placed straight in
// a group, as opposed to a PadSelection of one, which just yields {}.
type elementProvider struct{ e *element.Element }

func (p elementProvider) Srcs() (map[string]*pad.Source, error) {
	if p.e.IsSink() {
		return nil, fmt.Errorf("%w: %q is a sink element", ErrGroupWrongDirection, p.e.Name())
	}
	return p.e.Srcs(), nil
}

func (p elementProvider) Snks() (map[string]*pad.Sink, error) {
	if p.e.IsSource() {
		return nil, fmt.Errorf("%w: %q is a source element", ErrGroupWrongDirection, p.e.Name())
	}
	return p.e.Snks(), nil
}

func (p elementProvider) Elements() []*element.Element { return []*element.Element{p.e} }

// AsProvider wraps a bare element so it can be passed anywhere a
// PadProvider is expected, alongside a Selection or Group.
func AsProvider(e *element.Element) PadProvider { return elementProvider{e: e} }

// Selection narrows one element to a named subset of its pads, the Go
// shape of groups.py's PadSelection. Construct with Select.
type Selection struct {
	element  *element.Element
	padNames map[string]struct{}
}

// Select builds a Selection over element for the given pad names,
// validating that every name actually exists on the element (either
// direction), matching PadSelection.__post_init__'s eager validation.
func Select(e *element.Element, padNames ...string) (*Selection, error) {
	all := make(map[string]struct{}, len(e.Srcs())+len(e.Snks()))
	for name := range e.Srcs() {
		all[name] = struct{}{}
	}
	for name := range e.Snks() {
		all[name] = struct{}{}
	}

	names := make(map[string]struct{}, len(padNames))
	var missing []string
	for _, name := range padNames {
		if _, ok := all[name]; !ok {
			missing = append(missing, name)
			continue
		}
		names[name] = struct{}{}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %v on element %q", ErrPadNameNotOnElement, missing, e.Name())
	}
	return &Selection{element: e, padNames: names}, nil
}

// Srcs returns the selected source pads, empty if element has none.
func (s *Selection) Srcs() (map[string]*pad.Source, error) {
	out := make(map[string]*pad.Source)
	for name, p := range s.element.Srcs() {
		if _, ok := s.padNames[name]; ok {
			out[name] = p
		}
	}
	return out, nil
}

// Snks returns the selected sink pads, empty if element has none.
func (s *Selection) Snks() (map[string]*pad.Sink, error) {
	out := make(map[string]*pad.Sink)
	for name, p := range s.element.Snks() {
		if _, ok := s.padNames[name]; ok {
			out[name] = p
		}
	}
	return out, nil
}

// Elements returns the single element this selection narrows.
func (s *Selection) Elements() []*element.Element { return []*element.Element{s.element} }

// Group is a flattened bundle of elements and selections, the Go
// shape of groups.py's ElementGroup: pad extraction (Srcs/Snks) stays
// deferred until a caller asks for one side or the other, exactly as
// the original defers the source/sink decision to pipeline.connect.
type Group struct {
	items []PadProvider
}

// GroupOf flattens elements, Selections, and nested Groups into one
// Group, matching group()'s handling of ElementGroup items by
// splicing their contents in rather than nesting.
func GroupOf(items ...any) (*Group, error) {
	var flat []PadProvider
	for _, item := range items {
		switch v := item.(type) {
		case *element.Element:
			flat = append(flat, elementProvider{e: v})
		case *Selection:
			flat = append(flat, v)
		case *Group:
			flat = append(flat, v.items...)
		default:
			return nil, fmt.Errorf("kdag: GroupOf: expected *element.Element, *Selection, or *Group, got %T", item)
		}
	}
	return &Group{items: flat}, nil
}

// Select narrows a Group to the items belonging to the named elements,
// matching ElementGroup.select.
func (g *Group) Select(elementNames ...string) *Group {
	want := make(map[string]struct{}, len(elementNames))
	for _, n := range elementNames {
		want[n] = struct{}{}
	}
	var kept []PadProvider
	for _, item := range g.items {
		for _, e := range item.Elements() {
			if _, ok := want[e.Name()]; ok {
				kept = append(kept, item)
				break
			}
		}
	}
	return &Group{items: kept}
}

// Elements returns every distinct element referenced by the group's
// items, in first-seen order.
func (g *Group) Elements() []*element.Element {
	seen := make(map[string]struct{})
	var out []*element.Element
	for _, item := range g.items {
		for _, e := range item.Elements() {
			if _, ok := seen[e.Name()]; ok {
				continue
			}
			seen[e.Name()] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Srcs collects the source pads of every item in the group, keyed by
// pad name. Fails if a bare sink element sits directly in the group
// (a Selection of one just contributes nothing, per Selection.Srcs)
// or if two items contribute the same pad name.
func (g *Group) Srcs() (map[string]*pad.Source, error) {
	combined := make(map[string]*pad.Source)
	for _, item := range g.items {
		srcs, err := item.Srcs()
		if err != nil {
			return nil, err
		}
		for name, p := range srcs {
			if _, exists := combined[name]; exists {
				return nil, fmt.Errorf("%w: %q", ErrDuplicatePadInGroup, name)
			}
			combined[name] = p
		}
	}
	return combined, nil
}

// Snks collects the sink pads of every item in the group, keyed by pad
// name, with the same wrong-direction and duplicate-name handling as
// Srcs.
func (g *Group) Snks() (map[string]*pad.Sink, error) {
	combined := make(map[string]*pad.Sink)
	for _, item := range g.items {
		snks, err := item.Snks()
		if err != nil {
			return nil, err
		}
		for name, p := range snks {
			if _, exists := combined[name]; exists {
				return nil, fmt.Errorf("%w: %q", ErrDuplicatePadInGroup, name)
			}
			combined[name] = p
		}
	}
	return combined, nil
}

// LinkGroup binds every pad name that appears in both src's source
// pads and snk's sink pads, in the shape of the original's
// pipeline.connect(group_of_sources, group_of_sinks): the pad name is
// the join key, so two groups line up by naming their pads to match
// (e.g. "H1", "L1" in the original's detector-channel examples) rather
// than by position. Pad names present on only one side are left
// unbound and must be linked individually or reported as unlinked by
// Graph.Build.
func (g *Graph) LinkGroup(src, snk PadProvider) error {
	srcs, err := src.Srcs()
	if err != nil {
		return err
	}
	snks, err := snk.Snks()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(snks))
	for name := range snks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		srcPad, ok := srcs[name]
		if !ok {
			continue
		}
		if err := srcPad.Bind(snks[name]); err != nil {
			return fmt.Errorf("cannot link group pad %q (%s -> %s): %w", name, srcPad.FullName(), snks[name].FullName(), err)
		}
	}
	return nil
}
