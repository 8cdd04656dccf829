// Package kdag is the build-time representation of a processing DAG:
// a set of elements and the pad-to-pad edges between them. It is
// grounded on the teacher's kdag package (birdayz/kstreams), which
// keeps exactly this split between a structural, validate-then-freeze
// Graph/Builder and a separate runtime execution layer. Where the
// teacher's Node carries Kafka key/value reflect.Type signatures, ours
// carries nothing but pad names, because spec payloads are opaque.
package kdag

import (
	"fmt"

	"github.com/birdayz/dagflow/element"
)

// Graph is the mutable build-time DAG. Elements and edges accumulate
// on it via Insert/Link; Build freezes it into a DAG after validation.
//
// Graph is NOT safe for concurrent use during construction, matching
// the teacher's Builder docstring. The resulting DAG is immutable and
// safe to use concurrently for reads.
type Graph struct {
	elements map[string]*element.Element
	order    []string // insertion order, for deterministic iteration pre-topo-sort
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{elements: make(map[string]*element.Element)}
}

// Insert adds one or more elements to the graph. Fails without adding
// any of them if a name collides.
func (g *Graph) Insert(elements ...*element.Element) error {
	for _, e := range elements {
		if _, exists := g.elements[e.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrElementAlreadyExists, e.Name())
		}
	}
	for _, e := range elements {
		g.elements[e.Name()] = e
		g.order = append(g.order, e.Name())
	}
	return nil
}

// Element looks up an element by name.
func (g *Graph) Element(name string) (*element.Element, bool) {
	e, ok := g.elements[name]
	return e, ok
}

// Elements returns all elements in insertion order.
func (g *Graph) Elements() []*element.Element {
	out := make([]*element.Element, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.elements[name])
	}
	return out
}

// Link binds sinkElement's sinkPad to sourceElement's sourcePad,
// forming one edge. It fails with ErrPadAlreadyBound if the sink is
// already bound, and ErrPadNotFound/ErrElementNotFound if either side
// does not exist.
func (g *Graph) Link(sourceElement, sourcePad, sinkElement, sinkPad string) error {
	src, ok := g.elements[sourceElement]
	if !ok {
		return fmt.Errorf("%w: source element %q", ErrElementNotFound, sourceElement)
	}
	snk, ok := g.elements[sinkElement]
	if !ok {
		return fmt.Errorf("%w: sink element %q", ErrElementNotFound, sinkElement)
	}

	srcPad, ok := src.Srcs()[sourcePad]
	if !ok {
		return fmt.Errorf("%w: %s:src:%s", ErrPadNotFound, sourceElement, sourcePad)
	}
	snkPad, ok := snk.Snks()[sinkPad]
	if !ok {
		return fmt.Errorf("%w: %s:snk:%s", ErrPadNotFound, sinkElement, sinkPad)
	}

	if err := srcPad.Bind(snkPad); err != nil {
		return fmt.Errorf("cannot link %s -> %s: %w", srcPad.FullName(), snkPad.FullName(), err)
	}
	return nil
}

// LinkSpec is a single edge for InsertWithLinks' link_map convenience,
// matching spec §6's "insert(*elements, link_map=?)".
type LinkSpec struct {
	SourceElement, SourcePad string
	SinkElement, SinkPad     string
}

// InsertWithLinks inserts elements and then applies links in one step.
func (g *Graph) InsertWithLinks(links []LinkSpec, elements ...*element.Element) error {
	if err := g.Insert(elements...); err != nil {
		return err
	}
	for _, l := range links {
		if err := g.Link(l.SourceElement, l.SourcePad, l.SinkElement, l.SinkPad); err != nil {
			return err
		}
	}
	return nil
}

// Stats is a small read-only introspection summary, in the spirit of
// the teacher's DAG.HasStatefulProcessors/DAG.GetTopics accessors.
type Stats struct {
	Elements   int
	Sources    int
	Sinks      int
	Transforms int
	Edges      int
}

// Stats summarizes the graph's current shape.
func (g *Graph) Stats() Stats {
	var s Stats
	s.Elements = len(g.elements)
	for _, e := range g.elements {
		switch {
		case e.IsSource():
			s.Sources++
		case e.IsSink():
			s.Sinks++
		case e.IsTransform():
			s.Transforms++
		}
		for _, src := range e.Srcs() {
			s.Edges += len(src.Sinks())
		}
	}
	return s
}
