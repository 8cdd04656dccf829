package kdag

import "fmt"

// DAG is a validated, frozen Graph: elements are fixed, every sink pad
// is bound, the element-level graph is acyclic, and a deterministic
// topological execution order has been computed. It is safe for
// concurrent reads.
type DAG struct {
	graph      *Graph
	order      []string
	upstream   map[string][]string
	downstream map[string][]string
}

// Build validates g and, on success, freezes it into a DAG. Validation
// order follows spec §4.4: unlinked pads first, then cycles. Orphan
// elements (whose output never reaches a sink) are reported as
// warnings rather than failing the build, per the deliberately relaxed
// Non-goal: spec §4.4 only names unlinked-pad and cycle as errors.
func (g *Graph) Build() (*DAG, []string, error) {
	if err := g.validateUnlinked(); err != nil {
		return nil, nil, err
	}

	children, parents := g.adjacency()
	if err := detectCycles(children); err != nil {
		return nil, nil, err
	}

	order, err := topologicalSort(g.order, children, parents)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	for _, orphan := range g.findOrphans(parents) {
		warnings = append(warnings, fmt.Sprintf("element %q's output never reaches a sink element", orphan))
	}

	return &DAG{
		graph:      g,
		order:      order,
		upstream:   parents,
		downstream: children,
	}, warnings, nil
}

// MustBuild is like Build but panics on validation failure, in the
// teacher's MustBuild/MustRegisterStore idiom. Warnings are discarded;
// callers that care about them should use Build directly.
func (g *Graph) MustBuild() *DAG {
	dag, _, err := g.Build()
	if err != nil {
		panic(err)
	}
	return dag
}

// Graph returns the underlying build-time graph this DAG was frozen
// from, for read access to elements and pads.
func (d *DAG) Graph() *Graph { return d.graph }

// Order returns the deterministic topological execution order,
// element names from sources toward sinks.
func (d *DAG) Order() []string { return d.order }

// Upstream returns the names of elements with an edge directly into
// name.
func (d *DAG) Upstream(name string) []string { return d.upstream[name] }

// Downstream returns the names of elements name has a direct edge
// into.
func (d *DAG) Downstream(name string) []string { return d.downstream[name] }

// Stats delegates to the underlying Graph.
func (d *DAG) Stats() Stats { return d.graph.Stats() }

// AllSourcesDone reports whether every source pad in the DAG has sent
// its terminal frame - half of the scheduler's termination condition
// (spec §4.6).
func (d *DAG) AllSourcesDone() bool {
	for _, e := range d.graph.Elements() {
		for _, src := range e.Srcs() {
			if !src.EOSSent() {
				return false
			}
		}
	}
	return true
}

// NoPendingFrames reports whether every sink pad's one-slot buffer is
// currently empty - the other half of the scheduler's termination
// condition (spec §4.6).
func (d *DAG) NoPendingFrames() bool {
	for _, e := range d.graph.Elements() {
		for _, snk := range e.Snks() {
			if _, ok := snk.Pending(); ok {
				return false
			}
		}
	}
	return true
}

// Terminated reports the full spec §4.6 termination condition: no
// source pad has a frame left to produce, and no sink pad holds an
// undelivered one.
func (d *DAG) Terminated() bool {
	return d.AllSourcesDone() && d.NoPendingFrames()
}
