package kdag

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/dagflow/element"
	"github.com/birdayz/dagflow/frame"
)

func sourceElement(name, pad string) *element.Element {
	return element.Must(name, []string{pad}, nil, element.Hooks{
		New: func(*element.Element, string) (frame.Frame, error) { return frame.EOS(), nil },
	}, nil)
}

func sinkElement(name, pad string) *element.Element {
	return element.Must(name, nil, []string{pad}, element.Hooks{
		Pull: func(*element.Element, string, frame.Frame) error { return nil },
	}, nil)
}

func transformElement(name, srcPad, snkPad string) *element.Element {
	return element.Must(name, []string{srcPad}, []string{snkPad}, element.Hooks{
		Pull: func(*element.Element, string, frame.Frame) error { return nil },
		New:  func(*element.Element, string) (frame.Frame, error) { return frame.EOS(), nil },
	}, nil)
}

func TestInsertRejectsDuplicateNames(t *testing.T) {
	g := NewGraph()
	assert.NoError(t, g.Insert(sourceElement("a", "out")))
	err := g.Insert(sourceElement("a", "out"))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrElementAlreadyExists))
}

func TestInsertIsAllOrNothing(t *testing.T) {
	g := NewGraph()
	assert.NoError(t, g.Insert(sourceElement("a", "out")))
	err := g.Insert(sourceElement("b", "out"), sourceElement("a", "out"))
	assert.Error(t, err)
	_, exists := g.Element("b")
	assert.False(t, exists)
}

func TestLinkUnknownElement(t *testing.T) {
	g := NewGraph()
	assert.NoError(t, g.Insert(sourceElement("a", "out")))
	err := g.Link("a", "out", "missing", "in")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrElementNotFound))
}

func TestLinkUnknownPad(t *testing.T) {
	g := NewGraph()
	assert.NoError(t, g.Insert(sourceElement("a", "out"), sinkElement("b", "in")))
	err := g.Link("a", "nope", "b", "in")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrPadNotFound))
}

func TestBuildUnlinkedPad(t *testing.T) {
	g := NewGraph()
	assert.NoError(t, g.Insert(sourceElement("a", "out"), sinkElement("b", "in")))
	_, _, err := g.Build()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnlinkedPad))
}

func TestBuildDetectsCycle(t *testing.T) {
	g := NewGraph()
	a := transformElement("a", "out", "in")
	b := transformElement("b", "out", "in")
	assert.NoError(t, g.Insert(a, b))
	assert.NoError(t, g.Link("a", "out", "b", "in"))
	assert.NoError(t, g.Link("b", "out", "a", "in"))

	_, _, err := g.Build()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleDetected))
}

func TestBuildOrdersTopologically(t *testing.T) {
	g := NewGraph()
	source := sourceElement("a", "out")
	transform := transformElement("b", "out", "in")
	sink := sinkElement("c", "in")
	assert.NoError(t, g.Insert(sink, transform, source))
	assert.NoError(t, g.Link("a", "out", "b", "in"))
	assert.NoError(t, g.Link("b", "out", "c", "in"))

	dag, warnings, err := g.Build()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, []string{"a", "b", "c"}, dag.Order())
}

func TestBuildReportsOrphanAsWarningNotError(t *testing.T) {
	g := NewGraph()
	source := sourceElement("a", "out")
	sink := sinkElement("b", "in")
	orphan := sourceElement("c", "out2")
	assert.NoError(t, g.Insert(source, sink, orphan))
	assert.NoError(t, g.Link("a", "out", "b", "in"))

	dag, warnings, err := g.Build()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(warnings))
	assert.NotZero(t, dag)
}

func TestStats(t *testing.T) {
	g := NewGraph()
	source := sourceElement("a", "out")
	transform := transformElement("b", "out", "in")
	sink1 := sinkElement("c", "in")
	sink2 := sinkElement("d", "in")
	assert.NoError(t, g.Insert(source, transform, sink1, sink2))
	assert.NoError(t, g.Link("a", "out", "b", "in"))
	assert.NoError(t, g.Link("b", "out", "c", "in"))
	assert.NoError(t, g.Link("b", "out", "d", "in"))

	stats := g.Stats()
	assert.Equal(t, 4, stats.Elements)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 1, stats.Transforms)
	assert.Equal(t, 2, stats.Sinks)
	assert.Equal(t, 2, stats.Edges)
}
