package kdag

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/dagflow/element"
	"github.com/birdayz/dagflow/frame"
)

func multiSource(name string, padNames ...string) *element.Element {
	return element.Must(name, padNames, nil, element.Hooks{
		New: func(*element.Element, string) (frame.Frame, error) { return frame.EOS(), nil },
	}, nil)
}

func multiSink(name string, padNames ...string) *element.Element {
	return element.Must(name, nil, padNames, element.Hooks{
		Pull: func(*element.Element, string, frame.Frame) error { return nil },
	}, nil)
}

func TestSelectValidatesPadNames(t *testing.T) {
	src := multiSource("src", "H1", "L1", "V1")
	sel, err := Select(src, "H1", "L1")
	assert.NoError(t, err)
	srcs, err := sel.Srcs()
	assert.NoError(t, err)
	assert.Equal(t, 2, len(srcs))

	_, err = Select(src, "V2")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrPadNameNotOnElement))
}

func TestSelectSrcsExcludesUnselected(t *testing.T) {
	src := multiSource("src", "H1", "L1", "V1")
	sel, err := Select(src, "H1", "V1")
	assert.NoError(t, err)

	srcs, err := sel.Srcs()
	assert.NoError(t, err)
	_, hasH1 := srcs["H1"]
	_, hasL1 := srcs["L1"]
	assert.True(t, hasH1)
	assert.False(t, hasL1)

	sink := multiSink("sink", "data")
	sinkSel, err := Select(sink, "data")
	assert.NoError(t, err)
	emptySrcs, err := sinkSel.Srcs()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(emptySrcs))
}

func TestGroupOfFlattensNestedGroups(t *testing.T) {
	src1 := multiSource("src1", "H1")
	src2 := multiSource("src2", "L1")
	src3 := multiSource("src3", "V1")

	g1, err := GroupOf(src1, src2)
	assert.NoError(t, err)
	g2, err := GroupOf(g1, src3)
	assert.NoError(t, err)

	assert.Equal(t, 3, len(g2.Elements()))
}

func TestGroupOfRejectsUnknownType(t *testing.T) {
	_, err := GroupOf("not an element")
	assert.Error(t, err)
}

func TestGroupSelectNarrowsByElementName(t *testing.T) {
	src1 := multiSource("src1", "H1")
	src2 := multiSource("src2", "L1")
	src3 := multiSource("src3", "V1")

	g, err := GroupOf(src1, src2, src3)
	assert.NoError(t, err)
	narrowed := g.Select("src1", "src3")

	names := make(map[string]bool)
	for _, e := range narrowed.Elements() {
		names[e.Name()] = true
	}
	assert.Equal(t, 2, len(names))
	assert.True(t, names["src1"])
	assert.True(t, names["src3"])
	assert.False(t, names["src2"])
}

func TestGroupSrcsCombinesAllPads(t *testing.T) {
	src1 := multiSource("src1", "H1")
	src2 := multiSource("src2", "L1", "V1")

	g, err := GroupOf(src1, src2)
	assert.NoError(t, err)
	srcs, err := g.Srcs()
	assert.NoError(t, err)
	assert.Equal(t, 3, len(srcs))
}

func TestGroupSrcsDuplicatePadNameErrors(t *testing.T) {
	src1 := multiSource("src1", "H1")
	src2 := multiSource("src2", "H1")

	g, err := GroupOf(src1, src2)
	assert.NoError(t, err)
	_, err = g.Srcs()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePadInGroup))
}

func TestGroupSrcsRejectsSinkElement(t *testing.T) {
	src := multiSource("src", "H1")
	sink := multiSink("sink", "in")

	g, err := GroupOf(src, sink)
	assert.NoError(t, err)
	_, err = g.Srcs()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrGroupWrongDirection))
}

func TestLinkGroupBindsByMatchingPadName(t *testing.T) {
	src1 := multiSource("src1", "H1")
	src2 := multiSource("src2", "L1")
	sink := multiSink("sink", "H1", "L1")

	sources, err := GroupOf(src1, src2)
	assert.NoError(t, err)

	g := NewGraph()
	assert.NoError(t, g.Insert(src1, src2, sink))
	assert.NoError(t, g.LinkGroup(sources, AsProvider(sink)))

	dag, warnings, err := g.Build()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, 3, len(dag.Order()))
}
