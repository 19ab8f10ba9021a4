package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/stream"
)

func TestPath_FindsRouteToNestedCategory(t *testing.T) {
	store := buildDiamond()
	bufs := graph.NewBuffers(store.N())

	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	Path(store, bufs, 0, 1, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "RESULT 0|1\n", lines[0])
}

func TestPath_FindsRouteToContainedFile(t *testing.T) {
	store := buildDiamond()
	bufs := graph.NewBuffers(store.N())

	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	// file 100 is directly contained by category 1, the first child
	// explored from the root; the path is the route of CATEGORIES down
	// to (and including) that containing category, not the file itself.
	Path(store, bufs, 0, 100, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "RESULT 0|1\n", lines[0])
}

func TestPath_StartNodeItselfCanMatch(t *testing.T) {
	store := buildDiamond()
	bufs := graph.NewBuffers(store.N())

	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	Path(store, bufs, 0, 0, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "RESULT 0\n", lines[0])
}

func TestPath_NoPathWhenUnreachable(t *testing.T) {
	store := buildDiamond()
	bufs := graph.NewBuffers(store.N())

	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	// category 1 has no subcategories and directly contains only files
	// 100 and 101; 3 is a file id not contained anywhere under 1.
	Path(store, bufs, 1, 3, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "NOPATH\n", lines[0])
}
