package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catgraph/catquery/internal/stream"
)

func TestSubtract_RemovesMatchesAndDeduplicates(t *testing.T) {
	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	a := []int32{1, 2, 2, 3, 4, 5}
	b := []int32{2, 4}
	Subtract(a, b, 0, 100, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "RESULT 1|3|5\n", lines[0])
}

func TestSubtract_EmitsNoOutofMarker(t *testing.T) {
	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	Subtract([]int32{1, 2}, []int32{2}, 0, 100, w)
	ch.Close()

	for l := range ch.Lines() {
		assert.NotContains(t, l, "OUTOF")
	}
}

func TestSubtract_PagingWindow(t *testing.T) {
	ch := stream.NewChanChannel(10)
	w := stream.NewWriter(ch)

	Subtract([]int32{1, 2, 3, 4, 5}, nil, 1, 2, w)
	ch.Close()

	lines := collectLines(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "RESULT 2|3\n", lines[0])
}
