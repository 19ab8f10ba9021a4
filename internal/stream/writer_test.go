package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_BatchesUpTo50IdsPerFrame(t *testing.T) {
	ch := NewChanChannel(10)
	w := NewWriter(ch)

	for i := int32(0); i < 50; i++ {
		w.Emit(i)
	}
	// 50 ids should have auto-flushed into exactly one frame already.
	w.Outof(50)
	ch.Close()

	var lines []string
	for l := range ch.Lines() {
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "RESULT ")
	assert.Equal(t, 50, countPipes(lines[0])+1)
	assert.Equal(t, "OUTOF 50\n", lines[1])
}

func TestWriter_FlushIsNoOpWhenEmpty(t *testing.T) {
	ch := NewChanChannel(10)
	w := NewWriter(ch)

	w.Flush()
	w.Outof(0)
	ch.Close()

	var lines []string
	for l := range ch.Lines() {
		lines = append(lines, l)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "OUTOF 0\n", lines[0])
}

func TestWriter_ResidualBatchFlushedOnDemand(t *testing.T) {
	ch := NewChanChannel(10)
	w := NewWriter(ch)

	w.Emit(1)
	w.Emit(2)
	w.Flush()
	w.Outof(2)
	ch.Close()

	var lines []string
	for l := range ch.Lines() {
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "RESULT 1|2\n", lines[0])
	assert.Equal(t, "OUTOF 2\n", lines[1])
}

func TestWriter_NoPath(t *testing.T) {
	ch := NewChanChannel(10)
	w := NewWriter(ch)

	w.NoPath()
	ch.Close()

	lines := drain(ch)
	require.Len(t, lines, 1)
	assert.Equal(t, "NOPATH\n", lines[0])
}

func countPipes(s string) int {
	n := 0
	for _, c := range s {
		if c == '|' {
			n++
		}
	}
	return n
}

func drain(ch *ChanChannel) []string {
	var lines []string
	for l := range ch.Lines() {
		lines = append(lines, l)
	}
	return lines
}
