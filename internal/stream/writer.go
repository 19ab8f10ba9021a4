package stream

import (
	"strconv"
	"strings"
)

// batchSize is the number of ids accumulated into one RESULT frame
// before it is flushed (spec §4.6: "up to 50 ids joined by |").
const batchSize = 50

// Writer implements the two-tier batching of spec §4.6 over a Channel:
// ids accumulate into a batch buffer and are flushed as one RESULT
// frame, with any residual batch flushed at the end of the operator.
type Writer struct {
	ch      Channel
	pending strings.Builder
	queued  int
}

// NewWriter creates a Writer over ch.
func NewWriter(ch Channel) *Writer {
	return &Writer{ch: ch}
}

// Emit queues one result id, flushing a RESULT frame once batchSize ids
// have accumulated.
func (w *Writer) Emit(id int32) {
	if w.queued > 0 {
		w.pending.WriteByte('|')
	}
	w.pending.WriteString(strconv.FormatInt(int64(id), 10))
	w.queued++
	if w.queued == batchSize {
		w.Flush()
	}
}

// Flush writes any accumulated batch as a single RESULT frame. A no-op
// if nothing is queued.
func (w *Writer) Flush() {
	if w.queued == 0 {
		return
	}
	_ = w.ch.WriteLine("RESULT " + w.pending.String() + "\n")
	w.pending.Reset()
	w.queued = 0
}

// Outof emits the trailing size/estimate marker. Callers must Flush
// before calling Outof so the marker follows the last RESULT frame.
func (w *Writer) Outof(n int) {
	_ = w.ch.WriteLine("OUTOF " + strconv.Itoa(n) + "\n")
}

// NoPath emits the PATH-failure marker.
func (w *Writer) NoPath() {
	_ = w.ch.WriteLine("NOPATH\n")
}

// Done emits the socket-mode terminal marker.
func (w *Writer) Done() {
	_ = w.ch.WriteLine("DONE\n")
}

// Status emits a socket-mode WAITING frame.
func (w *Writer) Status(queuedAhead int) {
	_ = w.ch.WriteLine("WAITING " + strconv.Itoa(queuedAhead) + "\n")
}

// Working emits a socket-mode WORKING frame with the current
// intermediate buffer sizes.
func (w *Writer) Working(fnumA, fnumB int) {
	_ = w.ch.WriteLine("WORKING " + strconv.Itoa(fnumA) + " " + strconv.Itoa(fnumB) + "\n")
}

// Queued emits the socket-mode QUEUED frame on enqueue.
func (w *Writer) Queued(ahead int) {
	_ = w.ch.WriteLine("QUEUED " + strconv.Itoa(ahead) + "\n")
}

// ComputeStart emits the socket-mode compute-starting frame.
func (w *Writer) ComputeStart() {
	_ = w.ch.WriteLine("COMPUTE_START\n")
}

// Channel returns the underlying reply channel.
func (w *Writer) Channel() Channel {
	return w.ch
}
