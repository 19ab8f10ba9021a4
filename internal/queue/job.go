package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/catgraph/catquery/internal/stream"
)

// Kind is the job kind classified by intake from the request's action
// parameter.
type Kind int

const (
	KindList Kind = iota
	KindAnd
	KindNot
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindAnd:
		return "and"
	case KindNot:
		return "not"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// Status is a job's lifecycle stage. Status only ever moves forward.
type Status int32

const (
	StatusWaiting Status = iota
	StatusPreprocess
	StatusComputing
	StatusStreaming
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusPreprocess:
		return "PREPROCESS"
	case StatusComputing:
		return "COMPUTING"
	case StatusStreaming:
		return "STREAMING"
	case StatusDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Job is one queued request. Everything here but the atomic status and
// the signalling channels is written once by intake and read-only
// afterward; the status and fnum snapshots are the only fields the
// worker, the notifier, and the owning handler all touch concurrently.
type Job struct {
	ID int64

	C1, C2       int32
	D1, D2       int // reserved depth caps; parsed but never consulted, per spec
	Offset, Size int
	Kind         Kind

	Writer *stream.Writer

	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	// Ctx carries the request-scoped trace span, attached at intake time.
	Ctx context.Context

	status atomic.Int32

	// fnumA/fnumB are the worker's most recent buffer sizes, published
	// for the notifier's WORKING frame. Only the worker writes them.
	fnumA, fnumB atomic.Int32

	done  chan struct{}
	ticks chan struct{}
}

// newJob constructs a job ready for Queue.Submit. c1/c2/d1/d2/offset/size
// and kind come from intake's parse of the request parameters.
func newJob(ctx context.Context, c1, c2 int32, d1, d2, offset, size int, kind Kind, w *stream.Writer) *Job {
	return &Job{
		C1: c1, C2: c2,
		D1: d1, D2: d2,
		Offset: offset, Size: size,
		Kind:   kind,
		Writer: w,
		Ctx:    ctx,
		done:   make(chan struct{}),
		ticks:  make(chan struct{}, 1),
	}
}

// Status returns the job's current lifecycle stage.
func (j *Job) Status() Status {
	return Status(j.status.Load())
}

func (j *Job) setStatus(s Status) {
	j.status.Store(int32(s))
}

// Done returns a channel closed once the job reaches StatusDone.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Ticks returns the channel the progress notifier signals on. A
// handler owning a duplex reply channel selects on this alongside
// Done to emit WAITING/WORKING frames between ticks.
func (j *Job) Ticks() <-chan struct{} {
	return j.ticks
}

// notifyTick wakes a handler waiting on Ticks without blocking the
// notifier if the handler hasn't drained the previous tick yet.
func (j *Job) notifyTick() {
	select {
	case j.ticks <- struct{}{}:
	default:
	}
}

// FnumSnapshot returns the worker's most recently published buffer
// sizes, for a WORKING progress frame.
func (j *Job) FnumSnapshot() (a, b int) {
	return int(j.fnumA.Load()), int(j.fnumB.Load())
}

func (j *Job) publishFnum(a, b int) {
	j.fnumA.Store(int32(a))
	j.fnumB.Store(int32(b))
}
