// Package queue implements the bounded FIFO job queue and its single
// compute worker: the one thread that ever touches the graph's result
// buffers and mask, serializing every LIST/AND/NOT/PATH request against
// the concurrent clients that submitted them.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/catgraph/catquery/internal/engine"
	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/repository"
	"github.com/catgraph/catquery/internal/stream"
	"github.com/catgraph/catquery/pkg/errors"
	"github.com/catgraph/catquery/pkg/utils"
)

var tracer = otel.Tracer("catquery/queue")

// MaxItems is the queue's fixed capacity.
const MaxItems = 1000

// notifyPeriod is how often the progress notifier wakes duplex-mode
// handlers waiting on a still-queued or still-computing job.
const notifyPeriod = 2 * time.Second

// Queue serializes jobs onto the single compute worker. Admission is
// the only backpressure signal: Submit rejects synchronously once
// MaxItems jobs are outstanding.
type Queue struct {
	store  *graph.Store
	bufs   *graph.Buffers
	logger utils.Logger

	// ledger is the optional completed-job ledger. Nil disables it
	// entirely; process() never blocks on it either way.
	ledger repository.JobRepository

	incoming chan *Job

	mu      sync.Mutex
	pending map[int64]*Job
	nextID  int64

	head, tail atomic.Int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Queue bound to store. bufs is the worker's scratch
// space, reused and reset between jobs; callers should size it with
// graph.NewBuffers(store.N()).
func New(store *graph.Store, bufs *graph.Buffers, logger utils.Logger) *Queue {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Queue{
		store:    store,
		bufs:     bufs,
		logger:   logger,
		incoming: make(chan *Job, MaxItems),
		pending:  make(map[int64]*Job),
		stopCh:   make(chan struct{}),
	}
}

// SetLedger attaches the optional completed-job ledger. It must be
// called before Start; passing nil (the default) leaves the ledger
// disabled.
func (q *Queue) SetLedger(ledger repository.JobRepository) {
	q.ledger = ledger
}

// Start launches the compute worker and the progress notifier.
func (q *Queue) Start() {
	q.wg.Add(2)
	go q.workerLoop()
	go q.notifierLoop()
}

// Stop signals both loops to exit and waits for them to finish. Jobs
// still sitting in incoming are abandoned; callers should stop
// accepting new requests before calling this.
func (q *Queue) Stop() {
	close(q.stopCh)
	q.wg.Wait()
}

// Submit constructs a job from the given parameters and enqueues it.
// It returns the job (already WAITING) so the caller can await
// j.Done() and drain j.Ticks() for progress frames. Returns an
// *errors.AppError with errors.CodeInvalidInput if the queue is at
// capacity.
func (q *Queue) Submit(ctx context.Context, c1, c2 int32, d1, d2, offset, size int, kind Kind, w *stream.Writer) (*Job, error) {
	q.mu.Lock()
	if q.tail.Load()-q.head.Load() >= MaxItems {
		q.mu.Unlock()
		q.logger.Warn("queue full, rejecting %s job for c1=%d c2=%d", kind, c1, c2)
		return nil, errors.New(errors.CodeInvalidInput, "queue is at capacity")
	}

	job := newJob(ctx, c1, c2, d1, d2, offset, size, kind, w)
	job.ID = q.nextID
	q.nextID++
	job.EnqueuedAt = time.Now()
	job.setStatus(StatusWaiting)

	ahead := q.tail.Load() - q.head.Load()
	q.pending[job.ID] = job
	q.tail.Add(1)
	q.mu.Unlock()

	if w.Channel().SupportsProgress() {
		w.Queued(int(ahead))
	}

	select {
	case q.incoming <- job:
	default:
		// Unreachable: the capacity check above and this channel's
		// fixed size move in lockstep. Guarded defensively rather than
		// ever blocking the submitting handler.
		q.mu.Lock()
		delete(q.pending, job.ID)
		q.tail.Add(-1)
		q.mu.Unlock()
		return nil, errors.New(errors.CodeInvalidInput, "queue is at capacity")
	}
	return job, nil
}

// Stats reports the queue's current head/tail counters, mirroring
// spec's ring-buffer bookkeeping for observability and tests.
type Stats struct {
	Head, Tail int64
}

func (q *Queue) Stats() Stats {
	return Stats{Head: q.head.Load(), Tail: q.tail.Load()}
}

func (q *Queue) workerLoop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			return
		case job := <-q.incoming:
			q.process(job)
			q.head.Add(1)
		}
	}
}

// process drives one job through PREPROCESS -> COMPUTING -> STREAMING
// -> DONE. It is the only place that mutates q.bufs.
func (q *Queue) process(job *Job) {
	parentCtx := job.Ctx
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	_, span := tracer.Start(parentCtx, "queue.process",
		trace.WithAttributes(
			attribute.String("job.kind", job.Kind.String()),
			attribute.Int64("job.c1", int64(job.C1)),
			attribute.Int64("job.c2", int64(job.C2)),
		),
	)
	defer span.End()

	job.StartedAt = time.Now()
	job.setStatus(StatusPreprocess)
	q.logger.Debug("job %d starting: kind=%s c1=%d c2=%d", job.ID, job.Kind, job.C1, job.C2)

	q.bufs.ResetCounts()

	switch job.Kind {
	case KindList:
		q.bufs.ClearMask()
		engine.FetchFiles(q.store, q.bufs, 0, job.C1)
		job.publishFnum(q.bufs.Len(0), q.bufs.Len(1))
		job.setStatus(StatusComputing)
		job.setStatus(StatusStreaming)
		engine.List(q.bufs.Slot(0), job.Offset, job.Size, job.Writer)

	case KindAnd, KindNot:
		q.bufs.ClearMask()
		engine.FetchFiles(q.store, q.bufs, 0, job.C1)
		q.bufs.ClearMask()
		engine.FetchFiles(q.store, q.bufs, 1, job.C2)
		job.publishFnum(q.bufs.Len(0), q.bufs.Len(1))
		job.setStatus(StatusComputing)
		job.setStatus(StatusStreaming)
		if job.Kind == KindAnd {
			engine.Intersect(q.bufs.Slot(0), q.bufs.Slot(1), job.Offset, job.Size, job.Writer)
		} else {
			engine.Subtract(q.bufs.Slot(0), q.bufs.Slot(1), job.Offset, job.Size, job.Writer)
		}

	case KindPath:
		q.bufs.ClearMask()
		job.setStatus(StatusComputing)
		job.setStatus(StatusStreaming)
		engine.Path(q.store, q.bufs, job.C1, job.C2, job.Writer)
	}

	job.FinishedAt = time.Now()
	job.setStatus(StatusDone)

	resultSize, _ := job.FnumSnapshot()
	span.SetAttributes(attribute.Int("job.result_size", resultSize))

	q.mu.Lock()
	delete(q.pending, job.ID)
	q.mu.Unlock()

	close(job.done)

	if q.ledger != nil {
		q.recordCompletion(job)
	}
}

// recordCompletion writes job to the ledger in the background. It is a
// best-effort side channel: a ledger write failure is logged and
// otherwise forgotten, never surfaced to the client that issued the
// query.
func (q *Queue) recordCompletion(job *Job) {
	resultSize, _ := job.FnumSnapshot()
	rec := &repository.JobRecord{
		Kind:       job.Kind.String(),
		C1:         job.C1,
		C2:         job.C2,
		D1:         int32(job.D1),
		D2:         int32(job.D2),
		Offset:     job.Offset,
		Size:       job.Size,
		Status:     job.Status().String(),
		ResultSize: resultSize,
		DurationMS: job.FinishedAt.Sub(job.StartedAt).Milliseconds(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.ledger.SaveCompletedJob(ctx, rec); err != nil {
			q.logger.Warn("job ledger: failed to save job %d: %v", job.ID, err)
		}
	}()
}

// notifierLoop wakes every duplex-mode job still outstanding every
// notifyPeriod, so its owning handler can re-check status and emit a
// WAITING or WORKING frame without the worker ever being involved.
func (q *Queue) notifierLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(notifyPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.mu.Lock()
			jobs := make([]*Job, 0, len(q.pending))
			for _, j := range q.pending {
				jobs = append(jobs, j)
			}
			q.mu.Unlock()

			for _, j := range jobs {
				if j.Writer.Channel().SupportsProgress() {
					j.notifyTick()
				}
			}
		}
	}
}
