package queue

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/repository"
	"github.com/catgraph/catquery/internal/stream"
)

// buildDiamond mirrors internal/engine's fixture: category 0 reaches
// file 100 via two distinct subcategories, 1 and 2.
func buildDiamond() *graph.Store {
	cat := []int32{0, 4, 8, -1, -1}
	tree := []int32{
		4, 4, 1, 2,
		6, 8, 100, 101,
		10, 12, 100, 101,
	}
	return graph.New(cat, tree)
}

func newTestQueue(store *graph.Store) *Queue {
	bufs := graph.NewBuffers(store.N())
	return New(store, bufs, nil)
}

func submitList(t *testing.T, q *Queue, c1 int32) (*Job, *stream.ChanChannel) {
	t.Helper()
	ch := stream.NewChanChannel(100)
	w := stream.NewWriter(ch)
	job, err := q.Submit(context.Background(), c1, c1, -1, -1, 0, 100, KindList, w)
	require.NoError(t, err)
	return job, ch
}

func TestQueue_ProcessesListJob(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	q.Start()
	defer q.Stop()

	job, ch := submitList(t, q, 0)

	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}
	ch.Close()

	assert.Equal(t, StatusDone, job.Status())

	var lines []string
	for l := range ch.Lines() {
		lines = append(lines, l)
	}
	// ChanChannel supports progress frames, so Submit sends QUEUED first.
	require.Len(t, lines, 3)
	assert.Equal(t, "QUEUED 0\n", lines[0])
	assert.Equal(t, "RESULT 100|101\n", lines[1])
	assert.Equal(t, "OUTOF 2\n", lines[2])
}

// TestQueue_StatusTransitionsMonotonic exercises invariant #1: a job's
// status never moves backward, and the final observed status is DONE.
func TestQueue_StatusTransitionsMonotonic(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	q.Start()
	defer q.Stop()

	job, ch := submitList(t, q, 0)

	var seen []Status
	last := -1
	for {
		s := job.Status()
		if int(s) != last {
			seen = append(seen, s)
			last = int(s)
		}
		if s == StatusDone {
			break
		}
		select {
		case <-job.Done():
		case <-time.After(time.Millisecond):
		}
	}
	ch.Close()

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, int(seen[i]), int(seen[i-1]), "status must never move backward")
	}
	assert.Equal(t, StatusDone, seen[len(seen)-1])
}

// TestQueue_HeadTailBound exercises invariant #2: head never exceeds
// tail, and both advance by exactly one job.
func TestQueue_HeadTailBound(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	q.Start()
	defer q.Stop()

	before := q.Stats()
	assert.Equal(t, before.Head, before.Tail)

	job, ch := submitList(t, q, 0)
	<-job.Done()
	ch.Close()
	for range ch.Lines() {
	}

	after := q.Stats()
	assert.Equal(t, int64(1), after.Tail-before.Tail)
	assert.Equal(t, int64(1), after.Head-before.Head)
	assert.LessOrEqual(t, after.Head, after.Tail)
}

// TestQueue_Submit_RejectsWhenFull fills the queue to MaxItems without
// starting the worker, then checks the next Submit is rejected rather
// than blocking.
func TestQueue_Submit_RejectsWhenFull(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	// worker intentionally not started: nothing drains q.incoming.

	for i := 0; i < MaxItems; i++ {
		_, err := q.Submit(context.Background(), 0, 0, -1, -1, 0, 100, KindList, stream.NewWriter(stream.NewChanChannel(1)))
		require.NoError(t, err)
	}

	_, err := q.Submit(context.Background(), 0, 0, -1, -1, 0, 100, KindList, stream.NewWriter(stream.NewChanChannel(1)))
	assert.Error(t, err)
}

// TestQueue_ConcurrentJobsNoCrossTalk exercises invariant #9:
// concurrently submitted jobs never see each other's results.
func TestQueue_ConcurrentJobsNoCrossTalk(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	q.Start()
	defer q.Stop()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ch := stream.NewChanChannel(100)
			w := stream.NewWriter(ch)
			job, err := q.Submit(context.Background(), 0, 0, -1, -1, 0, 100, KindList, w)
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			<-job.Done()
			ch.Close()
			var lines []string
			for l := range ch.Lines() {
				lines = append(lines, l)
			}
			if len(lines) != 3 {
				t.Errorf("got %d lines, want 3: %v", len(lines), lines)
				return
			}
			if !strings.HasPrefix(lines[0], "QUEUED ") || lines[1] != "RESULT 100|101\n" || lines[2] != "OUTOF 2\n" {
				t.Errorf("unexpected lines: %v", lines)
			}
		}()
	}
	wg.Wait()
}

// fakeJobRepository is an in-memory double for repository.JobRepository.
type fakeJobRepository struct {
	mu    sync.Mutex
	saved []*repository.JobRecord
}

func (f *fakeJobRepository) SaveCompletedJob(ctx context.Context, rec *repository.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeJobRepository) ListRecent(ctx context.Context, limit int) ([]repository.JobRecord, error) {
	return nil, nil
}

func (f *fakeJobRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestQueue_RecordsCompletionToLedgerWhenSet(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	ledger := &fakeJobRepository{}
	q.SetLedger(ledger)
	q.Start()
	defer q.Stop()

	job, ch := submitList(t, q, 0)
	<-job.Done()
	ch.Close()
	for range ch.Lines() {
	}

	require.Eventually(t, func() bool {
		return ledger.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_NoLedgerWrite_WhenUnset(t *testing.T) {
	store := buildDiamond()
	q := newTestQueue(store)
	q.Start()
	defer q.Stop()

	job, ch := submitList(t, q, 0)
	<-job.Done()
	ch.Close()
	for range ch.Lines() {
	}
	// No assertion beyond "does not panic": a nil ledger must never be
	// dereferenced by process()/recordCompletion.
}
