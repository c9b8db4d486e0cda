package history

import (
	"sync"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// Queue is a thread-safe FIFO hand-off between the log and the writer.
// Pushes never block; the writer drains in batches on its own schedule.
type Queue struct {
	mu     sync.Mutex
	items  []model.RebaseRecord
	closed bool

	totalPushed  int64
	totalDrained int64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a record. Returns false if the queue is closed.
func (q *Queue) Push(rec model.RebaseRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, rec)
	q.totalPushed++
	return true
}

// Drain removes and returns up to max records (all of them if max <= 0).
// Returns nil when the queue is empty.
func (q *Queue) Drain(max int) []model.RebaseRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return nil
	}
	if max > 0 && max < n {
		n = max
	}

	out := make([]model.RebaseRecord, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	q.totalDrained += int64(n)
	return out
}

// Close marks the queue closed. Remaining items stay drainable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns cumulative queue counters.
func (q *Queue) Stats() (pushed, drained int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalPushed, q.totalDrained
}
