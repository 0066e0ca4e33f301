package queue

import (
	"sync"
	"sync/atomic"

	"FuelStream/internal/event"
)

// Queue is the FIFO buffer between the broker's delivery goroutine and the
// drain cycle. Enqueue is a pure append under a mutex so the transport
// goroutine never blocks on application logic; the drain side pops bounded
// batches, leaving the remainder queued for the next cycle.
type Queue struct {
	mu    sync.Mutex
	items []*event.PriceUpdateEvent

	enqueued atomic.Uint64
	dequeued atomic.Uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends one decoded event.
func (q *Queue) Enqueue(e *event.PriceUpdateEvent) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.enqueued.Add(1)
}

// PopBatch removes and returns up to max events in FIFO order. It returns
// fewer when the queue holds fewer, and nil when it is empty.
func (q *Queue) PopBatch(max int) []*event.PriceUpdateEvent {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return nil
	}
	if n > max {
		n = max
	}

	batch := make([]*event.PriceUpdateEvent, n)
	copy(batch, q.items[:n])

	rest := copy(q.items, q.items[n:])
	for i := rest; i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = q.items[:rest]

	q.dequeued.Add(uint64(n))
	return batch
}

// Depth returns the number of events waiting.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Counts returns lifetime enqueue/dequeue totals for observability.
func (q *Queue) Counts() (enqueued, dequeued uint64) {
	return q.enqueued.Load(), q.dequeued.Load()
}
