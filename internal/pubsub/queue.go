package pubsub

import "sync"

// QueueCapacity is the fixed capacity of the receive queue. Enqueuing
// beyond capacity evicts the oldest entry (drop-oldest, not
// newest-entry rejection).
const QueueCapacity = 16

// Message is a decoded frame awaiting dispatch.
type Message struct {
	Topic   string
	Payload []byte
}

// queue is the bounded FIFO bridging the driver receive goroutine and the
// dispatcher loop. It is the single shared mutable structure between the
// two execution contexts; the critical section covers only the
// evict/append and the drain swap.
type queue struct {
	mu        sync.Mutex
	entries   []Message
	overflows uint64

	// wake signals the dispatcher loop that work is pending. Buffered so
	// the receive path never blocks on it.
	wake chan struct{}
}

func newQueue() *queue {
	return &queue{
		entries: make([]Message, 0, QueueCapacity),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue appends msg, evicting the oldest entry when the queue is full.
// It is non-blocking and safe to call from the receive goroutine.
// Returns true when an eviction occurred.
func (q *queue) Enqueue(msg Message) bool {
	q.mu.Lock()
	evicted := false
	if len(q.entries) >= QueueCapacity {
		copy(q.entries, q.entries[1:])
		q.entries = q.entries[:len(q.entries)-1]
		q.overflows++
		evicted = true
	}
	q.entries = append(q.entries, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return evicted
}

// DrainAll removes and returns the entire current contents as one ordered
// batch, leaving the queue empty. Enqueues racing with the drain land in
// the fresh backing slice and are not part of the returned batch.
func (q *queue) DrainAll() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	batch := q.entries
	q.entries = make([]Message, 0, QueueCapacity)
	return batch
}

// Len returns the current queue depth.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Overflows returns the number of drop-oldest evictions so far.
func (q *queue) Overflows() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.overflows
}

// Wake returns the channel the dispatcher loop parks on between batches.
func (q *queue) Wake() <-chan struct{} {
	return q.wake
}
