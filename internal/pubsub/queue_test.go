package pubsub

import (
	"fmt"
	"testing"
)

func TestQueue_EnqueueDrain(t *testing.T) {
	q := newQueue()

	if evicted := q.Enqueue(Message{Topic: "a", Payload: []byte("1")}); evicted {
		t.Error("Enqueue() on empty queue reported eviction")
	}
	q.Enqueue(Message{Topic: "b", Payload: []byte("2")})

	if got := q.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	batch := q.DrainAll()
	if len(batch) != 2 {
		t.Fatalf("DrainAll() returned %d messages, want 2", len(batch))
	}
	if batch[0].Topic != "a" || batch[1].Topic != "b" {
		t.Errorf("DrainAll() order = [%s %s], want [a b]", batch[0].Topic, batch[1].Topic)
	}

	if got := q.Len(); got != 0 {
		t.Errorf("Len() after drain = %d, want 0", got)
	}
	if batch = q.DrainAll(); batch != nil {
		t.Errorf("DrainAll() on empty queue = %v, want nil", batch)
	}
}

func TestQueue_DropOldestAtCapacity(t *testing.T) {
	q := newQueue()

	for i := 0; i < QueueCapacity; i++ {
		if evicted := q.Enqueue(Message{Topic: fmt.Sprintf("msg-%d", i)}); evicted {
			t.Fatalf("Enqueue(%d) reported eviction before capacity", i)
		}
	}

	// The 17th enqueue evicts the oldest entry, not the newcomer.
	if evicted := q.Enqueue(Message{Topic: "newest"}); !evicted {
		t.Fatal("Enqueue() at capacity did not report eviction")
	}

	if got := q.Len(); got != QueueCapacity {
		t.Errorf("Len() = %d, want %d", got, QueueCapacity)
	}
	if got := q.Overflows(); got != 1 {
		t.Errorf("Overflows() = %d, want 1", got)
	}

	batch := q.DrainAll()
	if len(batch) != QueueCapacity {
		t.Fatalf("DrainAll() returned %d messages, want %d", len(batch), QueueCapacity)
	}
	if batch[0].Topic != "msg-1" {
		t.Errorf("oldest surviving message = %q, want %q", batch[0].Topic, "msg-1")
	}
	if batch[QueueCapacity-1].Topic != "newest" {
		t.Errorf("newest message = %q, want %q", batch[QueueCapacity-1].Topic, "newest")
	}

	// Remaining order must still be FIFO.
	for i := 1; i < QueueCapacity-1; i++ {
		want := fmt.Sprintf("msg-%d", i+1)
		if batch[i].Topic != want {
			t.Errorf("batch[%d].Topic = %q, want %q", i, batch[i].Topic, want)
		}
	}
}

func TestQueue_WakeSignal(t *testing.T) {
	q := newQueue()

	q.Enqueue(Message{Topic: "a"})
	select {
	case <-q.Wake():
	default:
		t.Fatal("Enqueue() did not signal the wake channel")
	}

	// The wake channel is level-triggered with capacity one; a burst of
	// enqueues must never block the producer.
	for i := 0; i < 100; i++ {
		q.Enqueue(Message{Topic: "burst"})
	}
}
