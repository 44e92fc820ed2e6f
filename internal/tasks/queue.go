package tasks

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is the bounded wait used by the consumer when the
// queue is empty.
const DefaultPollInterval = 1 * time.Second

// Queue is a strict FIFO task queue. Any number of producers may Add;
// the dispatcher is the sole consumer. The priority field on tasks is
// deliberately ignored here.
type Queue struct {
	mu    sync.Mutex
	items []*Task
	wake  chan struct{}
}

// NewQueue creates an empty task queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Add enqueues a task at the tail and wakes a waiting consumer.
func (q *Queue) Add(t *Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Next returns the head of the queue. When the queue is empty it waits up
// to wait (wake on enqueue or on the timeout) and returns nil if nothing
// arrived. A wait <= 0 uses DefaultPollInterval. Returns nil immediately
// once ctx is cancelled.
func (q *Queue) Next(ctx context.Context, wait time.Duration) *Task {
	if wait <= 0 {
		wait = DefaultPollInterval
	}

	if t := q.pop(); t != nil {
		return t
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return nil
		case <-q.wake:
			// A producer signalled; another wake may be stale, so re-check.
			if t := q.pop(); t != nil {
				return t
			}
		}
	}
}

// TryNext returns the head of the queue without waiting.
func (q *Queue) TryNext() *Task {
	return q.pop()
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t
}
