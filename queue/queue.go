// Package queue carries job ids from intake to workers.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when publishing to a closed queue.
var ErrClosed = errors.New("queue closed")

// Queue delivers job ids to workers. Delivery is at-least-once; consumers
// must tolerate an id they have already processed.
type Queue interface {
	// Publish enqueues a job id.
	Publish(ctx context.Context, jobID string) error

	// Consume returns a channel of job ids. The channel is closed when ctx
	// is done or the queue is closed.
	Consume(ctx context.Context) (<-chan string, error)

	// Close releases the queue.
	Close() error
}

// MemoryQueue is a process-local queue backed by a buffered channel.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan string
	closed bool
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a queue holding up to size pending ids.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

// Publish blocks while the buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, jobID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Consume(ctx context.Context) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-q.ch:
				if !ok {
					return
				}
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Len returns the number of pending ids.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
