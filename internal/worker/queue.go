// Package worker runs post-commit generation tasks off the request path.
package worker

import (
	"context"
	"errors"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var ErrQueueClosed = errors.New("task queue closed")

// Queue hands generation tasks from the request path to the pool.
type Queue interface {
	Enqueue(ctx context.Context, task types.GenerationTask) error
	// Dequeue blocks until a task is available, ctx ends or the queue is closed.
	Dequeue(ctx context.Context) (types.GenerationTask, error)
	Close() error
}

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue is an in-process queue backed by a buffered channel.
type MemoryQueue struct {
	tasks  chan types.GenerationTask
	closed chan struct{}
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer < 1 {
		buffer = 64
	}
	return &MemoryQueue{tasks: make(chan types.GenerationTask, buffer), closed: make(chan struct{})}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task types.GenerationTask) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (types.GenerationTask, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-q.closed:
		return types.GenerationTask{}, ErrQueueClosed
	case <-ctx.Done():
		return types.GenerationTask{}, ctx.Err()
	}
}

// Close stops new enqueues. Pending tasks are dropped.
func (q *MemoryQueue) Close() error {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
	return nil
}
