package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// TaskHandler processes one generation task.
type TaskHandler interface {
	Handle(ctx context.Context, task types.GenerationTask) error
}

type TaskHandlerFunc func(ctx context.Context, task types.GenerationTask) error

func (f TaskHandlerFunc) Handle(ctx context.Context, task types.GenerationTask) error { return f(ctx, task) }

type Pool struct {
	queue       Queue
	handler     TaskHandler
	workers     int
	taskTimeout time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger
}

func NewPool(queue Queue, handler TaskHandler, workers int, taskTimeout time.Duration, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:       queue,
		handler:     handler,
		workers:     workers,
		taskTimeout: taskTimeout,
		retryDelay:  time.Second,
		logger:      logger.With(slog.String("component", "WorkerPool")),
	}
}

// Run blocks until ctx is cancelled or the queue is closed.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i + 1
		g.Go(func() error { return p.loop(ctx, id) })
	}
	p.logger.InfoContext(ctx, "Worker pool started", slog.Int("workers", p.workers))
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrQueueClosed) {
		err = nil
	}
	p.logger.Info("Worker pool stopped")
	return err
}

func (p *Pool) loop(ctx context.Context, id int) error {
	l := p.logger.With(slog.Int("worker", id))
	for {
		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return err
			}
			l.ErrorContext(ctx, "Failed to dequeue task", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
			continue
		}
		p.process(ctx, l, task)
	}
}

// process never lets a task failure or panic stop the worker.
func (p *Pool) process(ctx context.Context, l *slog.Logger, task types.GenerationTask) {
	taskCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.taskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.taskTimeout)
	}
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				l.ErrorContext(ctx, "Task handler panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
		}()
		return p.handler.Handle(taskCtx, task)
	}()

	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		l.ErrorContext(ctx, "Generation task failed",
			slog.String("itinerary_id", task.ItineraryID.String()),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
	} else {
		l.InfoContext(ctx, "Generation task done",
			slog.String("itinerary_id", task.ItineraryID.String()),
			slog.Duration("elapsed", time.Since(start)))
	}
	metrics.Get().TasksProcessedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
