// Package worker drains the outbound job queue: notices go to the messaging
// gateway and flag updates go to the player store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	"github.com/sbwgg/Checker-bot/pkg/metrics"
)

const (
	defaultJobTimeout   = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// ErrUnknownJob is returned for jobs with an unrecognised kind.
var ErrUnknownJob = errors.New("unknown job kind")

// Gateway delivers notices to players.
type Gateway interface {
	Deliver(ctx context.Context, n model.Notice) error
}

// FlagWriter persists player flags.
type FlagWriter interface {
	UpdateFlags(ctx context.Context, id uint64, active, registered bool) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker handles jobs until its queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker handles jobs from a Queue one at a time.
type InMemoryWorker struct {
	queue      Queue
	gateway    Gateway
	flags      FlagWriter
	name       string
	jobTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, gateway Gateway, flags FlagWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		gateway:    gateway,
		flags:      flags,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("notifier"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run handles jobs until the queue is closed and drained, ctx is done, or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.handle(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("kind", string(j.Kind)), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without draining.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) handle(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	var err error
	switch j.Kind {
	case model.JobNotice:
		err = w.gateway.Deliver(ctx, j.Notice)
	case model.JobFlagUpdate:
		err = w.flags.UpdateFlags(ctx, j.Flags.PlayerID, j.Flags.Active, j.Flags.Registered)
	default:
		err = fmt.Errorf("%q: %w", j.Kind, ErrUnknownJob)
	}

	if err != nil {
		metrics.RecordNotifierError(string(j.Kind))
		metrics.RecordErrorByComponent("notifier", string(j.Kind))
		return err
	}
	metrics.RecordNotifierDelivery(string(j.Kind))
	return nil
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. A count below one uses one worker
// per CPU.
func NewPool(workerCount int, queue Queue, gateway Gateway, flags FlagWriter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("notifier-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, gateway, flags, wopts...)
	}
	metrics.UpdateNotifierWorkers(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start runs every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	metrics.UpdateNotifierWorkers(0)
	if timedOut {
		return fmt.Errorf("notifier drain: %w", ctx.Err())
	}
	return nil
}
