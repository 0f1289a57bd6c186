// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"telegram-usersettings/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// A small worker pool that runs submitted tasks. Stop drains whatever is
// already queued before returning.

type Task func(ctx context.Context) error

var (
	ErrNilTask    = errors.New("nil task")
	ErrQueueFull  = errors.New("worker queue full")
	ErrPoolClosed = errors.New("worker pool stopped")
)

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	n    int
	log  *zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{jobs: make(chan Task, workers*64), n: workers, log: logger}
}

// Start launches the workers. Tasks receive ctx; cancelling it does not
// stop the workers, Stop does.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(ctx, id, task)
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncWorkerJob("failed")
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerJob("failed")
		p.log.Error().Err(err).Int("worker", id).Msg("worker task error")
		return
	}
	metrics.IncWorkerJob("completed")
}

// Stop refuses new tasks, lets the workers finish the queue and waits.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncWorkerJob("rejected")
		return ErrQueueFull
	}
}
