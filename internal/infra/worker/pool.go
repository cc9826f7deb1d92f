package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("worker queue full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Job is background work that must learn when it will never run.
type Job interface {
	Run(ctx context.Context) error
	// Discard is called instead of Run when the pool stops with the job queued.
	Discard(err error)
}

// Task is a unit of background work. It receives the pool's context, not the
// submitter's, so it outlives the HTTP request that queued it.
type Task func(ctx context.Context) error

func (t Task) Run(ctx context.Context) error { return t(ctx) }
func (Task) Discard(error)                   {}

type Pool struct {
	wg      sync.WaitGroup
	jobs    chan Job
	quit    chan struct{}
	n       int
	mu      sync.Mutex
	stopped bool
	log     *zerolog.Logger
}

func NewPool(workers, queue int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 4
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Job, queue), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case job := <-p.jobs:
					p.run(ctx, id, job)
				}
			}
		}(i)
	}
	p.log.Info().Int("workers", p.n).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	if err := job.Run(ctx); err != nil {
		p.log.Error().Err(err).Int("worker", id).Msg("task error")
	}
}

// Stop signals the workers and waits for running jobs to return. Jobs still
// queued are discarded with ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()
	p.wg.Wait()

	dropped := 0
	for {
		select {
		case job := <-p.jobs:
			p.discard(job)
			dropped++
		default:
			if dropped > 0 {
				p.log.Warn().Int("dropped", dropped).Msg("queued jobs discarded on stop")
			}
			return
		}
	}
}

func (p *Pool) discard(job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Interface("panic", rec).Msg("discard panicked")
		}
	}()
	job.Discard(ErrPoolStopped)
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	return p.SubmitJob(task)
}

func (p *Pool) SubmitJob(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}
