// Package worker runs delivery work after the accepting request has already
// returned. The pool is bounded: a fixed number of goroutines drain a fixed
// queue, so request volume cannot create unbounded in-flight deliveries.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Cypherspark/notify-gateway/internal/metrics"
)

// Task is one unit of deferred work. The context it receives is the pool's,
// not the triggering request's; it stays live until the pool shuts down or
// the per-task timeout fires.
type Task func(ctx context.Context)

var (
	ErrQueueFull = errors.New("delivery queue full")
	ErrClosed    = errors.New("worker pool closed")
)

type Options struct {
	QueueSize   int           // buffered tasks before Submit rejects
	Concurrency int           // worker goroutines
	RateQPS     float64       // sustained task start rate, 0 = unlimited
	RateBurst   int
	TaskTimeout time.Duration // per-task deadline, 0 = none
}

type Pool struct {
	opt     Options
	log     zerolog.Logger
	tasks   chan Task
	limiter *rate.Limiter

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewPool(log zerolog.Logger, opt Options) *Pool {
	if opt.QueueSize <= 0 {
		opt.QueueSize = 256
	}
	if opt.Concurrency <= 0 {
		opt.Concurrency = 8
	}
	var limiter *rate.Limiter
	if opt.RateQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opt.RateQPS), max(opt.RateBurst, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		opt:     opt,
		log:     log,
		tasks:   make(chan Task, opt.QueueSize),
		limiter: limiter,
		baseCtx: ctx,
		cancel:  cancel,
	}

	p.wg.Add(opt.Concurrency)
	for i := 0; i < opt.Concurrency; i++ {
		go p.run(i)
	}
	return p
}

// Submit schedules task without blocking the caller. It fails fast with
// ErrQueueFull when the queue is saturated; the submitter decides how to
// surface the backpressure.
func (p *Pool) Submit(task func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		p.mu.Unlock()
		metrics.QueueDepth.Inc()
		return nil
	default:
		p.mu.Unlock()
		return ErrQueueFull
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		metrics.QueueDepth.Dec()

		if p.limiter != nil {
			if err := p.limiter.Wait(p.baseCtx); err != nil {
				p.log.Debug().Int("worker", id).Err(err).Msg("rate wait aborted")
				return
			}
		}

		ctx := p.baseCtx
		var cancel context.CancelFunc = func() {}
		if p.opt.TaskTimeout > 0 {
			ctx, cancel = context.WithTimeout(p.baseCtx, p.opt.TaskTimeout)
		}
		task(ctx)
		cancel()
	}
}

// Close stops accepting work, lets the workers drain what is already queued,
// then cancels the pool context.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
