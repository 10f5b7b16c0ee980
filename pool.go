package tgpdf

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps pool workers and, unless WithMaxEngines says otherwise,
	// concurrent OCR engines to limit memory.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the OCR engine's own threads.
	cpuDivisor = 2
)

// DefaultTaskTimeout bounds one update from download to reply.
const DefaultTaskTimeout = 2 * time.Minute

// Task is one unit of work. The context ends at the task timeout or when
// the pool is force-stopped.
type Task func(ctx context.Context)

// PoolOption configures a TaskPool.
type PoolOption func(*TaskPool)

// WithTaskTimeout sets the per-task deadline.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTaskTimeout(d time.Duration) PoolOption {
	if d <= 0 {
		panic("tgpdf: WithTaskTimeout duration must be positive")
	}
	return func(p *TaskPool) {
		p.timeout = d
	}
}

// WithPoolLogger sets the logger used to report task panics.
func WithPoolLogger(l logrus.FieldLogger) PoolOption {
	return func(p *TaskPool) {
		p.logger = l
	}
}

// TaskPool runs tasks on goroutines with bounded concurrency.
// Submit never blocks: when every slot is busy the task is refused.
type TaskPool struct {
	size    int
	sem     chan struct{}
	timeout time.Duration
	logger  logrus.FieldLogger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewTaskPool creates a pool running at most n tasks at once.
func NewTaskPool(n int, opts ...PoolOption) *TaskPool {
	if n < 1 {
		n = 1
	}

	base, cancel := context.WithCancel(context.Background())
	p := &TaskPool{
		size:    n,
		sem:     make(chan struct{}, n),
		timeout: DefaultTaskTimeout,
		logger:  logrus.StandardLogger(),
		base:    base,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit starts task on its own goroutine.
// Returns ErrPoolSaturated when all slots are busy and ErrPoolClosed after Shutdown.
func (p *TaskPool) Submit(name string, task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	select {
	case p.sem <- struct{}{}:
	default:
		p.mu.Unlock()
		return fmt.Errorf("%w: %d tasks running", ErrPoolSaturated, p.size)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(name, task)
	return nil
}

func (p *TaskPool) run(name string, task Task) {
	defer p.wg.Done()
	defer func() { <-p.sem }()
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("task", name).Errorf("task panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()
	task(ctx)
}

// Shutdown stops accepting tasks and waits for running ones.
// If ctx ends first, running tasks are cancelled and ctx's error is returned
// once they have returned.
func (p *TaskPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Size returns the pool capacity.
func (p *TaskPool) Size() int {
	return p.size
}

// Running returns the number of tasks currently executing.
func (p *TaskPool) Running() int {
	return len(p.sem)
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
