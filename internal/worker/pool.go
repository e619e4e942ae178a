// Package worker runs blocking jobs on a fixed set of goroutines, each owning
// an environment (logger, scratch directory) created when the worker starts.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned when a job is submitted to a pool that is not running.
var ErrStopped = errors.New("worker pool stopped")

// Job runs inside a worker. ctx carries the worker Env.
type Job func(ctx context.Context, env *Env) error

// Config holds pool settings.
type Config struct {
	Size      int
	QueueSize int
	// ScratchRoot is the parent directory of per-worker scratch directories (default os.TempDir()).
	ScratchRoot string
}

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Pool is a fixed-size worker pool.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	running bool
	tasks   chan task
	wg      sync.WaitGroup
	envs    []*Env
}

// NewPool creates a pool. Call Start before Do.
func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Start creates every worker's environment and launches the workers.
// If any environment cannot be created nothing is started.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	if err := os.MkdirAll(p.cfg.ScratchRoot, 0o750); err != nil {
		return fmt.Errorf("create scratch root: %w", err)
	}

	envs := make([]*Env, 0, p.cfg.Size)
	for i := 0; i < p.cfg.Size; i++ {
		dir, err := os.MkdirTemp(p.cfg.ScratchRoot, fmt.Sprintf("worker-%d-", i))
		if err != nil {
			removeScratch(envs)
			return fmt.Errorf("create scratch dir for worker %d: %w", i, err)
		}
		envs = append(envs, &Env{
			ID:         i,
			Logger:     p.logger.Named("worker").With(zap.Int("worker_id", i)),
			ScratchDir: dir,
		})
	}

	p.tasks = make(chan task, p.cfg.QueueSize)
	p.envs = envs
	for _, env := range envs {
		p.wg.Add(1)
		go p.run(env, p.tasks)
	}
	p.running = true

	p.logger.Info("worker pool started",
		zap.Int("size", p.cfg.Size),
		zap.String("scratch_root", p.cfg.ScratchRoot),
	)
	return nil
}

// Stop waits for queued jobs to finish, then removes worker scratch directories.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	removeScratch(p.envs)
	p.envs = nil
	p.logger.Info("worker pool stopped")
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.cfg.Size }

// Do runs job on a worker and waits for its result. Cancelling ctx before the job
// is enqueued abandons it; once enqueued the pool never interrupts it.
func (p *Pool) Do(ctx context.Context, job Job) error {
	t := task{ctx: ctx, job: job, done: make(chan error, 1)}

	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return ErrStopped
	}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return fmt.Errorf("enqueue job: %w", ctx.Err())
	}

	return <-t.done
}

func (p *Pool) run(env *Env, tasks <-chan task) {
	defer p.wg.Done()
	for t := range tasks {
		t.done <- p.exec(env, t)
	}
}

func (p *Pool) exec(env *Env, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			env.Logger.Error("job panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			err = fmt.Errorf("worker %d: job panicked: %v", env.ID, r)
		}
	}()
	return t.job(ContextWithEnv(t.ctx, env), env)
}

func removeScratch(envs []*Env) {
	for _, env := range envs {
		_ = os.RemoveAll(filepath.Clean(env.ScratchDir))
	}
}
