// Package scheduler runs the periodic background jobs: imports from the
// configured sources and full recomputes of the denormalized period data.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
)

// ErrStarted is returned when jobs are added to a running scheduler.
var ErrStarted = errors.New("scheduler: already started")

// Job is a named unit of background work.
type Job struct {
	Name string
	// Spec is a standard five field cron expression or a descriptor such
	// as @daily. An empty spec disables the job.
	Spec string
	Run  func(ctx context.Context) error
}

// Runner executes jobs on their cron schedules. Runs of the same job never
// overlap; a tick arriving while the previous run is busy is skipped.
type Runner struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *slog.Logger
	jobs    []string
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New returns an idle runner.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	return &Runner{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
	}
}

// Add schedules job. An invalid spec is an error.
func (r *Runner) Add(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	if job.Spec == "" {
		r.logger.Info("job disabled", "job", job.Name)
		return nil
	}
	if job.Run == nil {
		return fmt.Errorf("scheduler: job %s has no function", job.Name)
	}
	if _, err := r.cron.AddJob(job.Spec, &scheduled{runner: r, job: job}); err != nil {
		return fmt.Errorf("scheduler: job %s: invalid spec %q: %w", job.Name, job.Spec, err)
	}
	r.jobs = append(r.jobs, job.Name)
	r.logger.Info("job scheduled", "job", job.Name, "spec", job.Spec)
	return nil
}

// Jobs lists the scheduled job names in the order they were added.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.jobs...)
}

// Start begins running jobs. Runs receive a context derived from ctx that
// is cancelled by Stop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(logging.ContextWithLogger(ctx, r.logger))
	r.cron.Start()
}

// Stop halts scheduling, cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-r.cron.Stop().Done()
}

type scheduled struct {
	runner *Runner
	job    Job
}

func (s *scheduled) Run() {
	s.runner.mu.Lock()
	ctx := s.runner.ctx
	s.runner.mu.Unlock()
	s.runner.execute(ctx, s.job)
}

// execute runs one job and logs its outcome.
func (r *Runner) execute(ctx context.Context, job Job) {
	logger := r.logger.With("job", job.Name)
	started := time.Now()
	logger.InfoContext(ctx, "job started")
	if err := job.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "job failed", "error", err, "error_kind", application.ErrorKind(err), "duration", time.Since(started))
		return
	}
	logger.InfoContext(ctx, "job finished", "duration", time.Since(started))
}

// cronLogger adapts slog to the logger the cron chain wrappers expect.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
