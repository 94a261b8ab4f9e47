// Package schedule runs periodic jobs on a robfig/cron scheduler.
//
// Every job starts after its initial delay and then repeats at a fixed
// period. A failing or panicking run is logged and the next run happens on
// time; runs of the same job never overlap.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// ErrStarted is returned by Add once the runner has started.
var ErrStarted = errors.New("schedule: runner already started")

// Job is one periodic unit of work.
type Job struct {
	Name         string
	InitialDelay time.Duration
	Period       time.Duration
	Run          func(ctx context.Context) error
}

// Runner owns the cron scheduler and the context jobs run under.
type Runner struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	jobs    []Job
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	logger = logutil.NoopIfNil(logger)
	return &Runner{
		logger: logger.With("component", "schedule"),
		now:    time.Now,
	}
}

// Add registers a job. Jobs must be added before Start.
func (r *Runner) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("schedule: job needs a name and a run func")
	}
	if job.Period <= 0 {
		return fmt.Errorf("schedule: job %s: period must be positive", job.Name)
	}
	if job.InitialDelay < 0 {
		return fmt.Errorf("schedule: job %s: initial delay must not be negative", job.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Start schedules every registered job and returns immediately.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(context.Background())

	cl := cronLogger{logger: r.logger}
	r.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)

	start := r.now()
	for _, job := range r.jobs {
		sched := &delayedEvery{first: start.Add(job.InitialDelay), period: job.Period}
		r.cron.Schedule(sched, cron.FuncJob(r.wrap(job)))
		r.logger.Info("job scheduled", "job", job.Name, "initial_delay", job.InitialDelay, "period", job.Period)
	}
	r.cron.Start()
}

// Stop stops scheduling and waits for in-flight runs until ctx is done.
// The job context is cancelled once waiting ends.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	defer cancel()

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wrap turns a Job into a cron func that logs failures instead of
// propagating them.
func (r *Runner) wrap(job Job) func() {
	return func() {
		started := r.now()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("scheduled job panicked",
					"job", job.Name, "panic", fmt.Sprint(rec), "fatal", true)
			}
		}()

		if err := job.Run(r.ctx); err != nil {
			r.logger.Error("scheduled job failed",
				"job", job.Name, "error", err, "fatal", true)
			return
		}
		r.logger.Log(r.ctx, logutil.LevelTrace, "scheduled job finished",
			"job", job.Name, "duration", r.now().Sub(started))
	}
}

// delayedEvery fires at first and then every period after it.
type delayedEvery struct {
	first  time.Time
	period time.Duration
}

// Next implements cron.Schedule.
func (s *delayedEvery) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	n := t.Sub(s.first)/s.period + 1
	return s.first.Add(n * s.period)
}

// cronLogger adapts slog to cron.Logger. Cron's chatter goes to trace.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Log(context.Background(), logutil.LevelTrace, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
