// Package fleet drives many independent runners of one machine concurrently
// on a bounded worker pool.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/errors"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const defaultConcurrency = 10

// Job is one run: where to start and the shared data it owns.
type Job[D any] struct {
	Name  string
	Entry fsm.Entry
	Data  D
}

// Result is the outcome of one job. Data holds the shared data as it was when
// the run stopped, even on error.
type Result[D any] struct {
	Job      string
	RunnerID uuid.UUID
	Data     D
	Steps    int64
	Duration time.Duration
	Err      error
}

// JobError wraps a failed job's error with its name.
type JobError struct {
	Job string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Stats are cumulative counters over the fleet's lifetime.
type Stats struct {
	Started   int64
	Completed int64
	Failed    int64
}

// Driver advances a started runner until it stops. The default is
// (*fsm.Runner).Run.
type Driver[D any] func(ctx context.Context, runner *fsm.Runner[D]) error

// Fleet runs jobs against a single machine.
type Fleet[D any] struct {
	machine *fsm.Machine[D]
	pool    pond.Pool
	owned   bool
	drive   Driver[D]

	started   *atomic.Int64
	completed *atomic.Int64
	failed    *atomic.Int64
}

type options struct {
	concurrency int
	pool        pond.Pool
}

// Option configures a Fleet.
type Option func(*options)

// WithConcurrency bounds how many runners execute at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithPool runs jobs on an existing pool. The fleet does not stop it on Close.
func WithPool(pool pond.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithDriver replaces runner.Run for every job of the fleet, for example
// to pace steps or advance a simulation between them.
func (f *Fleet[D]) WithDriver(drive Driver[D]) *Fleet[D] {
	if drive != nil {
		f.drive = drive
	}

	return f
}

// New creates a fleet for machine.
func New[D any](machine *fsm.Machine[D], opts ...Option) *Fleet[D] {
	o := options{concurrency: defaultConcurrency}

	for _, opt := range opts {
		opt(&o)
	}

	fleet := &Fleet[D]{
		machine:   machine,
		pool:      o.pool,
		drive:     runToEnd[D],
		started:   atomic.NewInt64(0),
		completed: atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}

	if fleet.pool == nil {
		if o.concurrency <= 0 {
			o.concurrency = defaultConcurrency
		}

		fleet.pool = pond.NewPool(o.concurrency)
		fleet.owned = true
	}

	return fleet
}

// Run executes every job and waits for all of them. Results are returned in
// job order. The returned error joins every job failure, or is nil when all
// jobs completed.
func (f *Fleet[D]) Run(ctx context.Context, jobs []Job[D]) ([]Result[D], error) {
	results := make([]Result[D], len(jobs))
	tasks := make([]pond.Task, len(jobs))

	for i, job := range jobs {
		results[i].Job = jobName(job, i)

		tasks[i] = f.pool.SubmitErr(func() error {
			results[i] = f.runJob(ctx, results[i].Job, job)

			return results[i].Err
		})
	}

	var errs errors.Collection

	for i, task := range tasks {
		// Per-job errors are carried by results; Wait only reports pool failures.
		err := task.Wait()
		if err != nil && results[i].Err == nil {
			results[i].Err = err
		}

		if results[i].Err != nil {
			errs.Add(&JobError{Job: results[i].Job, Err: results[i].Err})
		}
	}

	return results, errs.GetError()
}

// RunOne executes a single job on the pool and waits for it.
func (f *Fleet[D]) RunOne(ctx context.Context, job Job[D]) Result[D] {
	results, _ := f.Run(ctx, []Job[D]{job})

	return results[0]
}

func (f *Fleet[D]) runJob(ctx context.Context, name string, job Job[D]) Result[D] {
	f.started.Inc()

	started := time.Now()
	result := Result[D]{Job: name, Data: job.Data}

	runner, err := f.machine.Start(ctx, job.Entry.ID, job.Entry.Income, job.Data)
	if err == nil {
		result.RunnerID = runner.ID()
		err = f.drive(ctx, runner)
		if err != nil {
			runner.Close(ctx)
		}
		result.Data = *runner.Data()
		result.Steps = runner.Steps()
	}

	result.Duration = time.Since(started)
	result.Err = err

	if err != nil {
		f.failed.Inc()
		slog.WarnContext(ctx, "Fleet job failed",
			"machine", f.machine.Name(), "job", name, "runner_id", result.RunnerID, "error", err)
	} else {
		f.completed.Inc()
		slog.DebugContext(ctx, "Fleet job completed",
			"machine", f.machine.Name(), "job", name, "runner_id", result.RunnerID, "steps", result.Steps)
	}

	return result
}

// Stats returns the fleet counters.
func (f *Fleet[D]) Stats() Stats {
	return Stats{
		Started:   f.started.Load(),
		Completed: f.completed.Load(),
		Failed:    f.failed.Load(),
	}
}

// Close stops the pool if the fleet created it, waiting for running jobs.
func (f *Fleet[D]) Close() {
	if f.owned {
		f.pool.StopAndWait()
	}
}

func runToEnd[D any](ctx context.Context, runner *fsm.Runner[D]) error {
	return runner.Run(ctx)
}

func jobName[D any](job Job[D], index int) string {
	if job.Name != "" {
		return job.Name
	}

	return fmt.Sprintf("job-%d", index)
}
