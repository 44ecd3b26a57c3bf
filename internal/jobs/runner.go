package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nixpare/coprocess"
)

// DefaultGrace is how long a job is given to handle an interrupt before
// it is killed.
const DefaultGrace = 2 * time.Second

// Result is the outcome of one job.
type Result struct {
	Name     string
	Status   coprocess.ExitStatus
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	// TimedOut is set when the job was stopped because its timeout
	// expired or the run was cancelled.
	TimedOut bool
	// Err reports a failure to spawn or wait for the job. An unsuccessful
	// exit status is not an error.
	Err error
}

// Failed reports whether the job did not complete successfully.
func (r Result) Failed() bool {
	return r.Err != nil || r.TimedOut || !r.Status.Success()
}

// Runner runs jobs concurrently, one goroutine each.
type Runner struct {
	Logger *slog.Logger
	// Grace defaults to DefaultGrace.
	Grace time.Duration
}

// Run runs every job with a default Runner.
func Run(ctx context.Context, jobs []Job) []Result {
	return (&Runner{}).Run(ctx, jobs)
}

// Run starts every job at once and waits for all of them. Results are in
// the same order as jobs. Cancelling ctx stops the jobs still running.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.runOne(ctx, job)
		}()
	}
	wg.Wait()

	return results
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) grace() time.Duration {
	if r.Grace <= 0 {
		return DefaultGrace
	}
	return r.Grace
}

type waitResult struct {
	out coprocess.Output
	err error
}

func (r *Runner) runOne(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name}
	log := r.logger().With("job", job.Name)

	cmd, err := job.Build()
	if err != nil {
		res.Err = err
		return res
	}
	if job.Capture {
		cmd.Stdin(coprocess.Null()).Stdout(coprocess.Piped()).Stderr(coprocess.Piped())
	}

	start := time.Now()
	child, err := cmd.Spawn()
	if err != nil {
		res.Err = err
		log.Error("job failed to start", "error", err)
		return res
	}
	log.Info("job started", "pid", child.ID(), "command", cmd.String())

	done := make(chan waitResult, 1)
	go func() {
		var wr waitResult
		if job.Capture {
			wr.out, wr.err = child.WaitWithOutput()
		} else {
			wr.out.Status, wr.err = child.Wait()
		}
		done <- wr
	}()

	var timeout <-chan time.Time
	if job.Timeout.Duration > 0 {
		timer := time.NewTimer(job.Timeout.Duration)
		defer timer.Stop()
		timeout = timer.C
	}

	var wr waitResult
	select {
	case wr = <-done:
	case <-timeout:
		res.TimedOut = true
		log.Warn("job timed out", "timeout", job.Timeout.Duration)
		wr = r.stop(child, done, log)
	case <-ctx.Done():
		res.TimedOut = true
		log.Warn("job cancelled", "error", ctx.Err())
		wr = r.stop(child, done, log)
	}

	res.Duration = time.Since(start)
	res.Status, res.Stdout, res.Stderr = wr.out.Status, wr.out.Stdout, wr.out.Stderr
	if wr.err != nil {
		res.Err = fmt.Errorf("job %q: %w", job.Name, wr.err)
		log.Error("job wait failed", "error", wr.err)
		return res
	}

	log.Info("job finished", "status", res.Status.String(), "duration", res.Duration)
	return res
}

// stop interrupts the child, then kills it if it is still running after
// the grace period, and returns the outcome of the pending wait.
func (r *Runner) stop(child *coprocess.Child, done <-chan waitResult, log *slog.Logger) waitResult {
	if err := child.Interrupt(); err != nil {
		log.Debug("interrupt failed, killing", "error", err)
	} else {
		timer := time.NewTimer(r.grace())
		defer timer.Stop()
		select {
		case wr := <-done:
			return wr
		case <-timer.C:
		}
	}

	if err := child.Kill(); err != nil {
		return waitResult{err: err}
	}
	return <-done
}
