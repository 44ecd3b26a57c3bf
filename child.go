package coprocess

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nixpare/coprocess/internal/metrics"
)

var (
	// ErrWaitInProgress is returned by Wait when another Wait on the
	// same Child has not returned yet
	ErrWaitInProgress = errors.New("another wait is already in progress for this child")

	// ErrNotificationClosed means the source of exit notifications went
	// away before reporting the exit. It says nothing about the child
	ErrNotificationClosed = errors.New("exit notification channel closed")

	// ErrNoExitStatus means the operating system reported the exit of
	// the child but no exit status could be read afterwards
	ErrNoExitStatus = errors.New("exit notified but no exit status available")
)

// Child is a spawned process. Wait suspends only the calling goroutine
// until the process exits: no OS thread is blocked in a wait syscall.
//
// Only one Wait may be in flight at a time; TryWait, Kill, Interrupt and
// the accessors can be called concurrently with it. Once the exit has
// been observed the status is cached and returned by every later call
type Child struct {
	program string
	pid     int
	cmd     *exec.Cmd
	waiter  *waiter
	pty     *os.File

	mu     sync.Mutex
	stdin  *os.File
	stdout *os.File
	stderr *os.File
	status *ExitStatus

	waiting atomic.Bool
}

// ID returns the OS process id of the child
func (c *Child) ID() int {
	return c.pid
}

// Stdin returns the parent end of the stdin pipe, or nil if stdin was
// not piped or has already been closed by Wait
func (c *Child) Stdin() *os.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdin
}

// Stdout returns the parent end of the stdout pipe, or nil if stdout
// was not piped or has been taken by WaitWithOutput
func (c *Child) Stdout() *os.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdout
}

// Stderr returns the parent end of the stderr pipe, or nil if stderr
// was not piped or has been taken by WaitWithOutput
func (c *Child) Stderr() *os.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stderr
}

// Pty returns the master side of the child's pseudo-terminal, or nil
// if the child was not spawned with Command.Pty
func (c *Child) Pty() *os.File {
	return c.pty
}

// TryWait reports the exit status if the child has exited, without
// blocking. A nil status with a nil error means it is still running
func (c *Child) TryWait() (*ExitStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != nil {
		status := *c.status
		return &status, nil
	}

	metrics.ExitProbe()
	status, err := c.waiter.probe()
	if err != nil {
		return nil, fmt.Errorf("process \"%s\" (%d) exit probe: %w", c.program, c.pid, err)
	}
	if status == nil {
		return nil, nil
	}

	c.status = status
	c.retire()

	result := *status
	return &result, nil
}

// retire releases the OS resources tied to the running child. It must
// be called with c.mu held, right after the status has been cached
func (c *Child) retire() {
	c.waiter.release()
	_ = c.cmd.Process.Release()

	switch {
	case c.status.Success():
		metrics.ChildReaped(metrics.ResultSuccess)
	case c.status.Signal != 0:
		metrics.ChildReaped(metrics.ResultSignaled)
	default:
		metrics.ChildReaped(metrics.ResultFailure)
	}
	logger().Debug("child exited", "program", c.program, "pid", c.pid, "status", c.status.String())
}

func (c *Child) cached() *ExitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Wait closes the child's stdin, if piped, and waits for the child to
// exit. Calling it again after the exit returns the same status
// without blocking
func (c *Child) Wait() (ExitStatus, error) {
	c.closeStdin()

	if status := c.cached(); status != nil {
		return *status, nil
	}

	if !c.waiting.CompareAndSwap(false, true) {
		return ExitStatus{}, ErrWaitInProgress
	}
	defer c.waiting.Store(false)

	done := metrics.WaitStarted()
	defer done()

	return c.waitExit()
}

// closeStdin drops our end of the stdin pipe, so a child reading until
// EOF can terminate while we wait for it
func (c *Child) closeStdin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stdin != nil {
		c.stdin.Close()
		c.stdin = nil
	}
}

// WaitWithOutput waits for the child to exit and returns everything it
// wrote on its piped stdout and stderr. Streams that were not piped
// are reported as empty. Both pipes are drained concurrently, starting
// together with the wait, so a child filling one of them cannot stall
func (c *Child) WaitWithOutput() (Output, error) {
	c.mu.Lock()
	stdout, stderr := c.stdout, c.stderr
	c.stdout, c.stderr = nil, nil
	c.mu.Unlock()

	var out Output
	var g errgroup.Group
	drain := func(r *os.File, dst *[]byte, st stream) {
		if r == nil {
			return
		}
		g.Go(func() error {
			defer r.Close()
			b, err := io.ReadAll(r)
			*dst = b
			if err != nil && !errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("%s: %w", st, err)
			}
			return nil
		})
	}
	drain(stdout, &out.Stdout, streamStdout)
	drain(stderr, &out.Stderr, streamStderr)

	status, err := c.Wait()
	if err != nil {
		for _, f := range []*os.File{stdout, stderr} {
			if f != nil {
				f.Close()
			}
		}
		g.Wait()
		return Output{}, err
	}

	if err := g.Wait(); err != nil {
		return Output{}, fmt.Errorf("process \"%s\" (%d) output: %w", c.program, c.pid, err)
	}

	out.Status = status
	return out, nil
}

// Kill forcibly terminates the child. It does not wait for it: the
// exit is observed by Wait or TryWait as usual. Killing a child whose
// exit has already been observed is a no-op
func (c *Child) Kill() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != nil {
		return nil
	}

	err := c.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("process \"%s\" (%d) kill error: %w", c.program, c.pid, err)
	}
	return nil
}

// Interrupt asks the child to terminate, see StopProcess. Like Kill it
// does not wait for the exit
func (c *Child) Interrupt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != nil {
		return nil
	}

	if err := interruptProcess(c.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("process \"%s\" (%d) interrupt error: %w", c.program, c.pid, err)
	}
	return nil
}

func (c *Child) String() string {
	if status := c.cached(); status != nil {
		return fmt.Sprintf("%s (Exited - %d, %s)", c.program, c.pid, status)
	}
	return fmt.Sprintf("%s (Running - %d)", c.program, c.pid)
}
