//go:build !windows

package coprocess

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nixpare/coprocess/internal/metrics"
	"github.com/nixpare/coprocess/internal/sighub"
)

// childExits is shared by every waiting Child. Unix offers no way to be
// notified of the exit of one specific child, only the process-wide and
// coalesced SIGCHLD: every delivery wakes every waiter, which then probes
// its own pid with a non-blocking wait4.
var childExits = sighub.NewHub(unix.SIGCHLD)

type waiter struct {
	pid int
}

func newWaiter(p *os.Process) (*waiter, error) {
	return &waiter{pid: p.Pid}, nil
}

// probe reaps the child if it has exited. A reaped pid can be reused by
// the system, so the caller must never probe again after a status is
// returned
func (w *waiter) probe() (*ExitStatus, error) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(w.pid, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return nil, os.NewSyscallError("wait4", err)
		case pid == 0:
			return nil, nil
		}

		status := exitStatusFromWait(pid, ws)
		return &status, nil
	}
}

func (w *waiter) release() {}

// waitExit subscribes before the first probe, so an exit happening after
// the probe always produces a wake-up for this subscription
func (c *Child) waitExit() (ExitStatus, error) {
	sub := childExits.Subscribe()
	defer sub.Close()

	for {
		status, err := c.TryWait()
		if err != nil {
			return ExitStatus{}, err
		}
		if status != nil {
			return *status, nil
		}

		if err := sub.Recv(); err != nil {
			return ExitStatus{}, fmt.Errorf("process \"%s\" (%d): %w: %w", c.program, c.pid, ErrNotificationClosed, err)
		}

		// the signal may come from any child: check again
		metrics.ExitWakeup()
		logger().Debug("child exit signal", "pid", c.pid)
	}
}

func exitStatusFromWait(pid int, ws unix.WaitStatus) ExitStatus {
	status := ExitStatus{
		PID:      pid,
		ExitCode: -1,
		Raw:      uint32(ws),
	}

	switch {
	case ws.Exited():
		status.ExitCode = ws.ExitStatus()
	case ws.Signaled():
		status.Signal = syscall.Signal(ws.Signal())
	}
	return status
}
