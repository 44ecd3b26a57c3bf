package coprocess

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/nixpare/coprocess/internal/metrics"
	"github.com/nixpare/coprocess/internal/park"
)

// Windows cannot associate a process handle with the runtime's IOCP, so
// exits are observed with RegisterWaitForSingleObject: the kernel thread
// pool waits on the handle and runs onProcessSignaled once it becomes
// signaled, which unparks the waiting goroutine.

const (
	wtExecuteInWaitThread = 0x00000004
	wtExecuteOnlyOnce     = 0x00000008
)

var (
	kernel32                        = windows.NewLazySystemDLL("kernel32.dll")
	procRegisterWaitForSingleObject = kernel32.NewProc("RegisterWaitForSingleObject")
	procUnregisterWaitEx            = kernel32.NewProc("UnregisterWaitEx")

	// completions owns every completion handed to the kernel. The key is
	// the callback context: whoever Takes it first owns the completion
	completions park.Handoff[*completion]

	// callbacks are a limited resource: create the only one once
	waitCallback = windows.NewCallback(onProcessSignaled)
)

// completion is the single-use channel between the thread-pool callback
// and the waiting goroutine
type completion struct {
	parker    *park.Parker
	delivered atomic.Bool
}

func (c *completion) complete() {
	c.delivered.Store(true)
	c.parker.Unpark()
}

// onProcessSignaled runs on a thread-pool thread that the Go scheduler
// does not own: it must not block. The registration never times out, so
// the second argument is always false
func onProcessSignaled(key, _ uintptr) uintptr {
	c, ok := completions.Take(key)
	if !ok {
		return 0
	}
	c.complete()
	return 0
}

type waiter struct {
	pid    int
	handle windows.Handle

	mu             sync.Mutex
	registered     bool
	releasePending bool
	released       bool
}

// newWaiter opens a handle of our own: os.Process keeps its handle
// private. The pid cannot be reused yet since os.Process still holds
// its handle open
func newWaiter(p *os.Process) (*waiter, error) {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(p.Pid))
	if err != nil {
		return nil, os.NewSyscallError("OpenProcess", err)
	}
	return &waiter{pid: p.Pid, handle: h}, nil
}

func (w *waiter) probe() (*ExitStatus, error) {
	event, err := windows.WaitForSingleObject(w.handle, 0)
	switch event {
	case windows.WAIT_OBJECT_0:
	case uint32(windows.WAIT_TIMEOUT):
		return nil, nil
	default:
		return nil, os.NewSyscallError("WaitForSingleObject", err)
	}

	var code uint32
	if err := windows.GetExitCodeProcess(w.handle, &code); err != nil {
		return nil, os.NewSyscallError("GetExitCodeProcess", err)
	}

	return &ExitStatus{
		PID:      w.pid,
		ExitCode: int(code),
		Raw:      code,
	}, nil
}

// release closes the handle, unless a registration still refers to it:
// then the registration closes it when it is torn down
func (w *waiter) release() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.registered {
		w.releasePending = true
		return
	}
	w.closeHandle()
}

// closeHandle must be called with w.mu held
func (w *waiter) closeHandle() {
	if w.released {
		return
	}
	w.released = true
	windows.CloseHandle(w.handle)
}

// registration ties together the kernel wait object and the key of the
// completion handed to it. Both are released by unregister
type registration struct {
	w          *waiter
	waitObject windows.Handle
	key        uintptr
	done       *completion
}

func (w *waiter) register() (*registration, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return nil, fmt.Errorf("register wait: %w", os.ErrProcessDone)
	}

	done := &completion{parker: park.New()}
	key := completions.Give(done)

	var waitObject windows.Handle
	r1, _, err := procRegisterWaitForSingleObject.Call(
		uintptr(unsafe.Pointer(&waitObject)),
		uintptr(w.handle),
		waitCallback,
		key,
		uintptr(windows.INFINITE),
		wtExecuteInWaitThread|wtExecuteOnlyOnce,
	)
	if r1 == 0 {
		// the kernel never got it: take the completion back
		completions.Take(key)
		return nil, os.NewSyscallError("RegisterWaitForSingleObject", err)
	}

	w.registered = true
	metrics.WaitRegistered()
	return &registration{w: w, waitObject: waitObject, key: key, done: done}, nil
}

// unregister blocks until a callback already running has returned, so
// after it the completion is either delivered or reclaimed here
func (r *registration) unregister() error {
	var unregErr error
	r1, _, err := procUnregisterWaitEx.Call(uintptr(r.waitObject), uintptr(windows.InvalidHandle))
	if r1 == 0 {
		unregErr = os.NewSyscallError("UnregisterWaitEx", err)
		logger().Warn("failed to unregister wait", "pid", r.w.pid, "error", err)
	}
	completions.Take(r.key)

	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.registered = false
	if r.w.releasePending {
		r.w.closeHandle()
	}
	return unregErr
}

func (c *Child) waitExit() (ExitStatus, error) {
	status, err := c.TryWait()
	if err != nil {
		return ExitStatus{}, err
	}
	if status != nil {
		return *status, nil
	}

	reg, err := c.waiter.register()
	if err != nil {
		// a concurrent TryWait may have observed the exit meanwhile
		if status := c.cached(); status != nil {
			return *status, nil
		}
		return ExitStatus{}, fmt.Errorf("process \"%s\" (%d): %w", c.program, c.pid, err)
	}

	reg.done.parker.Park(0)
	metrics.ExitWakeup()
	logger().Debug("child handle signaled", "pid", c.pid)

	unregErr := reg.unregister()
	if !reg.done.delivered.Load() {
		return ExitStatus{}, fmt.Errorf("process \"%s\" (%d): %w", c.program, c.pid, ErrNotificationClosed)
	}

	status, err = c.TryWait()
	if err != nil {
		return ExitStatus{}, err
	}
	if status == nil {
		if unregErr != nil {
			return ExitStatus{}, fmt.Errorf("process \"%s\" (%d): %w: %w", c.program, c.pid, ErrNoExitStatus, unregErr)
		}
		return ExitStatus{}, fmt.Errorf("process \"%s\" (%d): %w", c.program, c.pid, ErrNoExitStatus)
	}
	return *status, nil
}
