// Package park provides the suspend/resume primitive used by the child
// waiters: a goroutine parks on a Parker until something unparks it, and the
// Go scheduler runs other goroutines on the freed thread in the meantime.
package park

import "time"

// Outcome reports why Park returned.
type Outcome int

const (
	// Unparked means another goroutine or OS thread called Unpark.
	Unparked Outcome = iota
	// TimedOut means the timeout given to Park elapsed first.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Unparked:
		return "unparked"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Parker holds at most one wake-up token. Unpark deposits the token (extra
// calls are coalesced) and Park consumes it, suspending the caller until it is
// available. Unpark never blocks, so it can be called from a thread the Go
// scheduler does not own, like a kernel thread-pool callback.
type Parker struct {
	token chan struct{}
}

// New returns a Parker with no pending token.
func New() *Parker {
	return &Parker{token: make(chan struct{}, 1)}
}

// Park suspends the calling goroutine until a token is available or timeout
// elapses. A timeout <= 0 waits forever.
func (p *Parker) Park(timeout time.Duration) Outcome {
	if timeout <= 0 {
		<-p.token
		return Unparked
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.token:
		return Unparked
	case <-timer.C:
		return TimedOut
	}
}

// Unpark makes the token available, waking a parked goroutine if there is one.
func (p *Parker) Unpark() {
	select {
	case p.token <- struct{}{}:
	default:
	}
}
