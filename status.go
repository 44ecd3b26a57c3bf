package coprocess

import (
	"fmt"
	"syscall"
)

// ExitStatus holds the status information of a child process
// after it has exited. It is produced once per Child and cached.
type ExitStatus struct {
	PID int
	// ExitCode is the code passed to exit by the child, or -1 if
	// it was terminated by a signal
	ExitCode int
	// Signal is the signal that terminated the child, 0 if it exited
	// on its own. Always 0 on Windows
	Signal syscall.Signal
	// Raw is the undecoded platform status: the wait status word on
	// Unix, the process exit code on Windows
	Raw uint32
}

// Success reports whether the child exited normally with code 0
func (s ExitStatus) Success() bool {
	return s.ExitCode == 0 && s.Signal == 0
}

// Code returns the exit code, if the child exited on its own
func (s ExitStatus) Code() (int, bool) {
	if s.Signal != 0 || s.ExitCode < 0 {
		return 0, false
	}
	return s.ExitCode, true
}

// Signaled returns the signal that terminated the child, if any
func (s ExitStatus) Signaled() (syscall.Signal, bool) {
	return s.Signal, s.Signal != 0
}

// Err returns nil for a successful exit and an *ExitError otherwise
func (s ExitStatus) Err() error {
	if s.Success() {
		return nil
	}
	return &ExitError{Status: s}
}

func (s ExitStatus) String() string {
	if sig, ok := s.Signaled(); ok {
		return fmt.Sprintf("signal: %v", sig)
	}
	return fmt.Sprintf("exit status %d", s.ExitCode)
}

// ExitError reports an unsuccessful exit
type ExitError struct {
	Status ExitStatus
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process %d: %s", e.Status.PID, e.Status)
}

// Output is the result of Command.Output and Child.WaitWithOutput
type Output struct {
	Status ExitStatus
	Stdout []byte
	Stderr []byte
}
