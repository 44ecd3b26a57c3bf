package coprocess

import (
	"os"
)

// StopProcess asks the process with the given PID to terminate, the way
// a user pressing CTRL+C would: with an os.Interrupt on Unix and a
// CTRL+BREAK console event on Windows. The process can handle it or not
func StopProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer p.Release()

	return interruptProcess(p)
}
