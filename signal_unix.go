//go:build !windows

package coprocess

import "os"

// interruptProcess sends an os.Interrupt to the process
func interruptProcess(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
