package coprocess

import (
	"fmt"
	"os"
)

const ctrlBreakEvent = 1

var procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")

// interruptProcess generates a CTRL+BREAK event for the process group
// of the process. Children spawned by this package lead their own
// group, so the event does not reach the parent
func interruptProcess(p *os.Process) error {
	return generateConsoleCtrlEvent(ctrlBreakEvent, p.Pid)
}

func generateConsoleCtrlEvent(event uint32, pid int) error {
	r, _, err := procGenerateConsoleCtrlEvent.Call(uintptr(event), uintptr(pid))
	if r == 0 {
		return fmt.Errorf("generateConsoleCtrlEvent: %w", err)
	}
	return nil
}
