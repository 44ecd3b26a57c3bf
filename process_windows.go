package coprocess

import (
	"os/exec"
	"strings"
	"syscall"
)

// createCommand creates a *exec.Cmd suitable for the
// platform.
//
// On windows the child is placed in a new process group, so that
// StopProcess can deliver a CTRL+BREAK to it without interfering
// with the parent process
func createCommand(execPath string, args ...string) *exec.Cmd {
	cmd := exec.Command(execPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	return cmd
}

// environment variable names are case insensitive on windows
func envKey(key string) string {
	return strings.ToUpper(key)
}
