//go:build !windows

package coprocess

import (
	"os/exec"
)

// createCommand creates a *exec.Cmd suitable for the platform
func createCommand(execPath string, args ...string) *exec.Cmd {
	return exec.Command(execPath, args...)
}

func envKey(key string) string {
	return key
}
