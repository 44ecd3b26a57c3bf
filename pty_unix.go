//go:build !windows

package coprocess

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

func openPty() (master, tty *os.File, err error) {
	return pty.Open()
}

// configurePty makes the child a session leader with the terminal,
// which is its stdin, as controlling tty
func configurePty(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
}
