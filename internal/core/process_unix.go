//go:build !windows

package core

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the collaborator in its own process group so that a
// timeout also stops the helpers it spawns.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
