//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals the process group led by proc. The child is its own
// group leader, so the group id equals its pid.
func signalGroup(proc *os.Process, sig syscall.Signal) error {
	return unix.Kill(-proc.Pid, sig)
}
