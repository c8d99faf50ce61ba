//go:build !unix

package process

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup falls back to the single process: there are no process
// groups and no SIGINT delivery to a console-less child here.
func signalGroup(proc *os.Process, sig syscall.Signal) error {
	if sig == syscall.SIGKILL || sig == syscall.SIGINT || sig == syscall.SIGTERM {
		return proc.Kill()
	}
	return proc.Signal(sig)
}
