//go:build unix

package bridge

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProcess puts the bridge in its own process group so a timeout
// or interrupt kills everything it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second
}
