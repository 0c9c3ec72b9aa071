package transport

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: unix.SIGTERM,
	}
}
