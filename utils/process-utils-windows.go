//go:build windows

package utils

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// ConfigureDetachedProcAttr starts the command in a new process group so console
// interrupts sent to afkcli are not delivered to it.
func ConfigureDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup,
	}
}
