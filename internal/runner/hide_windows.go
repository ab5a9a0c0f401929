//go:build windows

package runner

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the console window from flashing for every probe.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
