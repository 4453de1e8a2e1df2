//go:build windows

package worker

import (
	"os/exec"
	"syscall"
)

// createNoWindow suppresses the console window for the worker process.
const createNoWindow = 0x08000000

func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
