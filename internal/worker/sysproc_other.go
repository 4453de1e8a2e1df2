//go:build !windows

package worker

import "os/exec"

func setSysProcAttr(_ *exec.Cmd) {}
