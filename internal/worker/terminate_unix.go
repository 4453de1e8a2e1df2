//go:build unix

package worker

import "syscall"

// TerminatePID forcibly kills a process by identifier. Used when a
// streaming call owns the handle and the process is only reachable by
// its recorded pid.
func TerminatePID(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		// Already gone.
		return nil
	}

	return err
}
