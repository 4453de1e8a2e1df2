//go:build windows

package worker

import "os"

// TerminatePID forcibly kills a process by identifier. Used when a
// streaming call owns the handle and the process is only reachable by
// its recorded pid.
func TerminatePID(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		// Already gone.
		return nil
	}

	return proc.Kill()
}
