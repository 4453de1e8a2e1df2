//go:build !windows && !darwin

package workerbridge

import "path/filepath"

func openCommand(path string) (string, []string) {
	return "xdg-open", []string{path}
}

// xdg-open has no select-in-folder mode; open the parent directory.
func revealCommand(path string) (string, []string) {
	return "xdg-open", []string{filepath.Dir(path)}
}
