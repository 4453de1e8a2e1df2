package workerbridge

import (
	"fmt"
	"os"
	"os/exec"
)

// OpenPath opens a file or folder with the host's default application.
func OpenPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open path: %w", err)
	}

	return run(openCommand(path))
}

// RevealInFolder opens the folder containing path in the host's file
// manager, selecting the entry where the platform supports it.
func RevealInFolder(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("reveal in folder: %w", err)
	}

	return run(revealCommand(path))
}

func run(name string, args []string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	go func() { _ = cmd.Wait() }()

	return nil
}
