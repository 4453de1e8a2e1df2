package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/wagiedev/worker-bridge-go/internal/config"
	"github.com/wagiedev/worker-bridge-go/internal/errors"
)

// Launch spawns the worker process from a resolved invocation.
//
// Stdin and stdout are captured as pipes; both must be capturable or
// the launch is rejected. Stderr is discarded — it is not multiplexed
// into the line protocol. The working directory and environment
// additions from cfg are applied identically on every launch, and
// window creation is suppressed on platforms with a process console.
//
// Returns SpawnError if the process fails to start.
func Launch(ctx context.Context, log *slog.Logger, cfg config.WorkerCommand) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmdline := cfg.Path + " " + strings.Join(cfg.Args, " ")
	log.Info("Launching worker process", "command", cmdline, "dir", cfg.Dir)

	// exec.Command, not CommandContext: the worker must outlive the
	// caller's context. Its lifetime is bounded by Abort and Release.
	//nolint:gosec // G204: spawning a resolved worker command is the point of this package
	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnvironment(cfg.Env)
	setSysProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &errors.SpawnError{Command: cmdline, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &errors.SpawnError{Command: cmdline, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, &errors.SpawnError{Command: cmdline, Err: fmt.Errorf("start process: %w", err)}
	}

	pid := cmd.Process.Pid
	log.Info("Worker process started", "pid", pid)

	return NewHandle(log, cmd, stdin, stdout, pid), nil
}

// buildEnvironment merges the host environment with the configured
// additions. Additions win on conflict by appearing last.
func buildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	for key, value := range extra {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
