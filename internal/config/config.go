// Package config provides configuration types for the worker bridge.
package config

import (
	"context"
	"log/slog"
)

// WorkerCommand is a fully resolved worker invocation: the executable,
// its arguments (including the bridge sub-mode argument), the working
// directory, and environment additions. Produced once by a Locator at
// startup and reapplied identically on every respawn.
type WorkerCommand struct {
	// Path is the worker executable (interpreter or binary).
	Path string

	// Args are the command line arguments.
	Args []string

	// Dir is the working directory for the worker process.
	Dir string

	// Env are environment additions applied on top of the host
	// environment, identical for every launch.
	Env map[string]string
}

// Locator resolves the worker invocation. Implement this to control
// how the worker executable and its arguments are discovered.
//
// The default implementation walks up from the current directory
// looking for a project marker file and prefers the project's
// virtualenv interpreter. A fixed invocation can be supplied via
// WithCommand, which bypasses discovery entirely.
type Locator interface {
	// Locate resolves the worker invocation.
	// Returns WorkerNotFoundError if no suitable executable exists.
	Locate(ctx context.Context) (WorkerCommand, error)
}

// Options holds all bridge configuration.
// Populated via the root package's functional options.
type Options struct {
	// Logger receives debug/info/warn/error messages during bridge
	// operations. Nil means silent operation.
	Logger *slog.Logger

	// Locator resolves the worker invocation at startup.
	// Takes precedence over the discovery fields below.
	Locator Locator

	// Command is an explicit worker invocation that bypasses discovery.
	Command string

	// Args are the arguments for an explicit Command.
	Args []string

	// Dir is the working directory for an explicit Command.
	Dir string

	// Env are environment additions applied at every (re)launch.
	Env map[string]string

	// MarkerFile identifies the project root during discovery
	// (default "pyproject.toml").
	MarkerFile string

	// WorkerScript is the script discovery resolves relative to the
	// project root (default "cli.py").
	WorkerScript string

	// BridgeArg is the sub-mode argument appended to the worker
	// invocation (default "tui-bridge").
	BridgeArg string

	// RuntimeHomeVar, if set, names an environment variable to fill
	// with the bundled runtime home found under the project venv.
	RuntimeHomeVar string
}
