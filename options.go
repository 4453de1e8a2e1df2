package workerbridge

import (
	"log/slog"

	"github.com/wagiedev/worker-bridge-go/internal/config"
)

// Option configures the bridge using the functional options pattern.
type Option func(*config.Options)

// Locator resolves the worker invocation at startup. Implement this
// to control how the worker executable, arguments, working directory
// and environment are discovered.
type Locator = config.Locator

// WorkerCommand is a fully resolved worker invocation.
type WorkerCommand = config.WorkerCommand

// applyOptions applies functional options to a config.Options struct.
func applyOptions(opts []Option) *config.Options {
	options := &config.Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *config.Options) {
		o.Logger = logger
	}
}

// WithLocator sets a custom worker locator, replacing discovery
// entirely. Takes precedence over WithCommand.
func WithLocator(locator Locator) Option {
	return func(o *config.Options) {
		o.Locator = locator
	}
}

// WithCommand sets an explicit worker invocation, bypassing discovery.
func WithCommand(path string, args ...string) Option {
	return func(o *config.Options) {
		o.Command = path
		o.Args = args
	}
}

// WithDir sets the working directory for an explicit worker command.
func WithDir(dir string) Option {
	return func(o *config.Options) {
		o.Dir = dir
	}
}

// WithEnv adds environment variables applied at every (re)launch.
func WithEnv(env map[string]string) Option {
	return func(o *config.Options) {
		o.Env = env
	}
}

// WithMarkerFile sets the file that identifies the project root
// during discovery (default "pyproject.toml").
func WithMarkerFile(name string) Option {
	return func(o *config.Options) {
		o.MarkerFile = name
	}
}

// WithWorkerScript sets the script discovery resolves relative to the
// project root (default "cli.py").
func WithWorkerScript(name string) Option {
	return func(o *config.Options) {
		o.WorkerScript = name
	}
}

// WithBridgeArg sets the sub-mode argument that switches the worker
// into the line protocol (default "tui-bridge").
func WithBridgeArg(arg string) Option {
	return func(o *config.Options) {
		o.BridgeArg = arg
	}
}

// WithRuntimeHomeVar names an environment variable to fill with the
// bundled runtime home found under the project venv, so the worker
// can locate the runtime without separate configuration.
func WithRuntimeHomeVar(name string) Option {
	return func(o *config.Options) {
		o.RuntimeHomeVar = name
	}
}
