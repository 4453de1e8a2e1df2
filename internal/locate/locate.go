// Package locate resolves the worker invocation: project root,
// interpreter, bridge sub-mode arguments, and environment additions.
//
// The bridge core only depends on the config.Locator interface; this
// package is the default implementation for Python-scripted workers.
package locate

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/wagiedev/worker-bridge-go/internal/config"
	"github.com/wagiedev/worker-bridge-go/internal/errors"
)

const (
	// DefaultMarkerFile identifies the project root.
	DefaultMarkerFile = "pyproject.toml"

	// DefaultWorkerScript is the script launched in bridge mode.
	DefaultWorkerScript = "cli.py"

	// DefaultBridgeArg is the sub-mode argument that switches the
	// worker from normal command-line invocation into the line
	// protocol served over its standard streams.
	DefaultBridgeArg = "tui-bridge"

	// maxRootAscent bounds the upward walk when searching for the
	// project marker file.
	maxRootAscent = 10
)

// ScriptLocator locates a script-based worker: it finds the project
// root by marker file, prefers the project virtualenv interpreter, and
// builds the environment the worker needs at every (re)launch.
type ScriptLocator struct {
	cfg *config.Options
	log *slog.Logger
}

// Compile-time verification that ScriptLocator implements Locator.
var _ config.Locator = (*ScriptLocator)(nil)

// NewScriptLocator creates the default worker locator.
func NewScriptLocator(log *slog.Logger, cfg *config.Options) *ScriptLocator {
	return &ScriptLocator{
		cfg: cfg,
		log: log.With("component", "locator"),
	}
}

// Locate resolves the worker invocation.
//
// The project root is found by walking up from the current directory,
// then from the executable's directory, looking for the marker file.
// The interpreter preference order is: project venv interpreter, then
// python3 (or the py launcher on Windows) from PATH.
//
// Returns WorkerNotFoundError if no project root or interpreter is
// found. Failed resolutions are not retried.
func (l *ScriptLocator) Locate(_ context.Context) (config.WorkerCommand, error) {
	marker := l.cfg.MarkerFile
	if marker == "" {
		marker = DefaultMarkerFile
	}

	script := l.cfg.WorkerScript
	if script == "" {
		script = DefaultWorkerScript
	}

	bridgeArg := l.cfg.BridgeArg
	if bridgeArg == "" {
		bridgeArg = DefaultBridgeArg
	}

	root, err := findProjectRoot(marker)
	if err != nil {
		l.log.Warn("Project root not found", "marker", marker)

		return config.WorkerCommand{}, err
	}

	l.log.Debug("Found project root", "root", root)

	scriptPath := filepath.Join(root, script)
	path, args, err := findInterpreter(root)
	if err != nil {
		return config.WorkerCommand{}, err
	}

	args = append(args, scriptPath, bridgeArg)
	l.log.Debug("Resolved worker invocation", "path", path, "args", args)

	// The worker's output encoding must be consistent regardless of
	// the host console, and additions are reapplied on every respawn.
	env := map[string]string{"PYTHONIOENCODING": "utf-8"}
	for k, v := range l.cfg.Env {
		env[k] = v
	}

	if l.cfg.RuntimeHomeVar != "" {
		if home, ok := bundledRuntimeHome(root); ok {
			l.log.Debug("Found bundled runtime", "home", home)

			env[l.cfg.RuntimeHomeVar] = home
		}
	}

	return config.WorkerCommand{
		Path: path,
		Args: args,
		Dir:  root,
		Env:  env,
	}, nil
}

// findProjectRoot walks up from the current directory, then from the
// executable's directory, looking for the marker file. The ascent is
// bounded to avoid scanning the whole filesystem.
func findProjectRoot(marker string) (string, error) {
	searched := make([]string, 0, 2)

	if cwd, err := os.Getwd(); err == nil {
		if root, ok := ascendTo(cwd, marker); ok {
			return root, nil
		}

		searched = append(searched, cwd)
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if root, ok := ascendTo(dir, marker); ok {
			return root, nil
		}

		searched = append(searched, dir)
	}

	return "", &errors.WorkerNotFoundError{SearchedPaths: searched}
}

func ascendTo(dir, marker string) (string, bool) {
	for i := 0; i < maxRootAscent; i++ {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return "", false
}

// findInterpreter prefers the project venv interpreter and falls back
// to the system Python.
func findInterpreter(root string) (string, []string, error) {
	venvPython := filepath.Join(root, ".venv", "bin", "python3")
	if runtime.GOOS == "windows" {
		venvPython = filepath.Join(root, ".venv", "Scripts", "python.exe")
	}

	if _, err := os.Stat(venvPython); err == nil {
		return venvPython, nil, nil
	}

	if runtime.GOOS == "windows" {
		if path, err := exec.LookPath("py"); err == nil {
			return path, []string{"-3"}, nil
		}
	}

	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil, nil
	}

	return "", nil, &errors.WorkerNotFoundError{
		SearchedPaths: []string{venvPython, "$PATH"},
	}
}

// bundledRuntimeHome looks for a runtime bundled under the project
// venv (.venv/lib/runtime/java or a versioned subdirectory containing
// bin/java). Returns the resolved home directory if present.
func bundledRuntimeHome(root string) (string, bool) {
	// Both spellings occur: "Lib" for Windows venvs, "lib" elsewhere.
	for _, lib := range []string{"lib", "Lib"} {
		rtJava := filepath.Join(root, ".venv", lib, "runtime", "java")
		if hasJavaBinary(rtJava) {
			return rtJava, true
		}

		entries, err := os.ReadDir(rtJava)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			sub := filepath.Join(rtJava, entry.Name())
			if hasJavaBinary(sub) {
				return sub, true
			}
		}
	}

	return "", false
}

func hasJavaBinary(home string) bool {
	for _, name := range []string{"java", "java.exe"} {
		if _, err := os.Stat(filepath.Join(home, "bin", name)); err == nil {
			return true
		}
	}

	return false
}

// FixedLocator returns a Locator for an explicit worker invocation,
// bypassing discovery entirely.
func FixedLocator(cmd config.WorkerCommand) config.Locator {
	return fixedLocator{cmd: cmd}
}

type fixedLocator struct {
	cmd config.WorkerCommand
}

func (l fixedLocator) Locate(_ context.Context) (config.WorkerCommand, error) {
	if l.cmd.Path == "" {
		return config.WorkerCommand{}, &errors.WorkerNotFoundError{SearchedPaths: []string{""}}
	}

	return l.cmd, nil
}
