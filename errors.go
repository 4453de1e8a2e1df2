package workerbridge

import "github.com/wagiedev/worker-bridge-go/internal/errors"

// Re-export error types from internal package

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// WorkerNotFoundError indicates the worker executable was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// SpawnError indicates the worker process could not be launched.
type SpawnError = errors.SpawnError

// RestartError indicates the post-abort relaunch failed.
type RestartError = errors.RestartError

// WriteError indicates a request could not be written to the worker.
type WriteError = errors.WriteError

// EncodeError indicates a request payload could not be serialized.
type EncodeError = errors.EncodeError

// DecodeError indicates a worker output line was not valid JSON.
type DecodeError = errors.DecodeError

// ProtocolError indicates the worker violated the envelope protocol.
type ProtocolError = errors.ProtocolError

// Re-export sentinel errors from internal package.
var (
	// ErrNotInitialized indicates no worker is currently installed.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrAlreadyStarted indicates Start was called on a running bridge.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrClosed indicates the bridge has been closed and cannot be reused.
	ErrClosed = errors.ErrClosed

	// ErrBridgeClosed indicates the worker closed its output stream
	// before emitting a result.
	ErrBridgeClosed = errors.ErrBridgeClosed
)
