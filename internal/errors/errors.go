package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*WorkerNotFoundError)(nil)
	_ BridgeError = (*SpawnError)(nil)
	_ BridgeError = (*RestartError)(nil)
	_ BridgeError = (*WriteError)(nil)
	_ BridgeError = (*EncodeError)(nil)
	_ BridgeError = (*DecodeError)(nil)
	_ BridgeError = (*ProtocolError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotInitialized indicates no worker is currently installed.
	// Recoverable: retry after Start or a successful Abort.
	ErrNotInitialized = errors.New("worker bridge not initialized")

	// ErrAlreadyStarted indicates Start was called on a running bridge.
	ErrAlreadyStarted = errors.New("worker bridge already started")

	// ErrClosed indicates the bridge has been closed and cannot be reused.
	ErrClosed = errors.New("worker bridge closed: create a new one with New()")

	// ErrBridgeClosed indicates the worker closed its output stream
	// before emitting a result. Callers should trigger Abort to recover.
	ErrBridgeClosed = errors.New("worker process closed unexpectedly")
)

// WorkerNotFoundError indicates the worker executable was not found.
type WorkerNotFoundError struct {
	SearchedPaths []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("worker executable not found in: %v", e.SearchedPaths)
}

// IsBridgeError implements BridgeError.
func (e *WorkerNotFoundError) IsBridgeError() bool { return true }

// SpawnError indicates the worker process could not be launched.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn worker (%s): %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *SpawnError) IsBridgeError() bool { return true }

// RestartError indicates the post-abort relaunch failed.
// The bridge is left uninitialized until a later abort succeeds.
type RestartError struct {
	Err error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("failed to restart worker after abort: %v", e.Err)
}

func (e *RestartError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *RestartError) IsBridgeError() bool { return true }

// WriteError indicates a request could not be written to the worker.
// The pipe is broken; callers should trigger Abort to recover.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write to worker: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *WriteError) IsBridgeError() bool { return true }

// EncodeError indicates a request payload could not be serialized.
type EncodeError struct {
	Command string
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode request %q: %v", e.Command, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *EncodeError) IsBridgeError() bool { return true }

// DecodeError indicates a worker output line was not valid JSON.
// This error preserves the original raw line that failed to parse.
type DecodeError struct {
	RawData string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from worker: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *DecodeError) IsBridgeError() bool { return true }

// ProtocolError indicates the worker violated the envelope protocol,
// e.g. emitted an event-marked line on a synchronous call.
type ProtocolError struct {
	Message string
	Data    map[string]any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Message)
}

// IsBridgeError implements BridgeError.
func (e *ProtocolError) IsBridgeError() bool { return true }
