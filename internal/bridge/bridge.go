// Package bridge implements the shared bridge state and the two call
// executors over one worker process.
//
// All shared mutable state lives in a single exclusively-locked cell:
// the current worker handle, the pid of the process owned by an
// in-flight streaming call, and nothing else. Synchronous calls hold
// the lock for the whole round trip; streaming calls only hold it to
// transfer possession of the handle, so an abort can terminate the
// worker without waiting on a lock held for an unbounded read.
package bridge

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wagiedev/worker-bridge-go/internal/envelope"
	"github.com/wagiedev/worker-bridge-go/internal/errors"
	"github.com/wagiedev/worker-bridge-go/internal/worker"
)

// LaunchFunc spawns a fresh worker from the restart configuration
// captured at startup. Every invocation must be behaviorally identical
// so a respawn is a clean relaunch, not a degraded one.
type LaunchFunc func(ctx context.Context) (*worker.Handle, error)

// EventSink receives out-of-band events during a streaming call.
// Delivery is best-effort: a sink error is logged and the call
// continues. Sinks must not block indefinitely.
type EventSink interface {
	Emit(event envelope.Message) error
}

// Bridge owns the worker and serializes access to its pipes.
type Bridge struct {
	log       *slog.Logger
	launch    LaunchFunc
	terminate func(pid int) error

	mu        sync.Mutex
	handle    *worker.Handle
	streamPID int
	closed    bool

	// Concurrent aborts share one kill-and-respawn cycle.
	aborts singleflight.Group
}

// New creates a bridge around a launch function. The bridge is
// uninitialized until Start installs the first worker.
func New(log *slog.Logger, launch LaunchFunc) *Bridge {
	return &Bridge{
		log:       log.With("component", "bridge"),
		launch:    launch,
		terminate: worker.TerminatePID,
	}
}

// Start launches the worker and installs it as the current handle.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrClosed
	}

	if b.handle != nil || b.streamPID != 0 {
		return errors.ErrAlreadyStarted
	}

	h, err := b.launch(ctx)
	if err != nil {
		return err
	}

	b.handle = h

	return nil
}

// Call performs one synchronous round trip: write the encoded request,
// read exactly one result line. The lock is held for the whole
// exchange — this is the serialization point that keeps two callers'
// requests from interleaving on the pipe.
//
// An event-marked line here is a protocol violation and fails the call
// with ProtocolError; synchronous commands must never emit events.
func (b *Bridge) Call(ctx context.Context, command string, payload map[string]any) (envelope.Message, error) {
	line, err := envelope.Encode(command, payload)
	if err != nil {
		return nil, err
	}

	log := b.log.With("call_id", ulid.Make().String(), "cmd", command)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.ErrClosed
	}

	if b.handle == nil {
		return nil, errors.ErrNotInitialized
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("Sending request", "bytes", len(line))

	if err := b.handle.WriteLine(line); err != nil {
		log.Error("Request write failed", "error", err)

		return nil, &errors.WriteError{Err: err}
	}

	for {
		raw, err := b.handle.ReadLine()
		if err != nil {
			log.Warn("Worker closed output before result")

			return nil, errors.ErrBridgeClosed
		}

		if envelope.IsBlank(raw) {
			continue
		}

		msg, err := envelope.Decode(bytes.TrimSpace(raw))
		if err != nil {
			return nil, err
		}

		if msg.IsEvent() {
			log.Error("Event received on synchronous call")

			return nil, &errors.ProtocolError{
				Message: "event received on synchronous call",
				Data:    msg,
			}
		}

		log.Debug("Received result")

		return msg, nil
	}
}

// CallStream performs one streaming round trip: write the encoded
// request, forward event lines to sink in arrival order, return the
// terminal result line.
//
// The handle is taken out of the cell for the call's duration and its
// pid recorded, so a concurrent Abort can kill the worker by pid
// without waiting for this call. On failure the handle is discarded
// and the bridge is left uninitialized until the next Abort or Start.
func (b *Bridge) CallStream(ctx context.Context, command string, payload map[string]any, sink EventSink) (envelope.Message, error) {
	line, err := envelope.Encode(command, payload)
	if err != nil {
		return nil, err
	}

	log := b.log.With("call_id", ulid.Make().String(), "cmd", command)

	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return nil, errors.ErrClosed
	}

	if b.handle == nil {
		b.mu.Unlock()

		return nil, errors.ErrNotInitialized
	}

	if err := ctx.Err(); err != nil {
		b.mu.Unlock()

		return nil, err
	}

	h := b.handle
	b.handle = nil
	b.streamPID = h.PID()
	b.mu.Unlock()

	log.Debug("Streaming call started", "pid", h.PID())

	msg, callErr := streamRoundTrip(log, h, line, sink)

	b.mu.Lock()

	b.streamPID = 0

	// Reinstall only on success, and never over a handle an abort
	// installed while this call was in flight.
	if callErr == nil && b.handle == nil && !b.closed {
		b.handle = h
	} else {
		h.Discard()
	}

	b.mu.Unlock()

	if callErr != nil {
		log.Warn("Streaming call failed", "error", callErr)

		return nil, callErr
	}

	log.Debug("Streaming call completed")

	return msg, nil
}

// streamRoundTrip runs the wire exchange on a handle exclusively owned
// by this call. No lock is held; possession serializes pipe access.
func streamRoundTrip(log *slog.Logger, h *worker.Handle, line []byte, sink EventSink) (envelope.Message, error) {
	if err := h.WriteLine(line); err != nil {
		return nil, &errors.WriteError{Err: err}
	}

	events := 0

	for {
		raw, err := h.ReadLine()
		if err != nil {
			return nil, errors.ErrBridgeClosed
		}

		if envelope.IsBlank(raw) {
			continue
		}

		msg, err := envelope.Decode(bytes.TrimSpace(raw))
		if err != nil {
			return nil, err
		}

		if msg.IsEvent() {
			events++

			if sink != nil {
				if err := sink.Emit(msg); err != nil {
					log.Warn("Dropping event, sink delivery failed", "error", err)
				}
			}

			continue
		}

		log.Debug("Result received", "events", events)

		return msg, nil
	}
}

// Abort destructively cancels in-flight work: the current worker is
// killed (by handle, or by recorded pid if a streaming call owns the
// handle), then a fresh worker is launched from the same restart
// configuration and installed. A streaming call blocked on a read
// observes end-of-stream and fails with ErrBridgeClosed.
//
// Returns RestartError if the relaunch fails; the bridge is then
// uninitialized until a later Abort succeeds.
func (b *Bridge) Abort(ctx context.Context) error {
	_, err, _ := b.aborts.Do("abort", func() (any, error) {
		return nil, b.abort(ctx)
	})

	return err
}

func (b *Bridge) abort(ctx context.Context) error {
	log := b.log.With("call_id", ulid.Make().String())

	// The lock is held across kill and respawn so callers observe
	// either the pre-abort state or the fully restored one.
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrClosed
	}

	h := b.handle
	b.handle = nil
	pid := b.streamPID
	b.streamPID = 0

	if h != nil {
		log.Info("Aborting worker", "pid", h.PID())

		if err := h.Kill(); err != nil {
			log.Warn("Worker kill failed", "pid", h.PID(), "error", err)
		}
	}

	if pid != 0 {
		// A streaming call owns the handle; the process is only
		// reachable by its recorded pid.
		log.Info("Aborting streaming worker", "pid", pid)

		if err := b.terminate(pid); err != nil {
			log.Warn("Worker terminate failed", "pid", pid, "error", err)
		}
	}

	newHandle, err := b.launch(ctx)
	if err != nil {
		log.Error("Worker relaunch failed", "error", err)

		return &errors.RestartError{Err: err}
	}

	b.handle = newHandle
	log.Info("Worker relaunched", "pid", newHandle.PID())

	return nil
}

// Close drops the current handle and lets the worker exit on its own;
// the process is not force-killed on normal shutdown. A streaming call
// that owns the handle finishes (or is aborted) independently.
// Safe to call multiple times.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	if b.handle != nil {
		err := b.handle.Release()
		b.handle = nil

		return err
	}

	return nil
}
