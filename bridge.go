package workerbridge

import "context"

// Bridge supervises one worker process and serializes concurrent
// callers onto its standard streams.
//
// Exactly one request (synchronous or streaming) uses the worker's
// pipe at any instant. A synchronous call issued while another
// synchronous call is in flight blocks; one issued while a streaming
// call owns the worker fails with ErrNotInitialized rather than
// queueing behind an unbounded read.
//
// Lifecycle: bridges are single-use. After Close(), create a new one
// with New().
type Bridge interface {
	// Start locates and launches the worker, capturing the restart
	// configuration that every later respawn reuses identically.
	// Returns WorkerNotFoundError if the worker cannot be located,
	// SpawnError if it fails to launch, ErrAlreadyStarted if called
	// twice.
	Start(ctx context.Context) error

	// Send performs a synchronous call: one request line out, one
	// result line back. Defined only for commands whose handler never
	// emits events; an event line here fails with ProtocolError.
	Send(ctx context.Context, command string, payload map[string]any) (Message, error)

	// SendStream performs a streaming call: events are forwarded to
	// sink in arrival order (best-effort), and the terminal result is
	// returned. sink may be nil to discard events. If the call fails,
	// the worker is considered lost and the bridge is uninitialized
	// until the next Abort.
	SendStream(ctx context.Context, command string, payload map[string]any, sink EventSink) (Message, error)

	// Abort destructively cancels in-flight work: the worker is
	// killed and a fresh one is respawned from the captured restart
	// configuration. Returns RestartError if the respawn fails.
	Abort(ctx context.Context) error

	// Close drops the worker handle and lets the process exit on its
	// own. Safe to call multiple times.
	Close() error
}

// New creates a bridge. Call Start to launch the worker:
//
//	b := workerbridge.New(
//	    workerbridge.WithLogger(slog.Default()),
//	)
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
func New(opts ...Option) Bridge {
	return newBridgeImpl(opts)
}
