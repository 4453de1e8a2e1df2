// Package workerbridge supervises one external worker process and
// exposes it to concurrent callers over a newline-delimited JSON
// protocol on the worker's standard streams.
//
// The bridge keeps exactly one worker alive, serializes access to its
// pipes, multiplexes synchronous results against out-of-band progress
// events, and provides a destructive cancel-and-respawn primitive for
// abandoning long-running calls.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	b := workerbridge.New(
//	    workerbridge.WithLogger(slog.Default()),
//	)
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	result, err := b.Send(ctx, "doctor", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result["message"])
//
// # Streaming Calls
//
// Commands that report progress emit event lines before their result.
// Events are delivered to an EventSink as they arrive, in order; the
// result is always last and is never delivered as an event:
//
//	events := make(chan workerbridge.Message, 16)
//	go func() {
//	    for ev := range events {
//	        fmt.Println("progress:", ev["pct"])
//	    }
//	}()
//
//	result, err := b.SendStream(ctx, "run",
//	    map[string]any{"input": "build the model"},
//	    workerbridge.ChannelSink(events),
//	)
//
// # Cancellation
//
// There is no read timeout: the worker is trusted to produce a result
// eventually, and the only escape from an unbounded wait is Abort,
// which kills the worker and respawns a fresh one so the bridge stays
// usable:
//
//	if err := b.Abort(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Failures are returned as typed errors. ErrNotInitialized and
// ErrBridgeClosed are recoverable via Abort; SpawnError, RestartError,
// WriteError, DecodeError, EncodeError and ProtocolError are surfaced
// verbatim and never retried:
//
//	result, err := b.Send(ctx, "ping", nil)
//	if errors.Is(err, workerbridge.ErrBridgeClosed) {
//	    _ = b.Abort(ctx)
//	}
//
// The worker process, not the host, is the unit of failure and
// restart: no bridge error crashes the supervisor.
package workerbridge
