package bridge

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/worker-bridge-go/internal/envelope"
	"github.com/wagiedev/worker-bridge-go/internal/errors"
	"github.com/wagiedev/worker-bridge-go/internal/worker"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWorker is the far end of a pipe-backed handle: it reads request
// lines the bridge writes and replies according to a script.
type fakeWorker struct {
	in  *io.PipeReader // requests from the bridge
	out *io.PipeWriter // replies to the bridge
}

// newFakeHandle builds a Handle backed by in-memory pipes and returns
// the worker side.
func newFakeHandle(pid int) (*worker.Handle, *fakeWorker) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	h := worker.NewHandle(nopLogger(), nil, reqW, respR, pid)

	return h, &fakeWorker{in: reqR, out: respW}
}

// serve runs script for every request line until the request pipe
// closes. script returns the raw lines to write back; a nil return
// closes the worker's output (simulating an exiting process).
func (w *fakeWorker) serve(t *testing.T, script func(req envelope.Message) []string) {
	t.Helper()

	go func() {
		scanner := bufio.NewScanner(w.in)
		for scanner.Scan() {
			req, err := envelope.Decode(scanner.Bytes())
			if err != nil {
				_ = w.out.CloseWithError(err)

				return
			}

			lines := script(req)
			if lines == nil {
				_ = w.out.Close()

				return
			}

			for _, line := range lines {
				if _, err := fmt.Fprintln(w.out, line); err != nil {
					return
				}
			}
		}
	}()
}

// echoOK replies {"ok":true} to every request.
func echoOK(envelope.Message) []string {
	return []string{`{"ok":true}`}
}

// staticLauncher returns pre-built handles in order, failing when they
// run out.
func staticLauncher(handles ...*worker.Handle) LaunchFunc {
	i := 0

	return func(context.Context) (*worker.Handle, error) {
		if i >= len(handles) {
			return nil, &errors.SpawnError{Command: "fake", Err: stderrors.New("no more workers")}
		}

		h := handles[i]
		i++

		return h, nil
	}
}

func startBridge(t *testing.T, handles ...*worker.Handle) *Bridge {
	t.Helper()

	b := New(nopLogger(), staticLauncher(handles...))
	require.NoError(t, b.Start(context.Background()))

	return b
}

func TestCall_RoundTrip(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(req envelope.Message) []string {
		assert.Equal(t, "ping", req["cmd"])
		assert.Equal(t, float64(1), req["x"])

		return []string{`{"ok":true}`}
	})

	b := startBridge(t, h)

	result, err := b.Call(context.Background(), "ping", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, envelope.Message{"ok": true}, result)
}

func TestCall_NotInitialized(t *testing.T) {
	b := New(nopLogger(), staticLauncher())

	_, err := b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrNotInitialized)
}

func TestCall_BridgeClosedOnEOF(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return nil // close output without replying
	})

	b := startBridge(t, h)

	_, err := b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrBridgeClosed)
}

func TestCall_SkipsBlankLines(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{"", "   ", `{"ok":true}`}
	})

	b := startBridge(t, h)

	result, err := b.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestCall_RejectsEventLine(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{`{"_event":true,"pct":50}`}
	})

	b := startBridge(t, h)

	_, err := b.Call(context.Background(), "ping", nil)
	require.Error(t, err)

	var protoErr *errors.ProtocolError
	ok := stderrors.As(err, &protoErr)
	require.True(t, ok)
	assert.True(t, envelope.Message(protoErr.Data).IsEvent())
}

func TestCall_InvalidResponse(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{"not json"}
	})

	b := startBridge(t, h)

	_, err := b.Call(context.Background(), "ping", nil)
	require.Error(t, err)

	var decErr *errors.DecodeError
	ok := stderrors.As(err, &decErr)
	require.True(t, ok)
	assert.Equal(t, "not json", decErr.RawData)
}

func TestCall_ConcurrentCallersDoNotInterleave(t *testing.T) {
	h, fw := newFakeHandle(1)
	// Every request line must arrive as a complete JSON object; the
	// reply carries the caller's id back so mixups are detectable.
	fw.serve(t, func(req envelope.Message) []string {
		return []string{fmt.Sprintf(`{"id":%v}`, req["id"])}
	})

	b := startBridge(t, h)

	const numCallers = 10

	var wg sync.WaitGroup

	for i := 0; i < numCallers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			result, err := b.Call(context.Background(), "echo", map[string]any{"id": id})
			assert.NoError(t, err)
			assert.Equal(t, float64(id), result["id"])
		}(i)
	}

	wg.Wait()
}

type sinkFunc func(envelope.Message) error

func (f sinkFunc) Emit(event envelope.Message) error { return f(event) }

func collectSink(events *[]envelope.Message) EventSink {
	return sinkFunc(func(event envelope.Message) error {
		*events = append(*events, event)

		return nil
	})
}

func TestCallStream_EventsInOrderThenResult(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{
			`{"_event":true,"pct":50}`,
			`{"_event":true,"pct":100}`,
			`{"done":true}`,
		}
	})

	b := startBridge(t, h)

	var events []envelope.Message

	result, err := b.CallStream(context.Background(), "run", map[string]any{"input": "go"}, collectSink(&events))
	require.NoError(t, err)
	assert.Equal(t, envelope.Message{"done": true}, result)

	require.Len(t, events, 2)
	assert.Equal(t, float64(50), events[0]["pct"])
	assert.Equal(t, float64(100), events[1]["pct"])

	for _, event := range events {
		assert.True(t, event.IsEvent())
	}
}

func TestCallStream_ZeroEvents(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, echoOK)

	b := startBridge(t, h)

	var events []envelope.Message

	result, err := b.CallStream(context.Background(), "run", nil, collectSink(&events))
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
	assert.Empty(t, events)
}

func TestCallStream_SinkErrorDoesNotFailCall(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{`{"_event":true,"pct":50}`, `{"done":true}`}
	})

	b := startBridge(t, h)

	sink := sinkFunc(func(envelope.Message) error {
		return stderrors.New("subscriber gone")
	})

	result, err := b.CallStream(context.Background(), "run", nil, sink)
	require.NoError(t, err)
	assert.Equal(t, true, result["done"])
}

func TestCallStream_NilSinkDropsEvents(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{`{"_event":true,"pct":50}`, `{"done":true}`}
	})

	b := startBridge(t, h)

	result, err := b.CallStream(context.Background(), "run", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["done"])
}

func TestCallStream_BlankLinesSkipped(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return []string{"", `{"_event":true,"pct":50}`, "  ", `{"done":true}`}
	})

	b := startBridge(t, h)

	var events []envelope.Message

	result, err := b.CallStream(context.Background(), "run", nil, collectSink(&events))
	require.NoError(t, err)
	assert.Equal(t, true, result["done"])
	assert.Len(t, events, 1)
}

func TestCallStream_FailureLeavesBridgeUninitialized(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, func(envelope.Message) []string {
		return nil // worker dies mid-call
	})

	b := startBridge(t, h)

	_, err := b.CallStream(context.Background(), "run", nil, nil)
	require.ErrorIs(t, err, errors.ErrBridgeClosed)

	// The handle must not have been reinstalled.
	_, err = b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrNotInitialized)
}

func TestCallStream_ReinstallsHandleOnSuccess(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, echoOK)

	b := startBridge(t, h)

	_, err := b.CallStream(context.Background(), "run", nil, nil)
	require.NoError(t, err)

	// The same worker must serve the next synchronous call.
	result, err := b.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestCallStream_SyncCallDuringStreamFailsFast(t *testing.T) {
	h, fw := newFakeHandle(1)

	release := make(chan struct{})

	fw.serve(t, func(envelope.Message) []string {
		<-release

		return []string{`{"done":true}`}
	})

	b := startBridge(t, h)

	streamDone := make(chan error, 1)

	go func() {
		_, err := b.CallStream(context.Background(), "run", nil, nil)
		streamDone <- err
	}()

	// Wait until the streaming call has taken the handle.
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()

		return b.streamPID != 0
	}, time.Second, time.Millisecond)

	// The streaming call owns the handle; a synchronous call must not
	// block behind the unbounded read.
	_, err := b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrNotInitialized)

	close(release)
	require.NoError(t, <-streamDone)
}

func TestAbort_RespawnsWorker(t *testing.T) {
	h1, fw1 := newFakeHandle(1)
	fw1.serve(t, func(envelope.Message) []string { return []string{`{"gen":1}`} })

	h2, fw2 := newFakeHandle(2)
	fw2.serve(t, func(envelope.Message) []string { return []string{`{"gen":2}`} })

	b := startBridge(t, h1, h2)

	require.NoError(t, b.Abort(context.Background()))

	result, err := b.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2), result["gen"])
}

func TestAbort_KillsStreamingWorkerByPID(t *testing.T) {
	const streamingPID = 111

	h1, fw1 := newFakeHandle(streamingPID)
	// Swallow the request and never reply; only an abort can end this.
	fw1.serve(t, func(envelope.Message) []string {
		select {}
	})

	h2, fw2 := newFakeHandle(222)
	fw2.serve(t, func(envelope.Message) []string { return []string{`{"gen":2}`} })

	b := startBridge(t, h1, h2)

	var killedPID int

	b.terminate = func(pid int) error {
		killedPID = pid
		// Killing the process closes its pipes; the blocked read
		// observes end-of-stream.
		_ = fw1.out.Close()

		return nil
	}

	streamDone := make(chan error, 1)

	go func() {
		_, err := b.CallStream(context.Background(), "run", nil, nil)
		streamDone <- err
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()

		return b.streamPID == streamingPID
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Abort(context.Background()))
	assert.Equal(t, streamingPID, killedPID)

	// The aborted streaming call fails rather than hanging.
	select {
	case err := <-streamDone:
		require.ErrorIs(t, err, errors.ErrBridgeClosed)
	case <-time.After(time.Second):
		t.Fatal("streaming call did not return after abort")
	}

	// The failed streaming call must not have overwritten the fresh
	// handle installed by the abort.
	result, err := b.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2), result["gen"])
}

func TestAbort_RelaunchFailureLeavesUninitialized(t *testing.T) {
	h1, fw1 := newFakeHandle(1)
	fw1.serve(t, echoOK)

	b := startBridge(t, h1) // launcher has no second worker

	err := b.Abort(context.Background())
	require.Error(t, err)

	ok := stderrors.As(err, new(*errors.RestartError))
	require.True(t, ok)

	_, err = b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrNotInitialized)
}

func TestStart_AlreadyStarted(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, echoOK)

	b := startBridge(t, h)

	require.ErrorIs(t, b.Start(context.Background()), errors.ErrAlreadyStarted)
}

func TestClose_DropsHandleAndRejectsCalls(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, echoOK)

	b := startBridge(t, h)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close()) // idempotent

	_, err := b.Call(context.Background(), "ping", nil)
	require.ErrorIs(t, err, errors.ErrClosed)

	require.ErrorIs(t, b.Start(context.Background()), errors.ErrClosed)
	require.ErrorIs(t, b.Abort(context.Background()), errors.ErrClosed)
}

func TestCall_ContextAlreadyCancelled(t *testing.T) {
	h, fw := newFakeHandle(1)
	fw.serve(t, echoOK)

	b := startBridge(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Call(ctx, "ping", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCall_EncodeErrorBeforeTouchingWorker(t *testing.T) {
	b := New(nopLogger(), staticLauncher())

	// Encoding fails before the uninitialized state is even consulted.
	_, err := b.Call(context.Background(), "ping", map[string]any{"bad": func() {}})
	require.Error(t, err)

	ok := stderrors.As(err, new(*errors.EncodeError))
	require.True(t, ok)
}
