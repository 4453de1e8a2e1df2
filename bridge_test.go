package workerbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_BeforeStart(t *testing.T) {
	b := New()

	_, err := b.Send(context.Background(), "ping", nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestSendStream_BeforeStart(t *testing.T) {
	b := New()

	_, err := b.SendStream(context.Background(), "run", nil, nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestAbort_BeforeStart(t *testing.T) {
	b := New()

	require.ErrorIs(t, b.Abort(context.Background()), ErrNotInitialized)
}

func TestClose_BeforeStart(t *testing.T) {
	b := New()

	require.NoError(t, b.Close())
	require.ErrorIs(t, b.Start(context.Background()), ErrClosed)
}

func TestStart_SpawnFailure(t *testing.T) {
	b := New(WithCommand("/nonexistent/worker/binary"))

	err := b.Start(context.Background())
	require.Error(t, err)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestChannelSink_NonBlocking(t *testing.T) {
	ch := make(chan Message, 1)
	sink := ChannelSink(ch)

	require.NoError(t, sink.Emit(Message{"pct": 50}))

	// The channel is full; the second event is dropped, not blocked on.
	err := sink.Emit(Message{"pct": 100})
	require.Error(t, err)

	assert.Equal(t, Message{"pct": 50}, <-ch)
}

func TestEventSinkFunc(t *testing.T) {
	var got []Message

	sink := EventSinkFunc(func(event Message) {
		got = append(got, event)
	})

	require.NoError(t, sink.Emit(Message{"pct": 50}))
	assert.Len(t, got, 1)
}

func TestNopLogger(t *testing.T) {
	require.NotNil(t, NopLogger())
	NopLogger().Info("discarded")
}

func TestApplyOptions(t *testing.T) {
	opts := applyOptions([]Option{
		WithCommand("python3", "cli.py"),
		WithDir("/srv/project"),
		WithEnv(map[string]string{"A": "b"}),
		WithMarkerFile("worker.toml"),
		WithWorkerScript("main.py"),
		WithBridgeArg("serve-bridge"),
		WithRuntimeHomeVar("JAVA_HOME"),
	})

	assert.Equal(t, "python3", opts.Command)
	assert.Equal(t, []string{"cli.py"}, opts.Args)
	assert.Equal(t, "/srv/project", opts.Dir)
	assert.Equal(t, "b", opts.Env["A"])
	assert.Equal(t, "worker.toml", opts.MarkerFile)
	assert.Equal(t, "main.py", opts.WorkerScript)
	assert.Equal(t, "serve-bridge", opts.BridgeArg)
	assert.Equal(t, "JAVA_HOME", opts.RuntimeHomeVar)
}
