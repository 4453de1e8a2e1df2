package workerbridge

import (
	"context"
	"sync"

	intbridge "github.com/wagiedev/worker-bridge-go/internal/bridge"
	"github.com/wagiedev/worker-bridge-go/internal/config"
	"github.com/wagiedev/worker-bridge-go/internal/errors"
	"github.com/wagiedev/worker-bridge-go/internal/locate"
	"github.com/wagiedev/worker-bridge-go/internal/worker"
)

// bridgeImpl wires the locator, the launch closure carrying the
// captured restart configuration, and the core executor together.
type bridgeImpl struct {
	opts *config.Options

	mu     sync.Mutex
	core   *intbridge.Bridge
	closed bool
}

// Compile-time verification that bridgeImpl implements Bridge.
var _ Bridge = (*bridgeImpl)(nil)

func newBridgeImpl(opts []Option) *bridgeImpl {
	options := applyOptions(opts)
	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	return &bridgeImpl{opts: options}
}

// locator picks the configured Locator, an explicit command, or the
// default script discovery, in that order.
func (b *bridgeImpl) locator() config.Locator {
	if b.opts.Locator != nil {
		return b.opts.Locator
	}

	if b.opts.Command != "" {
		return locate.FixedLocator(config.WorkerCommand{
			Path: b.opts.Command,
			Args: b.opts.Args,
			Dir:  b.opts.Dir,
			Env:  b.opts.Env,
		})
	}

	return locate.NewScriptLocator(b.opts.Logger, b.opts)
}

func (b *bridgeImpl) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrClosed
	}

	if b.core != nil {
		return errors.ErrAlreadyStarted
	}

	// The invocation is resolved once; every respawn reuses it
	// unchanged so a restart is behaviorally a clean relaunch.
	cmd, err := b.locator().Locate(ctx)
	if err != nil {
		return err
	}

	log := b.opts.Logger
	launch := func(ctx context.Context) (*worker.Handle, error) {
		return worker.Launch(ctx, log, cmd)
	}

	core := intbridge.New(log, launch)
	if err := core.Start(ctx); err != nil {
		return err
	}

	b.core = core

	return nil
}

func (b *bridgeImpl) Send(ctx context.Context, command string, payload map[string]any) (Message, error) {
	core, err := b.running()
	if err != nil {
		return nil, err
	}

	return core.Call(ctx, command, payload)
}

func (b *bridgeImpl) SendStream(ctx context.Context, command string, payload map[string]any, sink EventSink) (Message, error) {
	core, err := b.running()
	if err != nil {
		return nil, err
	}

	return core.CallStream(ctx, command, payload, sink)
}

func (b *bridgeImpl) Abort(ctx context.Context) error {
	core, err := b.running()
	if err != nil {
		return err
	}

	return core.Abort(ctx)
}

func (b *bridgeImpl) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	if b.core != nil {
		return b.core.Close()
	}

	return nil
}

// running returns the core executor, or the reason there isn't one.
func (b *bridgeImpl) running() (*intbridge.Bridge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.ErrClosed
	}

	if b.core == nil {
		return nil, errors.ErrNotInitialized
	}

	return b.core, nil
}
