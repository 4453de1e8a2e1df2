package workerbridge

import (
	"github.com/wagiedev/worker-bridge-go/internal/bridge"
	"github.com/wagiedev/worker-bridge-go/internal/envelope"
)

// Message is one decoded worker line: a terminal result, or an
// out-of-band event when IsEvent reports true.
type Message = envelope.Message

// EventSink receives out-of-band events during a streaming call.
// Delivery is best-effort: a sink error does not fail the call.
// Sinks must not block indefinitely — a blocked sink stalls the
// streaming read loop.
type EventSink = bridge.EventSink

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(event Message)

// Emit implements EventSink.
func (f EventSinkFunc) Emit(event Message) error {
	f(event)

	return nil
}

// ChannelSink delivers events to ch without blocking. An event that
// does not fit (slow or absent receiver) is dropped; the streaming
// call itself is unaffected.
func ChannelSink(ch chan<- Message) EventSink {
	return channelSink{ch: ch}
}

type channelSink struct {
	ch chan<- Message
}

func (s channelSink) Emit(event Message) error {
	select {
	case s.ch <- event:
		return nil
	default:
		return errSinkFull
	}
}

var errSinkFull = &sinkFullError{}

type sinkFullError struct{}

func (*sinkFullError) Error() string { return "event channel full, event dropped" }
