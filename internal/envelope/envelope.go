// Package envelope implements the per-line wire format exchanged with
// the worker process.
//
// Every message is one UTF-8 JSON object per line. A request carries
// the command name in a "cmd" field merged with the caller's payload.
// A worker line carrying "_event": true is an out-of-band event; any
// other object is the terminal result for the request in flight.
package envelope

import (
	"encoding/json"
	"strings"

	"github.com/wagiedev/worker-bridge-go/internal/errors"
)

// eventKey marks a decoded line as an out-of-band event.
const eventKey = "_event"

// Message is one decoded worker line.
type Message map[string]any

// IsEvent reports whether the message carries the event marker.
// Only a literal boolean true counts; "_event": "yes" does not.
func (m Message) IsEvent() bool {
	v, ok := m[eventKey].(bool)

	return ok && v
}

// Encode serializes a request as one JSON line: the payload fields
// merged with a "cmd" field set to command, terminated by a newline.
// A "cmd" key in the payload is overwritten by the command name.
func Encode(command string, payload map[string]any) ([]byte, error) {
	req := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		req[k] = v
	}

	req["cmd"] = command

	data, err := json.Marshal(req)
	if err != nil {
		return nil, &errors.EncodeError{Command: command, Err: err}
	}

	return append(data, '\n'), nil
}

// Decode parses one worker output line into a Message.
// The caller is responsible for skipping blank lines; Decode treats
// them as malformed like any other non-JSON input.
func Decode(line []byte) (Message, error) {
	var msg Message

	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, &errors.DecodeError{RawData: string(line), Err: err}
	}

	return msg, nil
}

// IsBlank reports whether a line is empty after trimming whitespace.
// Blank lines are not valid messages and must be skipped by readers.
func IsBlank(line []byte) bool {
	return len(strings.TrimSpace(string(line))) == 0
}
