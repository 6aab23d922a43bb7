package commands

import "encoding/json"

// KindUnknown identifies a command whose wire command_type this client does
// not recognize.
const KindUnknown Kind = "unknown"

// Unknown preserves an unrecognized command so the sequencer can log it and
// move on instead of stalling the queue on a newer service dialect.
type Unknown struct {
	Base

	RawKind string
	Payload json.RawMessage
}

// NewUnknown creates an unknown command carrying the raw wire kind and
// payload.
func NewUnknown(rawKind string, payload json.RawMessage) Unknown {
	return Unknown{Base: NewBase(KindUnknown), RawKind: rawKind, Payload: payload}
}
