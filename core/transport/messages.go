// Package transport defines the wire contract with the lesson service and
// the websocket client that speaks it.
//
// The transport is deliberately thin: it decodes envelopes and moves them,
// while all ordering and completion semantics live in the core. Reconnect
// and backoff policy belong to the embedding application.
package transport

import "encoding/json"

// Inbound message types.
const (
	InboundTypeConnected       = "connected"
	InboundTypeSessionStarted  = "session_started"
	InboundTypeSessionError    = "session_error"
	InboundTypeCommand         = "command"
	InboundTypePartyTranscript = "party_transcript"
)

// Outbound message types.
const (
	OutboundTypeStartSession       = "start_session"
	OutboundTypeInteraction        = "student_interaction"
	OutboundTypeNextPhase          = "next_phase"
	OutboundTypeStartTwoPlayerGame = "start_two_player_game"
	OutboundTypeFinishTwoPlayerGame = "finish_two_player_game"
)

// Interaction types within a student_interaction message.
const (
	InteractionTypeMultipleChoice = "mcq_question"
	InteractionTypeBinaryChoice   = "binary_choice_question"
	InteractionTypeSpeech         = "speech"
)

// Inbound is the envelope for every message the service sends.
type Inbound struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Command   *CommandEnvelope `json:"command,omitempty"`
	Error     string           `json:"error,omitempty"`
	Party     string           `json:"party,omitempty"`
	Text      string           `json:"text,omitempty"`
}

// CommandEnvelope wraps one instructional command. Payload stays raw here;
// the commands package owns its decoding.
type CommandEnvelope struct {
	CommandType string          `json:"command_type"`
	Payload     json.RawMessage `json:"payload"`
}

// Outbound is the envelope for every message the client sends. Exactly one
// of the optional sections is set, matching Type.
type Outbound struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"session_id"`
	Interaction *Interaction    `json:"interaction,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Interaction reports one student interaction back to the service.
type Interaction struct {
	Type    string `json:"type"`
	Answer  string `json:"answer,omitempty"`
	Audio   string `json:"audio,omitempty"`
	Correct *bool  `json:"correct,omitempty"`
}

// DecodeInbound parses one raw websocket frame into an envelope.
func DecodeInbound(data []byte) (Inbound, error) {
	var message Inbound
	if err := json.Unmarshal(data, &message); err != nil {
		return Inbound{}, err
	}
	return message, nil
}
