package commands

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingField reports a payload that lacks a field its kind requires.
	ErrMissingField = errors.New("command payload missing required field")
	// ErrMalformedPayload reports a payload that could not be parsed at all.
	ErrMalformedPayload = errors.New("command payload malformed")
)

type speechPayload struct {
	Text           string `json:"text"`
	AudioBytes     string `json:"audio_bytes"`
	StreamComplete bool   `json:"stream_complete"`
}

type boardMarkupPayload struct {
	HTML *string `json:"html"`
}

type multipleChoicePayload struct {
	Question *string `json:"question"`
	Options  []struct {
		Text    string `json:"text"`
		Correct bool   `json:"correct"`
	} `json:"options"`
}

type binaryChoicePayload struct {
	Question *string `json:"question"`
	Left     *string `json:"left"`
	Right    *string `json:"right"`
	Correct  string  `json:"correct"`
}

type singlePlayerGamePayload struct {
	Code *string `json:"code"`
}

type twoPlayerGamePayload struct {
	GameType *string  `json:"game_type"`
	Topic    *string  `json:"topic"`
	Sides    []string `json:"sides"`
}

type scorePointPayload struct {
	Point *string `json:"point"`
}

// Decode turns a wire command_type and raw payload into a typed command.
//
// Unrecognized command_type values decode into [Unknown] rather than an
// error; the sequencer applies its forward-compatible no-op policy to those.
// A recognized kind with a payload that cannot satisfy its required fields
// returns an error wrapping [ErrMissingField] or [ErrMalformedPayload], and
// the caller must not let the failure stall the queue.
func Decode(commandType string, payload json.RawMessage) (Command, error) {
	switch Kind(commandType) {
	case KindInstructorSpeech:
		return decodeSpeech(PartyInstructor, payload)
	case KindPeerSpeech:
		return decodeSpeech(PartyPeer, payload)
	case KindBoardMarkup:
		return decodeBoardMarkup(payload)
	case KindMultipleChoice:
		return decodeMultipleChoice(payload)
	case KindBinaryChoice:
		return decodeBinaryChoice(payload)
	case KindModuleFinished:
		return NewModuleFinished(), nil
	case KindSinglePlayerGame:
		return decodeSinglePlayerGame(payload)
	case KindTwoPlayerGame:
		return decodeTwoPlayerGame(payload)
	case KindInstructorScorePoint:
		return decodeScorePoint(PartyInstructor, payload)
	case KindPeerScorePoint:
		return decodeScorePoint(PartyPeer, payload)
	default:
		return NewUnknown(commandType, payload), nil
	}
}

func decodeSpeech(party Party, payload json.RawMessage) (Command, error) {
	var parsed speechPayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}

	var audio []byte
	if parsed.AudioBytes != "" {
		decoded, err := base64.StdEncoding.DecodeString(parsed.AudioBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: audio_bytes is not valid base64: %v", ErrMalformedPayload, err)
		}
		audio = decoded
	}

	return NewSpeech(party, parsed.Text, audio, parsed.StreamComplete), nil
}

func decodeBoardMarkup(payload json.RawMessage) (Command, error) {
	var parsed boardMarkupPayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.HTML == nil {
		return nil, fmt.Errorf("%w: html", ErrMissingField)
	}

	return NewBoardMarkup(*parsed.HTML), nil
}

func decodeMultipleChoice(payload json.RawMessage) (Command, error) {
	var parsed multipleChoicePayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.Question == nil {
		return nil, fmt.Errorf("%w: question", ErrMissingField)
	}
	if len(parsed.Options) == 0 {
		return nil, fmt.Errorf("%w: options", ErrMissingField)
	}

	options := make([]ChoiceOption, 0, len(parsed.Options))
	for _, option := range parsed.Options {
		options = append(options, ChoiceOption{Text: option.Text, Correct: option.Correct})
	}

	return NewMultipleChoice(*parsed.Question, options), nil
}

func decodeBinaryChoice(payload json.RawMessage) (Command, error) {
	var parsed binaryChoicePayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.Question == nil {
		return nil, fmt.Errorf("%w: question", ErrMissingField)
	}
	if parsed.Left == nil {
		return nil, fmt.Errorf("%w: left", ErrMissingField)
	}
	if parsed.Right == nil {
		return nil, fmt.Errorf("%w: right", ErrMissingField)
	}

	correct := BinarySide(parsed.Correct)
	if correct != BinarySideLeft && correct != BinarySideRight {
		return nil, fmt.Errorf("%w: correct must be %q or %q, got %q", ErrMalformedPayload, BinarySideLeft, BinarySideRight, parsed.Correct)
	}

	return NewBinaryChoice(*parsed.Question, *parsed.Left, *parsed.Right, correct), nil
}

func decodeSinglePlayerGame(payload json.RawMessage) (Command, error) {
	var parsed singlePlayerGamePayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.Code == nil {
		return nil, fmt.Errorf("%w: code", ErrMissingField)
	}

	code, err := base64.StdEncoding.DecodeString(*parsed.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: code is not valid base64: %v", ErrMalformedPayload, err)
	}

	return NewSinglePlayerGame(string(code)), nil
}

func decodeTwoPlayerGame(payload json.RawMessage) (Command, error) {
	var parsed twoPlayerGamePayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.GameType == nil {
		return nil, fmt.Errorf("%w: game_type", ErrMissingField)
	}
	if parsed.Topic == nil {
		return nil, fmt.Errorf("%w: topic", ErrMissingField)
	}
	if len(parsed.Sides) != 2 {
		return nil, fmt.Errorf("%w: sides must have exactly two entries, got %d", ErrMalformedPayload, len(parsed.Sides))
	}

	return NewTwoPlayerGame(*parsed.GameType, *parsed.Topic, [2]string{parsed.Sides[0], parsed.Sides[1]}), nil
}

func decodeScorePoint(party Party, payload json.RawMessage) (Command, error) {
	var parsed scorePointPayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.Point == nil {
		return nil, fmt.Errorf("%w: point", ErrMissingField)
	}

	return NewScorePoint(party, *parsed.Point), nil
}

func unmarshalPayload(payload json.RawMessage, into any) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return nil
}
