package sequencing

import (
	"context"
	"time"

	"github.com/mentora/lesson-core/core/audio"
	"github.com/mentora/lesson-core/core/events"
	"github.com/mentora/lesson-core/core/sessions"
	"github.com/mentora/lesson-core/core/speechtotext"
	"github.com/mentora/lesson-core/core/transport"
)

type SessionOption func(*Session)

// OutboundSink accepts interaction messages produced by the session. The
// websocket transport client satisfies this; tests use fakes.
type OutboundSink interface {
	Send(ctx context.Context, message transport.Outbound) error
}

func WithOutboundSink(sink OutboundSink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithAudioOutput sets the shared playback output. Both parties' utterance
// schedulers schedule onto it; the session owns its lifecycle.
func WithAudioOutput(output audio.SchedulingOutput) SessionOption {
	return func(s *Session) { s.output = output }
}

// WithAudioDecoder replaces the default raw-PCM fragment decoder.
func WithAudioDecoder(decoder audio.Decoder) SessionOption {
	return func(s *Session) { s.decoder = decoder }
}

// AudioInput captures microphone audio for spoken answers.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) SessionOption {
	return func(s *Session) { s.audioInput = client }
}

// SpeechToText transcribes captured audio so spoken answers carry a
// transcript alongside the raw recording.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close(ctx context.Context) error
}

func WithSpeechToTextClient(client SpeechToText) SessionOption {
	return func(s *Session) { s.speechToText = client }
}

// WithSessionStore sets the descriptor store the session saves to once the
// service acknowledges the session start.
func WithSessionStore(store sessions.Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithSessionDescriptor seeds the session with a previously persisted
// descriptor.
func WithSessionDescriptor(descriptor sessions.Descriptor) SessionOption {
	return func(s *Session) { s.descriptor = descriptor }
}

// WithMarkupSettleDelay overrides how long the sequencer holds the next
// command back after board markup renders.
func WithMarkupSettleDelay(delay time.Duration) SessionOption {
	return func(s *Session) { s.markupSettleDelay = delay }
}

// WithAnswerRevealDelay overrides how long an answered question stays on
// screen before the lesson advances.
func WithAnswerRevealDelay(delay time.Duration) SessionOption {
	return func(s *Session) { s.answerRevealDelay = delay }
}

type RunOptions struct {
	onChatMessage      func(party string, text string)
	onBoardMarkup      func(html string)
	onQuestion         func(question events.QuestionPresented)
	onQuestionResolved func(resolution events.QuestionResolved)
	onModuleFinished   func()
	onGame             func(game events.GamePresented)
	onScore            func(party string, point string)
	onAudioEnded       func(party string)
	onStatus           func(status events.Status, detail string)
}

type RunOption func(*RunOptions)

// WithChatMessageCallback registers a callback for transcripts appended to
// the chat log, from both speech commands and free-form party transcripts.
func WithChatMessageCallback(callback func(party string, text string)) RunOption {
	return func(o *RunOptions) {
		o.onChatMessage = callback
	}
}

func WithBoardMarkupCallback(callback func(html string)) RunOption {
	return func(o *RunOptions) {
		o.onBoardMarkup = callback
	}
}

// WithQuestionCallback registers a callback for questions awaiting the
// student. The lesson stays blocked until the question is answered or
// cancelled.
func WithQuestionCallback(callback func(question events.QuestionPresented)) RunOption {
	return func(o *RunOptions) {
		o.onQuestion = callback
	}
}

func WithQuestionResolvedCallback(callback func(resolution events.QuestionResolved)) RunOption {
	return func(o *RunOptions) {
		o.onQuestionResolved = callback
	}
}

func WithModuleFinishedCallback(callback func()) RunOption {
	return func(o *RunOptions) {
		o.onModuleFinished = callback
	}
}

func WithGameCallback(callback func(game events.GamePresented)) RunOption {
	return func(o *RunOptions) {
		o.onGame = callback
	}
}

func WithScoreCallback(callback func(party string, point string)) RunOption {
	return func(o *RunOptions) {
		o.onScore = callback
	}
}

// WithAudioEndedCallback registers a callback for the end of a party's
// utterance playback.
func WithAudioEndedCallback(callback func(party string)) RunOption {
	return func(o *RunOptions) {
		o.onAudioEnded = callback
	}
}

func WithStatusCallback(callback func(status events.Status, detail string)) RunOption {
	return func(o *RunOptions) {
		o.onStatus = callback
	}
}
