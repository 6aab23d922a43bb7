package sequencing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mentora/lesson-core/core/audio"
	"github.com/mentora/lesson-core/core/commands"
	"github.com/mentora/lesson-core/core/events"
	"github.com/mentora/lesson-core/core/sessions"
	"github.com/mentora/lesson-core/core/speechtotext"
	"github.com/mentora/lesson-core/core/transport"
	"github.com/mentora/lesson-core/internal/utils"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrNoPendingQuestion reports an answer submitted while no question
	// blocks the lesson.
	ErrNoPendingQuestion = errors.New("no question is pending")
	// ErrNoOutboundSink reports a user action that needs the transport while
	// none is configured.
	ErrNoOutboundSink = errors.New("no outbound sink configured")
)

const (
	defaultMarkupSettleDelay = 100 * time.Millisecond
	defaultAnswerRevealDelay = 1500 * time.Millisecond
)

// Session glues the command sequencer, the per-party utterance schedulers,
// and the transport together for one lesson. Inbound messages flow in
// through HandleMessage; UI state flows out through the Run callbacks; user
// actions (answers, continue, recording) flow back to the service through
// the outbound sink.
type Session struct {
	mu sync.Mutex

	descriptor sessions.Descriptor
	status     events.Status

	sequencer  *Sequencer
	schedulers map[commands.Party]*utteranceScheduler
	question   *pendingQuestion

	output  audio.SchedulingOutput
	decoder audio.Decoder

	audioInput   AudioInput
	speechToText SpeechToText
	sink         OutboundSink
	store        sessions.Store

	recording     bool
	recordedAudio []byte
	transcript    string

	emit       eventEmitter
	runOptions RunOptions

	markupSettleDelay time.Duration
	answerRevealDelay time.Duration

	baseContext context.Context
	closeOnce   sync.Once
}

type pendingQuestion struct {
	command commands.Command
	done    *Completion
}

// NewSession creates a session from its collaborators. Call Run before
// feeding it messages.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		schedulers:        map[commands.Party]*utteranceScheduler{},
		decoder:           audio.PCMDecoder{Encoding: audio.GetDefaultEncodingInfo()},
		status:            events.StatusConnecting,
		emit:              noopEventEmitter,
		markupSettleDelay: defaultMarkupSettleDelay,
		answerRevealDelay: defaultAnswerRevealDelay,
		baseContext:       context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.sequencer = NewSequencer(s.baseContext, s.handleCommand)
	return s
}

// Run registers the UI callbacks and arms teardown on context cancellation.
//
// Contract: call Run at most once per session instance, before the first
// HandleMessage.
func (s *Session) Run(ctx context.Context, opts ...RunOption) {
	s.runOptions = RunOptions{}
	for _, opt := range opts {
		opt(&s.runOptions)
	}

	s.baseContext = ctx
	s.emit = newCallbackEventEmitter(s.runOptions)
	s.sequencer.baseContext = ctx

	go func() {
		<-ctx.Done()
		s.Close()
	}()
}

// HandleMessage routes one decoded inbound message. Command envelopes are
// decoded and submitted to the sequencer; lifecycle messages become status
// events; party transcripts go straight to the chat log.
func (s *Session) HandleMessage(message transport.Inbound) {
	switch message.Type {
	case transport.InboundTypeConnected:
		// The handshake ack is the trigger for actually starting the
		// session on the service side.
		if err := s.sendOutbound(s.baseContext, transport.Outbound{
			Type:      transport.OutboundTypeStartSession,
			SessionID: s.Descriptor().SessionID,
		}); err != nil {
			s.setStatus(events.StatusErrored, err.Error())
			return
		}
		s.setStatus(events.StatusConnecting, "")

	case transport.InboundTypeSessionStarted:
		if message.SessionID != "" {
			s.adoptSessionID(message.SessionID)
		}
		s.setStatus(events.StatusReady, "")

	case transport.InboundTypeSessionError:
		s.setStatus(events.StatusErrored, message.Error)

	case transport.InboundTypePartyTranscript:
		s.emit(events.NewChatMessageAppended(message.Party, message.Text))

	case transport.InboundTypeCommand:
		if message.Command == nil {
			logger.Warn("dropping command message without envelope")
			return
		}
		command, err := commands.Decode(message.Command.CommandType, message.Command.Payload)
		if err != nil {
			// A malformed payload never enters the queue, which is the
			// same liveness outcome as admitting it and completing
			// immediately.
			logger.Warn("dropping malformed command",
				"command_type", message.Command.CommandType, "error", err.Error())
			return
		}
		s.sequencer.Submit(command)

	default:
		logger.Warn("ignoring inbound message of unknown type", "message_type", message.Type)
	}
}

// HandleDisconnect surfaces a transport loss. The queue and any in-flight
// command are left in place so a re-established transport resumes the same
// session state; flushing them is the embedder's call.
func (s *Session) HandleDisconnect(err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	s.setStatus(events.StatusDisconnected, detail)
}

// SubmitAnswer answers the pending multiple-choice question with the option
// at the given index. The resolution is reported to the service, shown for
// the reveal delay, and only then advances the lesson.
func (s *Session) SubmitAnswer(ctx context.Context, index int) error {
	pending, err := s.takeQuestion()
	if err != nil {
		return err
	}

	question, ok := pending.command.(commands.MultipleChoice)
	if !ok {
		s.restoreQuestion(pending)
		return fmt.Errorf("pending question is not multiple choice")
	}
	if index < 0 || index >= len(question.Options) {
		s.restoreQuestion(pending)
		return fmt.Errorf("answer index %d out of range", index)
	}

	option := question.Options[index]
	return s.resolveQuestion(ctx, pending, transport.InteractionTypeMultipleChoice, option.Text, option.Correct)
}

// SubmitBinaryChoice answers the pending binary-choice question.
func (s *Session) SubmitBinaryChoice(ctx context.Context, side commands.BinarySide) error {
	pending, err := s.takeQuestion()
	if err != nil {
		return err
	}

	question, ok := pending.command.(commands.BinaryChoice)
	if !ok {
		s.restoreQuestion(pending)
		return fmt.Errorf("pending question is not binary choice")
	}

	answer := question.Left
	if side == commands.BinarySideRight {
		answer = question.Right
	}
	return s.resolveQuestion(ctx, pending, transport.InteractionTypeBinaryChoice, answer, question.Correct == side)
}

// CancelQuestion abandons the pending question without an answer and lets
// the lesson advance immediately.
func (s *Session) CancelQuestion() error {
	pending, err := s.takeQuestion()
	if err != nil {
		return err
	}

	s.emit(events.NewQuestionResolved(pending.command.ID(), false, "", false))
	pending.done.Complete()
	return nil
}

func (s *Session) resolveQuestion(ctx context.Context, pending *pendingQuestion, interactionType, answer string, correct bool) error {
	if err := s.sendOutbound(ctx, transport.Outbound{
		Type:      transport.OutboundTypeInteraction,
		SessionID: s.Descriptor().SessionID,
		Interaction: &transport.Interaction{
			Type:    interactionType,
			Answer:  answer,
			Correct: utils.Ptr(correct),
		},
	}); err != nil {
		s.restoreQuestion(pending)
		return err
	}

	s.emit(events.NewQuestionResolved(pending.command.ID(), true, answer, correct))
	time.AfterFunc(s.answerRevealDelay, pending.done.Complete)
	return nil
}

func (s *Session) takeQuestion() (*pendingQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.question == nil {
		return nil, ErrNoPendingQuestion
	}

	pending := s.question
	s.question = nil
	return pending, nil
}

func (s *Session) restoreQuestion(pending *pendingQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.question == nil {
		s.question = pending
	}
}

// ContinueLesson advances past the current module: reports the phase
// change, hard-stops all audio, and force-completes whatever command is
// still pending so the next module's commands can flow.
func (s *Session) ContinueLesson(ctx context.Context) error {
	if err := s.sendOutbound(ctx, transport.Outbound{
		Type:      transport.OutboundTypeNextPhase,
		SessionID: s.Descriptor().SessionID,
	}); err != nil {
		return err
	}

	s.resetPending()
	return nil
}

// StartTwoPlayerGame reports the start of a two-player game round.
func (s *Session) StartTwoPlayerGame(ctx context.Context, payload json.RawMessage) error {
	return s.sendOutbound(ctx, transport.Outbound{
		Type:      transport.OutboundTypeStartTwoPlayerGame,
		SessionID: s.Descriptor().SessionID,
		Payload:   payload,
	})
}

// FinishTwoPlayerGame reports the end of a two-player game and, like
// ContinueLesson, resets whatever the game interrupted.
func (s *Session) FinishTwoPlayerGame(ctx context.Context) error {
	if err := s.sendOutbound(ctx, transport.Outbound{
		Type:      transport.OutboundTypeFinishTwoPlayerGame,
		SessionID: s.Descriptor().SessionID,
	}); err != nil {
		return err
	}

	s.resetPending()
	return nil
}

// resetPending is the blunt cleanup shared by the continue-lesson and
// finish-game paths: stop playback, abandon any question, and release the
// slot without waiting for natural completion signals.
func (s *Session) resetPending() {
	s.mu.Lock()
	schedulers := make([]*utteranceScheduler, 0, len(s.schedulers))
	for _, scheduler := range s.schedulers {
		schedulers = append(schedulers, scheduler)
	}
	pending := s.question
	s.question = nil
	s.mu.Unlock()

	for _, scheduler := range schedulers {
		scheduler.Stop()
	}

	if pending != nil {
		s.emit(events.NewQuestionResolved(pending.command.ID(), false, "", false))
		pending.done.Complete()
	}

	s.sequencer.CompleteCurrent()
}

// StartRecording begins capturing microphone audio for a spoken answer.
// Capture failure (typically a denied permission) is reported here, at the
// point of the originating action, not through the command pipeline.
func (s *Session) StartRecording(ctx context.Context) error {
	if s.audioInput == nil {
		return fmt.Errorf("no audio input configured")
	}

	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = true
	s.recordedAudio = nil
	s.transcript = ""
	s.mu.Unlock()

	if s.speechToText != nil {
		if err := s.speechToText.Transcribe(ctx,
			speechtotext.WithEncodingInfo(s.audioInput.EncodingInfo()),
			speechtotext.WithTranscriptionCallback(func(transcript string) {
				s.mu.Lock()
				if s.transcript != "" {
					s.transcript += " "
				}
				s.transcript += transcript
				s.mu.Unlock()
			}),
		); err != nil {
			logger.Warn("recording without transcription", "error", err.Error())
		}
	}

	if err := s.audioInput.StartCapture(ctx, s.onCapturedAudio); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	return nil
}

func (s *Session) onCapturedAudio(captured []byte) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return
	}
	s.recordedAudio = append(s.recordedAudio, captured...)
	s.mu.Unlock()

	if s.speechToText != nil {
		if err := s.speechToText.SendAudio(captured); err != nil {
			logger.Warn("failed to forward captured audio to transcription", "error", err.Error())
		}
	}
}

// StopRecording ends the capture and reports the spoken answer, carrying
// the raw audio and whatever transcript arrived by the time capture ended.
func (s *Session) StopRecording(ctx context.Context) error {
	if s.audioInput == nil {
		return fmt.Errorf("no audio input configured")
	}

	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	s.mu.Unlock()

	if err := s.audioInput.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}

	s.mu.Lock()
	recorded := s.recordedAudio
	transcript := s.transcript
	s.recordedAudio = nil
	s.transcript = ""
	s.mu.Unlock()

	return s.sendOutbound(ctx, transport.Outbound{
		Type:      transport.OutboundTypeInteraction,
		SessionID: s.Descriptor().SessionID,
		Interaction: &transport.Interaction{
			Type:   transport.InteractionTypeSpeech,
			Answer: transcript,
			Audio:  base64.StdEncoding.EncodeToString(recorded),
		},
	})
}

// Close tears the session down: no more admissions, playback stopped, the
// shared output and the transcription client released. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.sequencer.Close()

		s.mu.Lock()
		schedulers := make([]*utteranceScheduler, 0, len(s.schedulers))
		for _, scheduler := range s.schedulers {
			schedulers = append(schedulers, scheduler)
		}
		output := s.output
		recording := s.recording
		s.recording = false
		s.mu.Unlock()

		for _, scheduler := range schedulers {
			scheduler.Stop()
		}

		if recording && s.audioInput != nil {
			if err := s.audioInput.StopCapture(); err != nil {
				logger.Warn("failed to stop audio capture on close", "error", err.Error())
			}
		}

		if output != nil {
			if err := output.Close(); err != nil {
				recordedErr := fmt.Errorf("failed to close audio output: %w", err)
				_, span := tracer.Start(s.baseContext, "close session")
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
				span.End()
			}
		}

		if s.speechToText != nil {
			if err := s.speechToText.Close(s.baseContext); err != nil {
				logger.Warn("failed to close speech-to-text client", "error", err.Error())
			}
		}

		s.setStatus(events.StatusClosed, "")
	})
}

// Descriptor returns a snapshot of the session descriptor.
func (s *Session) Descriptor() sessions.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptor
}

// Status returns the current lifecycle status.
func (s *Session) Status() events.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Processing reports whether a command is in flight.
func (s *Session) Processing() bool { return s.sequencer.Processing() }

// QueuedCommands returns the number of commands awaiting admission.
func (s *Session) QueuedCommands() int { return s.sequencer.QueuedCommands() }

// QuestionPending reports whether a question currently blocks the lesson.
func (s *Session) QuestionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question != nil
}

// schedulerFor returns the party's long-lived utterance scheduler, creating
// it on the party's first audible speech command. All schedulers share the
// session's output.
func (s *Session) schedulerFor(party commands.Party) *utteranceScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduler, ok := s.schedulers[party]
	if !ok {
		scheduler = newUtteranceScheduler(party, s.output, s.decoder)
		s.schedulers[party] = scheduler
	}
	return scheduler
}

func (s *Session) setStatus(status events.Status, detail string) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if changed || detail != "" {
		s.emit(events.NewSessionStatusChanged(status, detail))
	}
}

func (s *Session) adoptSessionID(sessionID string) {
	s.mu.Lock()
	s.descriptor.SessionID = sessionID
	if s.descriptor.CreatedAt.IsZero() {
		s.descriptor.CreatedAt = time.Now()
	}
	descriptor := s.descriptor
	store := s.store
	s.mu.Unlock()

	if store == nil || descriptor.CourseID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Save(ctx, descriptor); err != nil {
			logger.Warn("failed to persist session descriptor", "error", err.Error())
		}
	}()
}

func (s *Session) sendOutbound(ctx context.Context, message transport.Outbound) error {
	if s.sink == nil {
		return ErrNoOutboundSink
	}
	if ctx == nil {
		ctx = s.baseContext
	}
	return s.sink.Send(ctx, message)
}
