package sequencing

import (
	"context"
	"time"

	"github.com/mentora/lesson-core/core/commands"
	"github.com/mentora/lesson-core/core/events"
)

// handleCommand is the sequencer's per-kind dispatch. Every path releases
// the command through done; a kind that cannot be acted on logs and
// completes so the queue never stalls.
func (s *Session) handleCommand(ctx context.Context, command commands.Command, done *Completion) {
	switch typedCommand := command.(type) {
	case commands.Speech:
		s.handleSpeech(ctx, typedCommand, done)
	case commands.BoardMarkup:
		s.handleBoardMarkup(typedCommand, done)
	case commands.MultipleChoice:
		s.presentQuestion(command, done, events.NewQuestionPresented(
			command.ID(), typedCommand.Question, choiceTexts(typedCommand.Options)))
	case commands.BinaryChoice:
		s.presentQuestion(command, done, events.NewQuestionPresented(
			command.ID(), typedCommand.Question, []string{typedCommand.Left, typedCommand.Right}))
	case commands.ModuleFinished:
		// Completes immediately: the continue affordance stays visible, but
		// games and score points queued in the same module-close batch must
		// not be held back behind a user click.
		s.emit(events.NewModuleFinishedPresented())
		done.Complete()
	case commands.SinglePlayerGame:
		s.emit(events.NewSinglePlayerGamePresented(typedCommand.Code))
		done.Complete()
	case commands.TwoPlayerGame:
		s.emit(events.NewTwoPlayerGamePresented(typedCommand.GameType, typedCommand.Topic, typedCommand.Sides))
		done.Complete()
	case commands.ScorePoint:
		s.emit(events.NewScoreUpdated(string(typedCommand.Party), typedCommand.Point))
		done.Complete()
	case commands.Unknown:
		logger.Warn("skipping command of unknown kind", "command_type", typedCommand.RawKind)
		done.Complete()
	default:
		logger.Warn("skipping command with no handler", "command_kind", string(command.Kind()))
		done.Complete()
	}
}

// handleSpeech appends the transcript to the chat log, then hands any audio
// to the party's utterance scheduler. Only the closing command of an
// utterance (StreamComplete) gates sequencing on playback; earlier slices
// complete as soon as their fragment is scheduled, letting the service
// pipeline a long utterance without stalling the queue.
func (s *Session) handleSpeech(ctx context.Context, command commands.Speech, done *Completion) {
	if command.Text != "" {
		s.emit(events.NewChatMessageAppended(string(command.Party), command.Text))
	}

	if !command.HasAudio() {
		done.Complete()
		return
	}

	scheduler := s.schedulerFor(command.Party)
	if err := scheduler.Initialize(ctx); err != nil {
		// No audio access means no playback to wait on; the utterance is
		// treated as silent so the lesson keeps moving.
		logger.Warn("treating speech as silent, audio output unavailable",
			"party", string(command.Party), "error", err.Error())
		done.Complete()
		return
	}

	accepted := scheduler.AddFragment(ctx, command.Audio)
	if !accepted {
		done.Complete()
		return
	}

	if !command.StreamComplete {
		done.Complete()
		return
	}

	party := command.Party
	scheduler.SetOnUtteranceEnded(func() {
		s.emit(events.NewUtterancePlaybackEnded(string(party)))
		done.Complete()
	})
	scheduler.MarkStreamClosed()
}

// handleBoardMarkup applies the markup and holds the next command back for
// a short settle delay so layout stabilizes before anything renders on top.
func (s *Session) handleBoardMarkup(command commands.BoardMarkup, done *Completion) {
	s.emit(events.NewBoardMarkupApplied(command.HTML))
	time.AfterFunc(s.markupSettleDelay, done.Complete)
}

// presentQuestion parks the command until the student answers or cancels.
// This is the one kind that blocks the sequencer on unbounded think-time.
func (s *Session) presentQuestion(command commands.Command, done *Completion, presented events.QuestionPresented) {
	s.mu.Lock()
	s.question = &pendingQuestion{command: command, done: done}
	s.mu.Unlock()

	s.emit(presented)
}

func choiceTexts(options []commands.ChoiceOption) []string {
	texts := make([]string, 0, len(options))
	for _, option := range options {
		texts = append(texts, option.Text)
	}
	return texts
}
