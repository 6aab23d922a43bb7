package sequencing

import events "github.com/mentora/lesson-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.ChatMessageAppended:
			if opts.onChatMessage != nil {
				opts.onChatMessage(typedEvent.Party, typedEvent.Text)
			}
		case events.BoardMarkupApplied:
			if opts.onBoardMarkup != nil {
				opts.onBoardMarkup(typedEvent.HTML)
			}
		case events.QuestionPresented:
			if opts.onQuestion != nil {
				opts.onQuestion(typedEvent)
			}
		case events.QuestionResolved:
			if opts.onQuestionResolved != nil {
				opts.onQuestionResolved(typedEvent)
			}
		case events.ModuleFinishedPresented:
			if opts.onModuleFinished != nil {
				opts.onModuleFinished()
			}
		case events.GamePresented:
			if opts.onGame != nil {
				opts.onGame(typedEvent)
			}
		case events.ScoreUpdated:
			if opts.onScore != nil {
				opts.onScore(typedEvent.Party, typedEvent.Point)
			}
		case events.UtterancePlaybackEnded:
			if opts.onAudioEnded != nil {
				opts.onAudioEnded(typedEvent.Party)
			}
		case events.SessionStatusChanged:
			if opts.onStatus != nil {
				opts.onStatus(typedEvent.Status, typedEvent.Detail)
			}
		}
	}
}
