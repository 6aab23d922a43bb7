package events

const (
	// KindChatMessageAppended identifies a transcript appended to the chat log.
	KindChatMessageAppended Kind = "chat.message_appended"
	// KindBoardMarkupApplied identifies markup applied to the lesson surface.
	KindBoardMarkupApplied Kind = "board.markup_applied"
	// KindModuleFinishedPresented identifies a module boundary reaching the UI.
	KindModuleFinishedPresented Kind = "module.finished_presented"
	// KindScoreUpdated identifies a change to a party's running tally.
	KindScoreUpdated Kind = "score.updated"
	// KindUtterancePlaybackEnded identifies the end of a party's utterance.
	KindUtterancePlaybackEnded Kind = "playback.utterance_ended"
)

// ChatMessageAppended carries a party's transcript for the chat log.
type ChatMessageAppended struct {
	Base
	Party string
	Text  string
}

// NewChatMessageAppended creates a chat message appended event.
func NewChatMessageAppended(party, text string) ChatMessageAppended {
	return ChatMessageAppended{Base: NewBase(KindChatMessageAppended), Party: party, Text: text}
}

// BoardMarkupApplied carries markup content for the lesson surface.
type BoardMarkupApplied struct {
	Base
	HTML string
}

// NewBoardMarkupApplied creates a board markup applied event.
func NewBoardMarkupApplied(html string) BoardMarkupApplied {
	return BoardMarkupApplied{Base: NewBase(KindBoardMarkupApplied), HTML: html}
}

// ModuleFinishedPresented marks a module boundary; the continue affordance
// should show until the student advances.
type ModuleFinishedPresented struct{ Base }

// NewModuleFinishedPresented creates a module finished presented event.
func NewModuleFinishedPresented() ModuleFinishedPresented {
	return ModuleFinishedPresented{Base: NewBase(KindModuleFinishedPresented)}
}

// ScoreUpdated carries one point added to a party's tally.
type ScoreUpdated struct {
	Base
	Party string
	Point string
}

// NewScoreUpdated creates a score updated event.
func NewScoreUpdated(party, point string) ScoreUpdated {
	return ScoreUpdated{Base: NewBase(KindScoreUpdated), Party: party, Point: point}
}

// UtterancePlaybackEnded marks the end of a party's current utterance.
type UtterancePlaybackEnded struct {
	Base
	Party string
}

// NewUtterancePlaybackEnded creates an utterance playback ended event.
func NewUtterancePlaybackEnded(party string) UtterancePlaybackEnded {
	return UtterancePlaybackEnded{Base: NewBase(KindUtterancePlaybackEnded), Party: party}
}
