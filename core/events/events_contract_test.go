package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "chat message appended", event: NewChatMessageAppended("instructor", "hi"), expected: KindChatMessageAppended},
		{name: "board markup applied", event: NewBoardMarkupApplied("<p>x</p>"), expected: KindBoardMarkupApplied},
		{name: "question presented", event: NewQuestionPresented("id", "2+2?", []string{"3", "4"}), expected: KindQuestionPresented},
		{name: "question resolved", event: NewQuestionResolved("id", true, "4", true), expected: KindQuestionResolved},
		{name: "module finished presented", event: NewModuleFinishedPresented(), expected: KindModuleFinishedPresented},
		{name: "single player game presented", event: NewSinglePlayerGamePresented("<canvas/>"), expected: KindGamePresented},
		{name: "two player game presented", event: NewTwoPlayerGamePresented("quiz_duel", "fractions", [2]string{"a", "b"}), expected: KindGamePresented},
		{name: "score updated", event: NewScoreUpdated("peer", "teamwork"), expected: KindScoreUpdated},
		{name: "utterance playback ended", event: NewUtterancePlaybackEnded("instructor"), expected: KindUtterancePlaybackEnded},
		{name: "session status changed", event: NewSessionStatusChanged(StatusReady, ""), expected: KindSessionStatusChanged},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestGamePresentedDistinguishesTwoPlayerGames(t *testing.T) {
	single := NewSinglePlayerGamePresented("<canvas/>")
	duel := NewTwoPlayerGamePresented("quiz_duel", "fractions", [2]string{"a", "b"})

	if single.TwoPlayer {
		t.Fatalf("expected single-player game to not be marked two-player")
	}
	if !duel.TwoPlayer {
		t.Fatalf("expected two-player game to be marked two-player")
	}
}
