// Package events defines the typed session event contract the core emits
// toward the presentation layer.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - chat.*
//   - board.*
//   - question.*
//   - module.*
//   - game.*
//   - score.*
//   - playback.*
//   - session.*
//
// chat events
//
//   - ChatMessageAppended (chat.message_appended): a party's transcript was
//     appended to the chat log.
//
// board events
//
//   - BoardMarkupApplied (board.markup_applied): markup content was applied
//     to the lesson surface.
//
// question events
//
//   - QuestionPresented (question.presented): a question command is waiting
//     for the student's answer.
//   - QuestionResolved (question.resolved): the student answered or the
//     question was cancelled; includes correctness when answered.
//
// module events
//
//   - ModuleFinishedPresented (module.finished_presented): a module
//     boundary was reached and the continue affordance should show.
//
// game events
//
//   - GamePresented (game.presented): a mini-game surface should show.
//
// score events
//
//   - ScoreUpdated (score.updated): a party's running tally changed.
//
// playback events
//
//   - UtterancePlaybackEnded (playback.utterance_ended): a party finished
//     speaking its current utterance.
//
// session events
//
//   - SessionStatusChanged (session.status_changed): the transport or
//     session lifecycle state changed.
package events
