// Package commands defines the typed contract for inbound instructional
// commands.
//
// Every command arriving over the transport is decoded into exactly one of
// the types in this package before it reaches the sequencer. The set of
// kinds is closed at the dispatch site: handler code switches exhaustively
// over the concrete types, so adding a kind here surfaces every dispatch
// site that needs updating. Payloads the service sends under a
// command_type this package does not know become [Unknown], which the
// sequencer completes immediately so the queue can never stall on a newer
// service speaking a newer dialect.
//
// Command kinds and their wire command_type values:
//
//   - Speech (instructor_speech, peer_speech): a spoken turn, optionally
//     carrying a transcript, an audio fragment, and the stream_complete
//     marker that closes the utterance.
//   - BoardMarkup (board_markup): markup appended to the lesson surface.
//   - MultipleChoice (mcq_question): a question with N options.
//   - BinaryChoice (binary_choice_question): a left/right question.
//   - ModuleFinished (module_finished): a module boundary.
//   - SinglePlayerGame (single_player_game): embedded game code.
//   - TwoPlayerGame (two_player_game): a two-sided game descriptor.
//   - ScorePoint (instructor_score_point, peer_score_point): a tally point
//     awarded to one party.
//   - Unknown: any unrecognized command_type, kept with its raw payload.
package commands
