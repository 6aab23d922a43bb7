package commands

const (
	// KindSinglePlayerGame identifies an embedded single-player mini-game.
	KindSinglePlayerGame Kind = "single_player_game"
	// KindTwoPlayerGame identifies a two-player mini-game descriptor.
	KindTwoPlayerGame Kind = "two_player_game"
)

// SinglePlayerGame embeds a self-contained mini-game. Code arrives base64
// encoded on the wire and is decoded before the command reaches the
// sequencer. The game's own lifecycle is decoupled from sequencing.
type SinglePlayerGame struct {
	Base

	Code string
}

// NewSinglePlayerGame creates a single-player game command.
func NewSinglePlayerGame(code string) SinglePlayerGame {
	return SinglePlayerGame{Base: NewBase(KindSinglePlayerGame), Code: code}
}

// TwoPlayerGame describes a game played against the peer party. Ending the
// game flows through its own outbound transition, not through the command
// queue.
type TwoPlayerGame struct {
	Base

	GameType string
	Topic    string
	Sides    [2]string
}

// NewTwoPlayerGame creates a two-player game command.
func NewTwoPlayerGame(gameType, topic string, sides [2]string) TwoPlayerGame {
	return TwoPlayerGame{Base: NewBase(KindTwoPlayerGame), GameType: gameType, Topic: topic, Sides: sides}
}
