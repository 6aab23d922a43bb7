package events

// KindGamePresented identifies a mini-game surface reaching the UI.
const KindGamePresented Kind = "game.presented"

// GamePresented carries a mini-game to surface. Code is set for
// single-player games; GameType, Topic and Sides for two-player games.
type GamePresented struct {
	Base
	TwoPlayer bool
	Code      string
	GameType  string
	Topic     string
	Sides     [2]string
}

// NewSinglePlayerGamePresented creates a game presented event for an
// embedded single-player game.
func NewSinglePlayerGamePresented(code string) GamePresented {
	return GamePresented{Base: NewBase(KindGamePresented), Code: code}
}

// NewTwoPlayerGamePresented creates a game presented event for a
// two-player game.
func NewTwoPlayerGamePresented(gameType, topic string, sides [2]string) GamePresented {
	return GamePresented{Base: NewBase(KindGamePresented), TwoPlayer: true, GameType: gameType, Topic: topic, Sides: sides}
}
