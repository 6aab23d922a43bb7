package commands

// KindBoardMarkup identifies markup appended to the lesson surface.
const KindBoardMarkup Kind = "board_markup"

// BoardMarkup appends rendered content to the lesson surface. The sequencer
// holds the next command back for a short settle delay so layout can
// stabilize before anything renders on top.
type BoardMarkup struct {
	Base

	HTML string
}

// NewBoardMarkup creates a board markup command.
func NewBoardMarkup(html string) BoardMarkup {
	return BoardMarkup{Base: NewBase(KindBoardMarkup), HTML: html}
}
