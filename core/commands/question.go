package commands

const (
	// KindMultipleChoice identifies a multiple-choice question.
	KindMultipleChoice Kind = "mcq_question"
	// KindBinaryChoice identifies a left/right binary-choice question.
	KindBinaryChoice Kind = "binary_choice_question"
)

// BinarySide names one side of a binary-choice question.
type BinarySide string

const (
	BinarySideLeft  BinarySide = "left"
	BinarySideRight BinarySide = "right"
)

// ChoiceOption is one selectable answer of a multiple-choice question.
type ChoiceOption struct {
	Text    string
	Correct bool
}

// MultipleChoice presents a question with a fixed set of options. Question
// commands are the one kind that blocks the sequencer on unbounded user
// think-time: completion waits for an answer or a cancellation.
type MultipleChoice struct {
	Base

	Question string
	Options  []ChoiceOption
}

// NewMultipleChoice creates a multiple-choice question command.
func NewMultipleChoice(question string, options []ChoiceOption) MultipleChoice {
	return MultipleChoice{Base: NewBase(KindMultipleChoice), Question: question, Options: options}
}

// BinaryChoice presents a two-sided question. Like MultipleChoice, it blocks
// the sequencer until the user decides.
type BinaryChoice struct {
	Base

	Question string
	Left     string
	Right    string
	Correct  BinarySide
}

// NewBinaryChoice creates a binary-choice question command.
func NewBinaryChoice(question, left, right string, correct BinarySide) BinaryChoice {
	return BinaryChoice{
		Base:     NewBase(KindBinaryChoice),
		Question: question,
		Left:     left,
		Right:    right,
		Correct:  correct,
	}
}
