package events

const (
	// KindQuestionPresented identifies a question awaiting the student.
	KindQuestionPresented Kind = "question.presented"
	// KindQuestionResolved identifies an answered or cancelled question.
	KindQuestionResolved Kind = "question.resolved"
)

// QuestionPresented carries a question that now blocks the lesson until
// the student decides.
type QuestionPresented struct {
	Base
	CommandID string
	Question  string
	Options   []string
}

// NewQuestionPresented creates a question presented event.
func NewQuestionPresented(commandID, question string, options []string) QuestionPresented {
	return QuestionPresented{Base: NewBase(KindQuestionPresented), CommandID: commandID, Question: question, Options: options}
}

// QuestionResolved carries the outcome of a presented question. Answered is
// false when the question was cancelled rather than answered.
type QuestionResolved struct {
	Base
	CommandID string
	Answered  bool
	Answer    string
	Correct   bool
}

// NewQuestionResolved creates a question resolved event.
func NewQuestionResolved(commandID string, answered bool, answer string, correct bool) QuestionResolved {
	return QuestionResolved{Base: NewBase(KindQuestionResolved), CommandID: commandID, Answered: answered, Answer: answer, Correct: correct}
}
