package commands

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies one inbound command variant. Kind values double as the
// wire command_type strings.
type Kind string

// Party identifies one of the fixed speaking roles in a lesson. Each party
// owns its own utterance scheduling state.
type Party string

const (
	// PartyInstructor is the tutoring role that drives the lesson.
	PartyInstructor Party = "instructor"
	// PartyPeer is the co-learner role that shares the lesson with the
	// student.
	PartyPeer Party = "peer"
)

// Command is one inbound instructional instruction. Commands are immutable
// once decoded; ownership passes from the transport to the sequencer on
// submission.
type Command interface {
	Kind() Kind
	ID() string
	ReceivedAt() time.Time
}

// Base carries the identity shared by every command variant.
type Base struct {
	id         string
	kind       Kind
	receivedAt time.Time
}

// NewBase creates the shared command identity for the given kind.
func NewBase(kind Kind) Base {
	return Base{id: uuid.NewString(), kind: kind, receivedAt: time.Now()}
}

func (b Base) Kind() Kind            { return b.kind }
func (b Base) ID() string            { return b.id }
func (b Base) ReceivedAt() time.Time { return b.receivedAt }
