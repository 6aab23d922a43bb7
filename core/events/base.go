package events

import "time"

// Kind is the namespaced identifier of an event, e.g. "question.presented".
type Kind string

// Event is implemented by everything the session emits toward the
// presentation layer. Events are immutable once constructed.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by all session events;
// concrete events embed it.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.timestamp }
