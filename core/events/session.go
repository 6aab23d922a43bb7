package events

// KindSessionStatusChanged identifies a session lifecycle status change.
const KindSessionStatusChanged Kind = "session.status_changed"

// Status names one session lifecycle state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusReady        Status = "ready"
	StatusDisconnected Status = "disconnected"
	StatusErrored      Status = "errored"
	StatusClosed       Status = "closed"
)

// SessionStatusChanged carries a session lifecycle transition. Detail is
// free-form and may be empty.
type SessionStatusChanged struct {
	Base
	Status Status
	Detail string
}

// NewSessionStatusChanged creates a session status changed event.
func NewSessionStatusChanged(status Status, detail string) SessionStatusChanged {
	return SessionStatusChanged{Base: NewBase(KindSessionStatusChanged), Status: status, Detail: detail}
}
