package sequencing

import "sync"

// Completion is the single-use latch a handler fires to release the command
// it was invoked with. Firing it more than once is a harmless no-op: some
// commands complete the moment they render while the user dismisses their
// artifact much later, and that dismissal must not advance the queue a
// second time.
type Completion struct {
	once sync.Once
	fire func()
}

func newCompletion(fire func()) *Completion {
	return &Completion{fire: fire}
}

// Complete releases the associated command. Idempotent; safe to call from
// any goroutine, including synchronously inside the handler itself.
func (c *Completion) Complete() {
	if c == nil {
		return
	}

	c.once.Do(func() {
		if c.fire != nil {
			c.fire()
		}
	})
}
