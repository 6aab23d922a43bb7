package sequencing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mentora/lesson-core/core/commands"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const queueDepthWarningThreshold = 32

// Handler processes one admitted command and must release it through done
// on every path, including failures. done is idempotent, so late or
// duplicate releases are harmless.
type Handler func(ctx context.Context, command commands.Command, done *Completion)

// Sequencer owns the inbound command queue and the exclusive
// current-command slot. Exactly one command is in flight at any time;
// completing it atomically dequeues and invokes the next one.
//
// All admission decisions read the slot under the sequencer's own lock, so
// a completion arriving from an arbitrary goroutine (audio callback, timer,
// user click) can never race a concurrent Submit into admitting two
// commands at once.
type Sequencer struct {
	mu sync.Mutex

	queue       []commands.Command
	current     commands.Command
	currentDone *Completion
	// dispatching marks that a dispatch loop is live, so a completion
	// fired synchronously inside a handler hands the next admission back
	// to that loop instead of recursing.
	dispatching bool
	closed      bool

	handler     Handler
	baseContext context.Context

	closeOnce sync.Once
}

// NewSequencer creates a sequencer that feeds admitted commands to handler.
func NewSequencer(ctx context.Context, handler Handler) *Sequencer {
	if ctx == nil {
		ctx = context.Background()
	}

	return &Sequencer{handler: handler, baseContext: ctx}
}

// Submit appends a command to the queue, admitting it immediately when the
// sequencer is idle. Submissions after Close are dropped.
func (s *Sequencer) Submit(command commands.Command) {
	if s == nil || command == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logger.Warn("dropping command submitted after close", "command_kind", string(command.Kind()))
		return
	}

	s.queue = append(s.queue, command)
	depth := len(s.queue)
	busy := s.dispatching || s.current != nil
	s.mu.Unlock()

	// The queue is unbounded with no upstream backpressure; a deep queue
	// usually means the student is sitting on a question while the service
	// keeps producing.
	if depth > queueDepthWarningThreshold {
		logger.Warn("command queue is growing", "queued_commands", depth)
	}

	if !busy {
		s.dispatch()
	}
}

// Close stops further admissions. The queue and any in-flight command are
// deliberately left in place: on transport loss the session keeps its state
// so a re-established connection can decide what to do with it.
func (s *Sequencer) Close() {
	if s == nil {
		return
	}

	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
}

// Processing reports whether a command currently occupies the slot.
func (s *Sequencer) Processing() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// CurrentCommand returns the in-flight command, or nil when idle.
func (s *Sequencer) CurrentCommand() commands.Command {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CompleteCurrent force-releases whatever occupies the slot, used by the
// reset paths (continue-lesson, finish-game) that must not wait for a
// natural completion signal. No-op when idle.
func (s *Sequencer) CompleteCurrent() {
	if s == nil {
		return
	}

	s.mu.Lock()
	done := s.currentDone
	s.mu.Unlock()

	done.Complete()
}

// QueuedCommands returns the number of commands awaiting admission.
func (s *Sequencer) QueuedCommands() int {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// dispatch drains the queue while the slot keeps coming free synchronously.
// At most one dispatch loop is live at a time; completions from other
// goroutines start their own loop only when none is running.
func (s *Sequencer) dispatch() {
	for {
		s.mu.Lock()
		if s.dispatching || s.current != nil || s.closed || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}

		command := s.queue[0]
		s.queue = s.queue[1:]
		s.current = command
		done := newCompletion(func() { s.finish(command.ID()) })
		s.currentDone = done
		s.dispatching = true
		s.mu.Unlock()

		s.invoke(command, done)

		s.mu.Lock()
		s.dispatching = false
		again := s.current == nil && !s.closed && len(s.queue) > 0
		s.mu.Unlock()

		if !again {
			return
		}
	}
}

// finish releases the slot for the given command id. Stale releases (a
// second Complete for a command that already left the slot) are no-ops.
func (s *Sequencer) finish(commandID string) {
	s.mu.Lock()
	if s.current == nil || s.current.ID() != commandID {
		s.mu.Unlock()
		return
	}

	s.current = nil
	s.currentDone = nil
	inDispatch := s.dispatching
	s.mu.Unlock()

	if !inDispatch {
		s.dispatch()
	}
}

func (s *Sequencer) invoke(command commands.Command, done *Completion) {
	ctx, span := tracer.Start(s.baseContext, "process command")
	defer span.End()

	queuedTime := time.Since(command.ReceivedAt()).Seconds()
	span.SetAttributes(
		attribute.String("command.kind", string(command.Kind())),
		attribute.Float64("command.queued_time", queuedTime),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("command handler panicked: %v", recovered)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			// The handler contract requires completion on every path; a
			// panic broke that path, so release the slot here to keep the
			// queue live.
			done.Complete()
		}
	}()

	if s.handler == nil {
		done.Complete()
		return
	}

	s.handler(ctx, command, done)
}
