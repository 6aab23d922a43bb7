package sequencing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mentora/lesson-core/core/commands"
)

// recordingHandler tracks invocation order and optionally holds completions
// for the test to release later.
type recordingHandler struct {
	mu          sync.Mutex
	invoked     []string
	completions map[string]*Completion
	hold        bool
}

func newRecordingHandler(hold bool) *recordingHandler {
	return &recordingHandler{completions: map[string]*Completion{}, hold: hold}
}

func (h *recordingHandler) handle(_ context.Context, command commands.Command, done *Completion) {
	h.mu.Lock()
	h.invoked = append(h.invoked, command.ID())
	h.completions[command.ID()] = done
	hold := h.hold
	h.mu.Unlock()

	if !hold {
		done.Complete()
	}
}

func (h *recordingHandler) invokedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.invoked...)
}

func (h *recordingHandler) release(commandID string) {
	h.mu.Lock()
	done := h.completions[commandID]
	h.mu.Unlock()
	done.Complete()
}

func TestSequencerInvokesImmediatelyWhenIdle(t *testing.T) {
	handler := newRecordingHandler(false)
	sequencer := NewSequencer(context.Background(), handler.handle)

	command := commands.NewBoardMarkup("<p>x</p>")
	sequencer.Submit(command)

	if got := handler.invokedIDs(); len(got) != 1 || got[0] != command.ID() {
		t.Fatalf("expected immediate invocation of %s, got %v", command.ID(), got)
	}
	if sequencer.Processing() {
		t.Fatalf("expected sequencer idle after synchronous completion")
	}
}

func TestSequencerPreservesFIFO(t *testing.T) {
	handler := newRecordingHandler(true)
	sequencer := NewSequencer(context.Background(), handler.handle)

	blocking := commands.NewModuleFinished()
	first := commands.NewBoardMarkup("<p>a</p>")
	second := commands.NewBoardMarkup("<p>b</p>")

	sequencer.Submit(blocking)
	sequencer.Submit(first)
	sequencer.Submit(second)

	if got := handler.invokedIDs(); len(got) != 1 {
		t.Fatalf("expected only the blocking command invoked, got %v", got)
	}
	if sequencer.QueuedCommands() != 2 {
		t.Fatalf("expected 2 queued commands, got %d", sequencer.QueuedCommands())
	}

	handler.release(blocking.ID())
	handler.release(first.ID())
	handler.release(second.ID())

	want := []string{blocking.ID(), first.ID(), second.ID()}
	got := handler.invokedIDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d invocations, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected invocation order %v, got %v", want, got)
		}
	}
}

func TestSequencerIdempotentCompletion(t *testing.T) {
	handler := newRecordingHandler(true)
	sequencer := NewSequencer(context.Background(), handler.handle)

	blocking := commands.NewModuleFinished()
	first := commands.NewBoardMarkup("<p>a</p>")
	second := commands.NewBoardMarkup("<p>b</p>")

	sequencer.Submit(blocking)
	sequencer.Submit(first)
	sequencer.Submit(second)

	// A second release of the same command must not advance the queue past
	// the next one.
	handler.release(blocking.ID())
	handler.release(blocking.ID())

	got := handler.invokedIDs()
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 invocations after double release, got %v", got)
	}
	if got[1] != first.ID() {
		t.Fatalf("expected %s admitted next, got %s", first.ID(), got[1])
	}
	if current := sequencer.CurrentCommand(); current == nil || current.ID() != first.ID() {
		t.Fatalf("expected %s in the slot, got %v", first.ID(), current)
	}
}

func TestSequencerReentrantSynchronousChain(t *testing.T) {
	handler := newRecordingHandler(false)
	sequencer := NewSequencer(context.Background(), handler.handle)

	hold := newRecordingHandler(true)
	sequencer.handler = hold.handle

	blocking := commands.NewModuleFinished()
	sequencer.Submit(blocking)

	var queued []commands.Command
	for range 50 {
		command := commands.NewScorePoint(commands.PartyPeer, "star")
		queued = append(queued, command)
		sequencer.Submit(command)
	}

	// Completing the head drains the whole synchronous chain.
	sequencer.handler = handler.handle
	hold.release(blocking.ID())

	got := handler.invokedIDs()
	if len(got) != len(queued) {
		t.Fatalf("expected %d chained invocations, got %d", len(queued), len(got))
	}
	for i, command := range queued {
		if got[i] != command.ID() {
			t.Fatalf("expected chained invocation %d to be %s, got %s", i, command.ID(), got[i])
		}
	}
	if sequencer.Processing() {
		t.Fatalf("expected sequencer idle after chain drained")
	}
}

func TestSequencerAtMostOneInFlight(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	processed := 0

	var wg sync.WaitGroup
	handler := func(_ context.Context, _ commands.Command, done *Completion) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inFlight--
			processed++
			mu.Unlock()
			done.Complete()
		}()
	}

	sequencer := NewSequencer(context.Background(), handler)

	const total = 40
	var submitters sync.WaitGroup
	for range 4 {
		submitters.Add(1)
		go func() {
			defer submitters.Done()
			for range total / 4 {
				sequencer.Submit(commands.NewBoardMarkup("<p>x</p>"))
			}
		}()
	}
	submitters.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		finished := processed
		mu.Unlock()
		if finished == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d commands processed, got %d", total, finished)
		}
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight != 1 {
		t.Fatalf("expected at most one command in flight, got %d", maxInFlight)
	}
}

func TestSequencerDropsSubmissionsAfterClose(t *testing.T) {
	handler := newRecordingHandler(false)
	sequencer := NewSequencer(context.Background(), handler.handle)

	sequencer.Close()
	sequencer.Submit(commands.NewBoardMarkup("<p>x</p>"))

	if got := handler.invokedIDs(); len(got) != 0 {
		t.Fatalf("expected no invocations after close, got %v", got)
	}
}

func TestSequencerCloseLeavesStateInPlace(t *testing.T) {
	handler := newRecordingHandler(true)
	sequencer := NewSequencer(context.Background(), handler.handle)

	blocking := commands.NewModuleFinished()
	queued := commands.NewBoardMarkup("<p>a</p>")
	sequencer.Submit(blocking)
	sequencer.Submit(queued)

	sequencer.Close()

	if !sequencer.Processing() {
		t.Fatalf("expected in-flight command to remain after close")
	}
	if sequencer.QueuedCommands() != 1 {
		t.Fatalf("expected queued command to remain after close, got %d", sequencer.QueuedCommands())
	}
}

func TestSequencerCompleteCurrentForcesAdvance(t *testing.T) {
	handler := newRecordingHandler(true)
	sequencer := NewSequencer(context.Background(), handler.handle)

	blocking := commands.NewMultipleChoice("q", []commands.ChoiceOption{{Text: "a", Correct: true}})
	next := commands.NewBoardMarkup("<p>a</p>")
	sequencer.Submit(blocking)
	sequencer.Submit(next)

	sequencer.CompleteCurrent()

	got := handler.invokedIDs()
	if len(got) != 2 || got[1] != next.ID() {
		t.Fatalf("expected forced advance to %s, got %v", next.ID(), got)
	}
}

func TestSequencerRecoversFromPanickingHandler(t *testing.T) {
	invoked := []string{}
	sequencer := NewSequencer(context.Background(), func(_ context.Context, command commands.Command, done *Completion) {
		invoked = append(invoked, command.ID())
		if len(invoked) == 1 {
			panic("handler bug")
		}
		done.Complete()
	})

	first := commands.NewBoardMarkup("<p>a</p>")
	second := commands.NewBoardMarkup("<p>b</p>")
	sequencer.Submit(first)
	sequencer.Submit(second)

	if len(invoked) != 2 || invoked[1] != second.ID() {
		t.Fatalf("expected queue to survive a panicking handler, got %v", invoked)
	}
}
