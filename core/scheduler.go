package sequencing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mentora/lesson-core/core/audio"
	"github.com/mentora/lesson-core/core/commands"
)

// utteranceScheduler stitches the audio fragments of one utterance into
// gapless playback on a party's output and raises a single end-of-utterance
// signal once everything scheduled has played and the producer has said no
// more is coming.
//
// One scheduler lives per party for the whole session; its state is reset
// between utterances. Fragments decode asynchronously, but scheduling is
// head-of-line in arrival order against the running nextStartOffset, so
// playback order matches AddFragment order no matter which decode finishes
// first.
type utteranceScheduler struct {
	party   commands.Party
	output  audio.SchedulingOutput
	decoder audio.Decoder

	mu sync.Mutex

	pending []*pendingFragment
	active  map[int]struct{}
	nextSeq int
	// nextStartOffset is the position on the output clock where the next
	// fragment begins; monotonically non-decreasing within an utterance.
	nextStartOffset time.Duration
	streamClosed    bool

	// onEnded is the end-of-utterance signal for the current utterance.
	onEnded    func()
	endedFired bool

	ready    bool
	disposed bool
}

type pendingFragment struct {
	seq     int
	clip    audio.Clip
	decoded bool
	failed  bool
}

func newUtteranceScheduler(party commands.Party, output audio.SchedulingOutput, decoder audio.Decoder) *utteranceScheduler {
	return &utteranceScheduler{
		party:   party,
		output:  output,
		decoder: decoder,
		active:  map[int]struct{}{},
	}
}

// Initialize prepares the output, resuming it if the platform suspended
// it. Idempotent once it succeeds; a failure is non-fatal for the session
// and leaves the scheduler unready, which upstream treats as "no audio".
func (s *utteranceScheduler) Initialize(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return fmt.Errorf("utterance scheduler already disposed")
	}
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	output := s.output
	s.mu.Unlock()

	if output == nil {
		return fmt.Errorf("no audio output configured")
	}

	if err := output.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audio output: %w", err)
	}

	s.mu.Lock()
	s.ready = !s.disposed
	s.mu.Unlock()
	return nil
}

// Ready reports whether fragments can be scheduled.
func (s *utteranceScheduler) Ready() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && !s.disposed
}

// AddFragment accepts the next encoded fragment of the current utterance.
// Returns false when the scheduler is not ready, in which case the caller
// must not wait on playback that will never happen.
func (s *utteranceScheduler) AddFragment(ctx context.Context, fragment []byte) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	if !s.ready || s.disposed {
		s.mu.Unlock()
		return false
	}

	entry := &pendingFragment{seq: s.nextSeq}
	s.nextSeq++
	s.pending = append(s.pending, entry)
	s.mu.Unlock()

	go s.decodeFragment(ctx, entry, fragment)
	return true
}

func (s *utteranceScheduler) decodeFragment(ctx context.Context, entry *pendingFragment, fragment []byte) {
	clip, err := s.decoder.Decode(ctx, fragment)

	s.mu.Lock()
	entry.decoded = true
	if err != nil {
		// A fragment that cannot decode is dropped; playback continues
		// with the next one and the utterance can still finish.
		entry.failed = true
		logger.Warn("dropping undecodable audio fragment",
			"party", string(s.party), "error", err.Error())
	} else {
		entry.clip = clip
	}
	fire := s.drainLocked()
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// drainLocked schedules decoded fragments from the head of the pending
// queue, strictly in arrival order, and returns the end-of-utterance signal
// to fire if draining emptied the utterance. Callers hold s.mu.
func (s *utteranceScheduler) drainLocked() func() {
	for len(s.pending) > 0 && s.pending[0].decoded {
		entry := s.pending[0]
		s.pending = s.pending[1:]

		if entry.failed {
			continue
		}

		start := s.output.Now()
		if s.nextStartOffset > start {
			start = s.nextStartOffset
		}
		s.nextStartOffset = start + entry.clip.Duration()

		seq := entry.seq
		s.active[seq] = struct{}{}
		if err := s.output.ScheduleAt(entry.clip.PCM, start, func() { s.fragmentEnded(seq) }); err != nil {
			delete(s.active, seq)
			logger.Warn("failed to schedule audio fragment",
				"party", string(s.party), "error", err.Error())
		}
	}

	return s.takeEndSignalLocked()
}

func (s *utteranceScheduler) fragmentEnded(seq int) {
	s.mu.Lock()
	delete(s.active, seq)
	fire := s.takeEndSignalLocked()
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// takeEndSignalLocked claims the end-of-utterance signal when the utterance
// has fully drained: no active playback, nothing pending, stream closed.
// Claiming resets the scheduler for the next utterance, which is what makes
// the signal exactly-once. Callers hold s.mu and fire the returned func
// after unlocking.
func (s *utteranceScheduler) takeEndSignalLocked() func() {
	if s.endedFired || !s.streamClosed || len(s.active) != 0 || len(s.pending) != 0 {
		return nil
	}

	s.endedFired = true
	fire := s.onEnded
	s.resetLocked()

	if fire == nil {
		return nil
	}
	return fire
}

func (s *utteranceScheduler) resetLocked() {
	s.pending = nil
	s.active = map[int]struct{}{}
	s.nextStartOffset = 0
	s.streamClosed = false
	s.onEnded = nil
	s.endedFired = false
}

// SetOnUtteranceEnded registers the single end-of-utterance callback for
// the current utterance, replacing any previous registration.
func (s *utteranceScheduler) SetOnUtteranceEnded(onEnded func()) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.onEnded = onEnded
	fire := s.takeEndSignalLocked()
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// MarkStreamClosed signals that no further fragments will arrive for this
// utterance. If playback has already drained, the end-of-utterance signal
// fires before MarkStreamClosed returns.
func (s *utteranceScheduler) MarkStreamClosed() {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.streamClosed = true
	fire := s.takeEndSignalLocked()
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// Stop hard-stops playback, discards undelivered fragments, resets the
// scheduling clock, and force-fires a still-pending end-of-utterance
// signal so nothing upstream stays blocked on audio that will never play.
func (s *utteranceScheduler) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	fire := s.onEnded
	fired := s.endedFired
	hadUtterance := fire != nil && !fired
	s.resetLocked()
	output := s.output
	s.mu.Unlock()

	if output != nil {
		output.StopAll()
	}

	if hadUtterance {
		fire()
	}
}

// Dispose stops the scheduler and releases the output. Terminal.
func (s *utteranceScheduler) Dispose() {
	if s == nil {
		return
	}

	s.Stop()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.ready = false
	output := s.output
	s.mu.Unlock()

	if output != nil {
		if err := output.Close(); err != nil {
			logger.Warn("failed to close audio output", "party", string(s.party), "error", err.Error())
		}
	}
}
