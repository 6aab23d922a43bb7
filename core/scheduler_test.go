package sequencing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mentora/lesson-core/core/audio"
	"github.com/mentora/lesson-core/core/commands"
)

type scheduledClipCall struct {
	pcm     []byte
	at      time.Duration
	onEnded func()
}

// fakeOutput is an in-memory scheduling output with a manually advanced
// clock. Tests end clips explicitly through endClip.
type fakeOutput struct {
	mu        sync.Mutex
	started   bool
	startErr  error
	now       time.Duration
	scheduled []scheduledClipCall
	closed    bool
}

func (o *fakeOutput) Start(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.startErr != nil {
		return o.startErr
	}
	o.started = true
	return nil
}

func (o *fakeOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) ScheduleAt(pcm []byte, at time.Duration, onEnded func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = append(o.scheduled, scheduledClipCall{pcm: pcm, at: at, onEnded: onEnded})
	return nil
}

func (o *fakeOutput) StopAll() {
	o.mu.Lock()
	pending := o.scheduled
	o.scheduled = nil
	o.mu.Unlock()

	for _, clip := range pending {
		if clip.onEnded != nil {
			clip.onEnded()
		}
	}
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (o *fakeOutput) scheduledCalls() []scheduledClipCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]scheduledClipCall(nil), o.scheduled...)
}

func (o *fakeOutput) endClip(t *testing.T, index int) {
	t.Helper()

	o.mu.Lock()
	if index >= len(o.scheduled) {
		o.mu.Unlock()
		t.Fatalf("expected scheduled clip %d to exist, got %d clips", index, len(o.scheduled))
	}
	onEnded := o.scheduled[index].onEnded
	o.mu.Unlock()

	onEnded()
}

// gatedDecoder holds each Decode until the test releases the fragment,
// which lets tests force decode completion out of arrival order.
type gatedDecoder struct {
	encoding audio.EncodingInfo

	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedDecoder() *gatedDecoder {
	return &gatedDecoder{
		encoding: audio.GetDefaultEncodingInfo(),
		gates:    map[string]chan struct{}{},
	}
}

func (d *gatedDecoder) gate(fragment []byte) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := string(fragment[:1])
	gate, ok := d.gates[key]
	if !ok {
		gate = make(chan struct{})
		d.gates[key] = gate
	}
	return gate
}

func (d *gatedDecoder) release(fragment []byte) {
	close(d.gate(fragment))
}

func (d *gatedDecoder) Decode(_ context.Context, fragment []byte) (audio.Clip, error) {
	<-d.gate(fragment)
	return audio.Clip{PCM: fragment, Encoding: d.encoding}, nil
}

// fragmentOf builds a raw fragment of the given duration whose first byte
// tags it for the gated decoder.
func fragmentOf(tag byte, duration time.Duration) []byte {
	fragment := make([]byte, audio.GetDefaultEncodingInfo().Bytes(duration))
	fragment[0] = tag
	return fragment
}

func awaitCondition(t *testing.T, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("expected %s", description)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerGaplessOffsetsWithReorderedDecodes(t *testing.T) {
	output := &fakeOutput{}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	first := fragmentOf('a', 2*time.Second)
	second := fragmentOf('b', 1500*time.Millisecond)

	if !scheduler.AddFragment(context.Background(), first) {
		t.Fatalf("expected first fragment accepted")
	}
	if !scheduler.AddFragment(context.Background(), second) {
		t.Fatalf("expected second fragment accepted")
	}

	// The second fragment decodes before the first; it must still play
	// second, starting where the first ends.
	decoder.release(second)
	time.Sleep(10 * time.Millisecond)
	if got := output.scheduledCalls(); len(got) != 0 {
		t.Fatalf("expected nothing scheduled before the head decodes, got %d clips", len(got))
	}

	decoder.release(first)
	awaitCondition(t, "both fragments scheduled", func() bool { return len(output.scheduledCalls()) == 2 })

	scheduled := output.scheduledCalls()
	if scheduled[0].pcm[0] != 'a' || scheduled[1].pcm[0] != 'b' {
		t.Fatalf("expected arrival-order playback, got %c then %c", scheduled[0].pcm[0], scheduled[1].pcm[0])
	}
	if scheduled[0].at != 0 {
		t.Fatalf("expected first fragment at offset 0, got %v", scheduled[0].at)
	}
	if want := 2 * time.Second; scheduled[1].at != want {
		t.Fatalf("expected second fragment at offset %v, got %v", want, scheduled[1].at)
	}
}

func TestSchedulerSchedulesFromOutputClock(t *testing.T) {
	output := &fakeOutput{now: 700 * time.Millisecond}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyPeer, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	fragment := fragmentOf('a', time.Second)
	scheduler.AddFragment(context.Background(), fragment)
	decoder.release(fragment)

	awaitCondition(t, "fragment scheduled", func() bool { return len(output.scheduledCalls()) == 1 })
	if got := output.scheduledCalls()[0].at; got != 700*time.Millisecond {
		t.Fatalf("expected fragment scheduled at the output clock position, got %v", got)
	}
}

func TestSchedulerEndOfUtteranceExactlyOnce(t *testing.T) {
	output := &fakeOutput{}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	var mu sync.Mutex
	fired := 0
	scheduler.SetOnUtteranceEnded(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	first := fragmentOf('a', time.Second)
	second := fragmentOf('b', time.Second)
	scheduler.AddFragment(context.Background(), first)
	scheduler.AddFragment(context.Background(), second)
	decoder.release(first)
	decoder.release(second)

	awaitCondition(t, "both fragments scheduled", func() bool { return len(output.scheduledCalls()) == 2 })

	output.endClip(t, 0)
	scheduler.MarkStreamClosed()

	mu.Lock()
	firedEarly := fired
	mu.Unlock()
	if firedEarly != 0 {
		t.Fatalf("expected no end signal while a fragment is still active, got %d", firedEarly)
	}

	output.endClip(t, 1)

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Fatalf("expected end-of-utterance to fire exactly once, got %d", fired)
	}
}

func TestSchedulerEndSignalFiresOnMarkWhenDrained(t *testing.T) {
	output := &fakeOutput{}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	fragment := fragmentOf('a', time.Second)
	scheduler.AddFragment(context.Background(), fragment)
	decoder.release(fragment)
	awaitCondition(t, "fragment scheduled", func() bool { return len(output.scheduledCalls()) == 1 })
	output.endClip(t, 0)

	fired := make(chan struct{}, 1)
	scheduler.SetOnUtteranceEnded(func() { fired <- struct{}{} })
	scheduler.MarkStreamClosed()

	select {
	case <-fired:
	default:
		t.Fatalf("expected end signal to fire synchronously once drained and closed")
	}
}

func TestSchedulerStopForceFiresPendingSignal(t *testing.T) {
	output := &fakeOutput{}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	fragment := fragmentOf('a', time.Second)
	scheduler.AddFragment(context.Background(), fragment)
	decoder.release(fragment)
	awaitCondition(t, "fragment scheduled", func() bool { return len(output.scheduledCalls()) == 1 })

	fired := 0
	scheduler.SetOnUtteranceEnded(func() { fired++ })

	scheduler.Stop()

	if fired != 1 {
		t.Fatalf("expected stop to force-fire the pending end signal once, got %d", fired)
	}
	if len(output.scheduledCalls()) != 0 {
		t.Fatalf("expected stop to discard scheduled clips")
	}

	// The stop reset the utterance; a late stream-close must not re-fire.
	scheduler.MarkStreamClosed()
	if fired != 1 {
		t.Fatalf("expected no second end signal after stop, got %d", fired)
	}
}

func TestSchedulerResetsBetweenUtterances(t *testing.T) {
	output := &fakeOutput{}
	decoder := newGatedDecoder()
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, decoder)

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	first := fragmentOf('a', time.Second)
	scheduler.AddFragment(context.Background(), first)
	decoder.release(first)
	awaitCondition(t, "first utterance scheduled", func() bool { return len(output.scheduledCalls()) == 1 })

	scheduler.SetOnUtteranceEnded(func() {})
	scheduler.MarkStreamClosed()
	output.endClip(t, 0)

	// The next utterance starts from the clock again, not from the previous
	// utterance's accumulated offset.
	second := fragmentOf('b', time.Second)
	scheduler.AddFragment(context.Background(), second)
	decoder.release(second)
	awaitCondition(t, "second utterance scheduled", func() bool { return len(output.scheduledCalls()) == 2 })

	if got := output.scheduledCalls()[1].at; got != 0 {
		t.Fatalf("expected fresh utterance to schedule at the clock position, got %v", got)
	}
}

func TestSchedulerInitializeFailureLeavesUnready(t *testing.T) {
	output := &fakeOutput{startErr: fmt.Errorf("autoplay blocked")}
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, newGatedDecoder())

	if err := scheduler.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialize to fail")
	}
	if scheduler.Ready() {
		t.Fatalf("expected scheduler unready after failed initialize")
	}
	if scheduler.AddFragment(context.Background(), fragmentOf('a', time.Second)) {
		t.Fatalf("expected fragment rejected while unready")
	}
}

func TestSchedulerDropsUndecodableFragment(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newUtteranceScheduler(commands.PartyInstructor, output, audio.PCMDecoder{})

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("expected initialize to succeed, got %v", err)
	}

	fired := make(chan struct{})
	scheduler.SetOnUtteranceEnded(func() { close(fired) })

	// PCMDecoder rejects empty fragments; the utterance must still end.
	scheduler.AddFragment(context.Background(), []byte{})
	awaitCondition(t, "fragment dropped", func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return len(scheduler.pending) == 0
	})
	scheduler.MarkStreamClosed()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected end signal despite dropped fragment")
	}
}
