// Package audio defines the contracts the utterance scheduler builds on:
// encoding metadata, fragment decoding, and a schedulable output clock.
//
// Real outputs live in the miniaudio and portaudio subpackages; tests use
// in-memory fakes.
package audio

import (
	"context"
	"time"
)

// SchedulingOutput is an audio sink with a monotonic playback clock that
// clips can be scheduled against at absolute positions. Implementations
// must invoke onEnded callbacks outside of any real-time render thread.
type SchedulingOutput interface {
	// Start prepares the output and resumes it if the platform suspended
	// it. Idempotent; an error means the output is unusable and callers
	// should treat audio as unavailable rather than retry.
	Start(ctx context.Context) error

	// Now returns the current position of the output clock. The clock only
	// moves forward while the output is started.
	Now() time.Duration

	// ScheduleAt queues a decoded buffer to begin playing at the given
	// clock position. Positions in the past begin as soon as possible.
	// onEnded fires exactly once, after the buffer finishes or is
	// discarded by StopAll.
	ScheduleAt(pcm []byte, at time.Duration, onEnded func()) error

	// StopAll discards every scheduled buffer, played or not. Pending
	// onEnded callbacks fire with the discard.
	StopAll()

	// Close stops the output and releases the underlying device. No calls
	// are valid afterwards.
	Close() error

	EncodingInfo() EncodingInfo
}
