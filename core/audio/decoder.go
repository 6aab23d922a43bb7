package audio

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyFragment reports a fragment with no audio payload.
var ErrEmptyFragment = errors.New("audio fragment is empty")

// Clip is one decoded audio fragment ready for scheduling.
type Clip struct {
	PCM      []byte
	Encoding EncodingInfo
}

// Duration returns the playback duration of the clip.
func (c Clip) Duration() time.Duration {
	return c.Encoding.Duration(c.PCM)
}

// Decoder turns opaque encoded fragment bytes into a schedulable clip.
// Decoding may be slow; the scheduler calls it off the scheduling path and
// re-serializes clips into arrival order afterwards.
type Decoder interface {
	Decode(ctx context.Context, fragment []byte) (Clip, error)
}

// PCMDecoder passes raw PCM fragments through unchanged, deriving duration
// from the configured encoding. This is the default decoder for services
// that stream pre-decoded linear16 audio.
type PCMDecoder struct {
	Encoding EncodingInfo
}

// Decode returns the fragment as a clip in the decoder's encoding.
func (d PCMDecoder) Decode(_ context.Context, fragment []byte) (Clip, error) {
	if len(fragment) == 0 {
		return Clip{}, ErrEmptyFragment
	}

	encoding := d.Encoding
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}

	return Clip{PCM: fragment, Encoding: encoding}, nil
}
