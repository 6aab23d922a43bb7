package deepgram

import (
	"fmt"

	"github.com/mentora/lesson-core/core/audio"
)

type wireEncoding struct {
	sampleRate int
	format     string
}

const (
	formatLinear16 = "linear16"
	formatALaw     = "alaw"
	formatMulaw    = "mulaw"
)

func toWireEncoding(encoding audio.EncodingInfo) (wireEncoding, error) {
	converted := wireEncoding{}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.sampleRate = encoding.SampleRate
	default:
		return wireEncoding{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.format = formatLinear16
	case audio.EncodingALaw:
		converted.format = formatALaw
	case audio.EncodingMulaw:
		converted.format = formatMulaw
	default:
		return wireEncoding{}, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	// The companded formats are only specified at telephony rates.
	if converted.format != formatLinear16 && converted.sampleRate != 8000 {
		return wireEncoding{}, fmt.Errorf("unsupported sample rate %d for %s encoding", converted.sampleRate, converted.format)
	}

	return converted, nil
}
