package audio

import "time"

const (
	DefaultSampleRate = 24000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// BytesPerSecond returns the raw byte throughput of this encoding, used to
// convert between byte positions on the output timeline and durations.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Format.ByteSize()
}

// Duration returns the playback duration of a raw buffer in this encoding.
func (e EncodingInfo) Duration(buffer []byte) time.Duration {
	bytesPerSecond := e.BytesPerSecond()
	if bytesPerSecond <= 0 {
		return 0
	}

	return time.Duration(float64(len(buffer)) / float64(bytesPerSecond) * float64(time.Second))
}

// Bytes returns the raw byte count covering the given duration in this
// encoding, aligned down to a whole sample.
func (e EncodingInfo) Bytes(duration time.Duration) int {
	byteSize := e.Format.ByteSize()
	if byteSize <= 0 {
		return 0
	}

	samples := int(duration.Seconds() * float64(e.SampleRate))
	return samples * byteSize
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
