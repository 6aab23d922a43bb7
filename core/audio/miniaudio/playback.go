package miniaudio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/mentora/lesson-core/core/audio"
)

// playbackDevice renders clips scheduled at absolute byte positions on a
// timeline that advances with the device clock. The render callback
// zero-fills silence between clips, so gapless playback falls out of
// back-to-back scheduling rather than buffer chaining.
type playbackDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig
	encoding     audio.EncodingInfo

	mu sync.Mutex
	// rendered is the byte position of the device clock since Init.
	rendered int
	// clips are pending and in-flight scheduled buffers, sorted by start.
	clips []*scheduledClip

	started bool
}

type scheduledClip struct {
	start   int
	data    []byte
	onEnded func()
}

func (c *playbackDevice) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.encoding = audio.EncodingInfo{SampleRate: audio.DefaultSampleRate, Format: audio.EncodingLinear16}

	sampleRate := uint32(c.encoding.SampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.render(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackDevice) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if c.started && c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	c.started = true
	return nil
}

func (c *playbackDevice) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Duration(float64(c.rendered) / float64(c.encoding.BytesPerSecond()) * float64(time.Second))
}

func (c *playbackDevice) ScheduleAt(pcm []byte, at time.Duration, onEnded func()) error {
	if len(pcm) == 0 {
		if onEnded != nil {
			go onEnded()
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	start := c.encoding.Bytes(at)
	if start < c.rendered {
		start = c.rendered
	}
	// Align to whole samples so clip boundaries never split a sample.
	byteSize := c.encoding.Format.ByteSize()
	if byteSize > 1 {
		start -= start % byteSize
	}

	c.clips = append(c.clips, &scheduledClip{start: start, data: pcm, onEnded: onEnded})
	sort.SliceStable(c.clips, func(i, j int) bool { return c.clips[i].start < c.clips[j].start })
	return nil
}

func (c *playbackDevice) StopAll() {
	c.mu.Lock()
	discarded := c.clips
	c.clips = nil
	c.mu.Unlock()

	for _, clip := range discarded {
		if clip.onEnded != nil {
			go clip.onEnded()
		}
	}
}

func (c *playbackDevice) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

func (c *playbackDevice) Uninit() error {
	c.mu.Lock()

	if c.device == nil {
		c.mu.Unlock()
		return fmt.Errorf("device not initialized")
	}

	device := c.device
	c.device = nil
	c.started = false
	c.mu.Unlock()

	device.Uninit()
	c.StopAll()
	return nil
}

// render copies overlapping clip regions into the output buffer and fires
// completion callbacks for clips that finished inside this period. The
// callback runs on the device's realtime thread, so completions are handed
// off to a goroutine.
func (c *playbackDevice) render(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.mu.Lock()
		windowStart := c.rendered
		windowEnd := windowStart + need

		var finished []*scheduledClip
		remaining := c.clips[:0]
		for _, clip := range c.clips {
			clipEnd := clip.start + len(clip.data)
			if clipEnd <= windowStart {
				finished = append(finished, clip)
				continue
			}
			if clip.start < windowEnd {
				from := 0
				if windowStart > clip.start {
					from = windowStart - clip.start
				}
				offset := 0
				if clip.start > windowStart {
					offset = clip.start - windowStart
				}
				copied := copy(pOutput[offset:need], clip.data[from:])
				if from+copied >= len(clip.data) && clipEnd <= windowEnd {
					finished = append(finished, clip)
					continue
				}
			}
			remaining = append(remaining, clip)
		}
		c.clips = remaining
		c.rendered = windowEnd
		c.mu.Unlock()

		if len(finished) > 0 {
			go func() {
				for _, clip := range finished {
					if clip.onEnded != nil {
						clip.onEnded()
					}
				}
			}()
		}
	}
}
