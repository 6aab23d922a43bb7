// Package portaudio provides a PortAudio-backed scheduling output for
// platforms where the malgo backend is unavailable.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/mentora/lesson-core/core/audio"
)

// Client renders scheduled clips through a blocking PortAudio stream fed by
// a pump goroutine. The pump writes fixed-size periods, zero-filling the
// gaps between scheduled clips, so the write count doubles as the playback
// clock.
type Client struct {
	bufferSize int
	encoding   audio.EncodingInfo
	stream     *portaudio.Stream
	out        []int16

	mu       sync.Mutex
	rendered int
	clips    []*scheduledClip
	started  bool
	closed   chan struct{}
}

type scheduledClip struct {
	start   int
	data    []byte
	onEnded func()
}

// NewClient initializes PortAudio and opens the default output stream.
func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	encoding := audio.EncodingInfo{SampleRate: audio.DefaultSampleRate, Format: audio.EncodingLinear16}

	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(encoding.SampleRate), bufferSize, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		encoding:   encoding,
		stream:     stream,
		out:        out,
		closed:     make(chan struct{}),
	}, nil
}

var _ audio.SchedulingOutput = (*Client)(nil)

// Start starts the stream and the pump goroutine. Idempotent.
func (c *Client) Start(_ context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	go c.pump()
	return nil
}

// Now returns the playback clock position.
func (c *Client) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Duration(float64(c.rendered) / float64(c.encoding.BytesPerSecond()) * float64(time.Second))
}

// ScheduleAt queues a decoded buffer at an absolute clock position.
func (c *Client) ScheduleAt(pcm []byte, at time.Duration, onEnded func()) error {
	if len(pcm) == 0 {
		if onEnded != nil {
			go onEnded()
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.encoding.Bytes(at)
	if start < c.rendered {
		start = c.rendered
	}
	if byteSize := c.encoding.Format.ByteSize(); byteSize > 1 {
		start -= start % byteSize
	}

	c.clips = append(c.clips, &scheduledClip{start: start, data: pcm, onEnded: onEnded})
	sort.SliceStable(c.clips, func(i, j int) bool { return c.clips[i].start < c.clips[j].start })
	return nil
}

// StopAll discards every scheduled buffer and fires their completions.
func (c *Client) StopAll() {
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

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

// Close stops the pump, the stream, and PortAudio itself.
func (c *Client) Close() error {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.mu.Unlock()

	c.StopAll()

	if err := c.stream.Close(); err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("failed to close PortAudio stream: %w", err)
	}

	return portaudio.Terminate()
}

// pump feeds the blocking stream one period at a time, assembling each
// period from the clips that overlap it.
func (c *Client) pump() {
	periodBytes := c.bufferSize * c.encoding.Format.ByteSize()
	period := make([]byte, periodBytes)

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		for i := range period {
			period[i] = c.encoding.SilenceValue()
		}

		c.mu.Lock()
		windowStart := c.rendered
		windowEnd := windowStart + periodBytes

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
				copied := copy(period[offset:], clip.data[from:])
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

		for _, clip := range finished {
			if clip.onEnded != nil {
				go clip.onEnded()
			}
		}

		if err := binary.Read(bytes.NewReader(period), binary.LittleEndian, c.out); err != nil {
			return
		}
		if err := c.stream.Write(); err != nil {
			return
		}
	}
}
