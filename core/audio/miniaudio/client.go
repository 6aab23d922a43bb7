// Package miniaudio provides the malgo-backed audio clients: a scheduling
// playback output for utterance audio and a capture client for recording
// spoken answers.
package miniaudio

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/mentora/lesson-core/core/audio"
)

// Client owns one malgo context shared by the playback and capture devices.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	playback playbackDevice
	capture  captureDevice
}

// NewClient initializes the malgo context and both devices. The playback
// device is initialized but not started; the scheduler starts it through
// [Client.Start] when the session prepares audio.
func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.playback.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := client.capture.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

var _ audio.SchedulingOutput = (*Client)(nil)

// Start resumes the playback device. Idempotent.
func (c *Client) Start(_ context.Context) error {
	return c.playback.Start()
}

// Now returns the playback clock position.
func (c *Client) Now() time.Duration {
	return c.playback.Now()
}

// ScheduleAt queues a decoded buffer at an absolute clock position.
func (c *Client) ScheduleAt(pcm []byte, at time.Duration, onEnded func()) error {
	return c.playback.ScheduleAt(pcm, at, onEnded)
}

// StopAll discards every scheduled buffer.
func (c *Client) StopAll() {
	c.playback.StopAll()
}

// StartCapture begins streaming microphone audio to onAudio.
func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.capture.Start(onAudio)
}

// StopCapture stops the microphone stream.
func (c *Client) StopCapture() error {
	return c.capture.Stop()
}

// EncodingInfo reports the encoding both devices run at.
func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.playback.EncodingInfo()
}

// Close releases both devices and the malgo context.
func (c *Client) Close() error {
	_ = c.capture.Uninit()
	_ = c.playback.Uninit()
	if err := c.audioContext.Uninit(); err != nil {
		c.audioContext.Free()
		return fmt.Errorf("failed to uninitialize audio context: %w", err)
	}
	c.audioContext.Free()
	return nil
}
