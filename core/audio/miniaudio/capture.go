package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/mentora/lesson-core/core/audio"
)

// captureDevice streams microphone periods to a single listener while the
// student records a spoken answer. The device stays initialized for the
// whole session; recording toggles only the listener and the device state.
type captureDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	mu sync.Mutex
	// listener receives raw periods from the capture thread; nil while no
	// recording is active, which makes stray periods after Stop harmless.
	listener func(captured []byte)
}

func (c *captureDevice) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	format := malgo.FormatS16
	channels := 1

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = uint32(audio.DefaultSampleRate)
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	// Small periods keep transcription latency low during push-to-talk.
	c.config.PeriodSizeInFrames = 480
	c.config.Periods = 3

	c.audioContext = audioContext

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.forward(malgo.SampleSizeInBytes(format) * channels)},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.device = device
	return nil
}

// forward hands each captured period to the current listener. It runs on
// the device's capture thread; the lock is only held long enough to read
// the listener, matching how the playback render callback guards its state.
func (c *captureDevice) forward(bytesPerFrame int) malgo.DataProc {
	return func(_, pInput []byte, frameCount uint32) {
		n := int(frameCount) * bytesPerFrame
		if n == 0 || len(pInput) < n {
			return
		}

		c.mu.Lock()
		listener := c.listener
		c.mu.Unlock()

		if listener != nil {
			listener(pInput[:n])
		}
	}
}

// Start arms the listener and starts the device. Idempotent while running.
// The device is started outside the lock: stopping and starting join the
// capture thread, which itself takes the lock in forward.
func (c *captureDevice) Start(onAudio func(captured []byte)) error {
	c.mu.Lock()
	device := c.device
	if device == nil {
		c.mu.Unlock()
		return fmt.Errorf("device not initialized")
	}
	if device.IsStarted() {
		c.mu.Unlock()
		return nil
	}
	// Arm before starting so the first period cannot slip past the listener.
	c.listener = onAudio
	c.mu.Unlock()

	if err := device.Start(); err != nil {
		c.mu.Lock()
		c.listener = nil
		c.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

// Stop stops the device and disarms the listener. Idempotent while stopped.
func (c *captureDevice) Stop() error {
	c.mu.Lock()
	device := c.device
	if device == nil {
		c.mu.Unlock()
		return fmt.Errorf("device not initialized")
	}
	if !device.IsStarted() {
		c.mu.Unlock()
		return nil
	}
	// Disarm first so periods racing the stop are dropped, not delivered.
	c.listener = nil
	c.mu.Unlock()

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	return nil
}

func (c *captureDevice) Uninit() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.listener = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}
