package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/gtistudio/voicelive/pkg/core"
)

// Source abstracts the audio input device so tests can feed synthetic
// sample streams. Start begins delivering mono float samples at the
// source's native rate until Stop is called.
type Source interface {
	Start(onData func(samples []float32)) error
	Stop() error
	SampleRate() int
}

// CaptureUnit turns a raw device sample stream into fixed-size frames
// ready for analysis and encoding: it applies the input gain, cuts the
// stream into CaptureFrameSamples blocks, and downsamples each block
// to the 16 kHz session rate.
type CaptureUnit struct {
	source Source

	mu      sync.Mutex
	onFrame func(frame []float32)
	pending []float32
	started bool
}

// NewCaptureUnit creates a CaptureUnit reading from the given source.
func NewCaptureUnit(source Source) *CaptureUnit {
	return &CaptureUnit{source: source}
}

// SetOnFrame sets the callback invoked with each 16 kHz frame.
// Must be set before Start.
func (c *CaptureUnit) SetOnFrame(fn func(frame []float32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = fn
}

// Start acquires the device and begins delivering frames.
func (c *CaptureUnit) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return core.NewValidationError("capture already started")
	}
	c.started = true
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.source.Start(c.ingest); err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// Stop releases the device. Buffered samples short of a full frame are
// discarded. The source is stopped even when Start never ran so a
// teardown that races a pending Start still silences the device.
func (c *CaptureUnit) Stop() error {
	c.mu.Lock()
	c.started = false
	c.pending = nil
	c.mu.Unlock()
	return c.source.Stop()
}

func (c *CaptureUnit) ingest(samples []float32) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	for _, s := range samples {
		c.pending = append(c.pending, s*InputGain)
	}

	var frames [][]float32
	for len(c.pending) >= CaptureFrameSamples {
		frame := make([]float32, CaptureFrameSamples)
		copy(frame, c.pending[:CaptureFrameSamples])
		c.pending = c.pending[CaptureFrameSamples:]
		frames = append(frames, frame)
	}
	onFrame := c.onFrame
	rate := c.source.SampleRate()
	c.mu.Unlock()

	if onFrame == nil {
		return
	}
	for _, frame := range frames {
		onFrame(Downsample(frame, rate, InputSampleRate))
	}
}

// MicSource captures mono 16-bit audio from the default microphone.
type MicSource struct {
	sampleRate int

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMicSource creates a microphone source at the given native rate.
func NewMicSource(sampleRate int) *MicSource {
	return &MicSource{sampleRate: sampleRate}
}

// SampleRate returns the device's native rate.
func (m *MicSource) SampleRate() int {
	return m.sampleRate
}

// Start opens the default capture device and begins streaming samples
// to onData. Device failures are reported as typed device errors so
// the session can fail fast instead of hanging in setup.
func (m *MicSource) Start(onData func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return core.NewValidationError("microphone already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	allocated, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return core.NewDeviceError(fmt.Sprintf("init audio context: %v", err))
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onData(PCMToFloat(input))
		},
	}

	device, err := malgo.InitDevice(allocated.Context, deviceConfig, callbacks)
	if err != nil {
		_ = allocated.Uninit()
		allocated.Free()
		return core.NewDeviceError(fmt.Sprintf("open microphone: %v", err))
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = allocated.Uninit()
		allocated.Free()
		return core.NewDeviceError(fmt.Sprintf("start microphone: %v", err))
	}

	m.ctx = allocated
	m.device = device
	return nil
}

// Stop releases the capture device and audio context.
func (m *MicSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}
