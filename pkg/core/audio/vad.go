package audio

import (
	"math"
	"sync"
	"time"
)

// VADConfig configures amplitude-based voice activity detection.
type VADConfig struct {
	// Threshold is the scaled volume above which a frame counts as
	// speech. Range: 0.0 to 1.0. Default: 0.05.
	Threshold float64 `json:"threshold"`

	// Sensitivity scales raw RMS energy into the reported volume.
	// Default: 5.0.
	Sensitivity float64 `json:"sensitivity"`

	// Stride is the sampling step for the RMS computation. Every
	// Stride-th sample is inspected. Default: 4.
	Stride int `json:"stride"`

	// SilenceTimeoutMs is how long speech must be absent before the
	// silence callback fires. Default: 400.
	SilenceTimeoutMs int `json:"silence_timeout_ms"`
}

// DefaultVADConfig returns a VADConfig with the standard tuning.
// Threshold and timeout are empirical values for near-field speech;
// both are safe to adjust per deployment.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Threshold:        0.05,
		Sensitivity:      5.0,
		Stride:           4,
		SilenceTimeoutMs: 400,
	}
}

// Sample is the per-frame VAD verdict.
type Sample struct {
	// Volume is the scaled RMS energy, capped at 1.0.
	Volume float64 `json:"volume"`

	// Speech is true when Volume exceeds the configured threshold.
	Speech bool `json:"speech"`
}

// Detector performs strided-RMS voice activity detection with a
// trailing silence debounce. Every speech frame re-arms the silence
// timer; the timer expiring means the user stopped talking.
type Detector struct {
	config VADConfig

	mu        sync.Mutex
	timer     *time.Timer
	onSilence func()

	// afterFunc is swapped in tests to control timer scheduling.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewDetector creates a Detector with the given configuration.
// Zero-valued fields fall back to defaults.
func NewDetector(config VADConfig) *Detector {
	defaults := DefaultVADConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.Sensitivity <= 0 {
		config.Sensitivity = defaults.Sensitivity
	}
	if config.Stride <= 0 {
		config.Stride = defaults.Stride
	}
	if config.SilenceTimeoutMs <= 0 {
		config.SilenceTimeoutMs = defaults.SilenceTimeoutMs
	}
	return &Detector{
		config:    config,
		afterFunc: time.AfterFunc,
	}
}

// SetOnSilence sets the callback fired when the silence debounce
// expires. Must be set before Process is called.
func (d *Detector) SetOnSilence(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSilence = fn
}

// Process analyzes one frame of float samples and returns its verdict.
// Speech frames re-arm the silence timer; silent frames leave any
// running timer untouched so the debounce measures trailing silence.
func (d *Detector) Process(frame []float32) Sample {
	volume := d.Volume(frame)
	sample := Sample{Volume: volume, Speech: volume > d.config.Threshold}
	if !sample.Speech {
		return sample
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	timeout := time.Duration(d.config.SilenceTimeoutMs) * time.Millisecond
	d.timer = d.afterFunc(timeout, d.fireSilence)
	return sample
}

// Volume computes the scaled RMS energy of a frame without touching
// the debounce timer.
func (d *Detector) Volume(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	count := 0
	for i := 0; i < len(frame); i += d.config.Stride {
		v := float64(frame[i])
		sum += v * v
		count++
	}
	if count == 0 {
		return 0
	}
	volume := math.Sqrt(sum/float64(count)) * d.config.Sensitivity
	return math.Min(1.0, volume)
}

// Reset cancels any pending silence timer. Called on interrupts and
// teardown so a stale timer cannot fire into a new turn.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Detector) fireSilence() {
	d.mu.Lock()
	fn := d.onSilence
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}
