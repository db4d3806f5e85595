// Package audio implements the capture side of a voice session: device
// acquisition, gain, block downsampling, PCM encoding, and amplitude
// based voice activity detection.
package audio

// Standard session rates. Input audio is streamed to the model at 16 kHz
// and synthesized audio comes back at 24 kHz.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// CaptureFrameSamples is the number of samples per capture frame at the
// device's native rate. 2048 samples keeps per-frame latency around
// 43 ms at 48 kHz without burning CPU on tiny callbacks.
const CaptureFrameSamples = 2048

// InputGain is the fixed boost applied to raw microphone samples before
// analysis and encoding. Consumer microphones tend to run quiet.
const InputGain = 1.2

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultInputConfig returns the microphone stream format.
func DefaultInputConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    InputSampleRate,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// DefaultOutputConfig returns the playback stream format.
func DefaultOutputConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    OutputSampleRate,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in milliseconds.
func (c AudioConfig) BytesForDurationMs(ms int) int {
	return (c.BytesPerSecond() * ms) / 1000
}
