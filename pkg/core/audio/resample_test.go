package audio

import (
	"math"
	"testing"
)

func TestDownsampleEqualRatesPassesThrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := Downsample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: %f vs %f", i, out[i], in[i])
		}
	}
}

func TestDownsampleThreeToOne(t *testing.T) {
	// 48 kHz to 16 kHz averages each block of three.
	in := []float32{0, 0, 3, 1, 1, 1, -2, -2, -2}
	out := Downsample(in, 48000, 16000)
	if len(out) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(out))
	}
	want := []float32{1, 1, -2}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestDownsampleOutputLength(t *testing.T) {
	in := make([]float32, CaptureFrameSamples)
	out := Downsample(in, 48000, 16000)
	want := int(math.Round(float64(CaptureFrameSamples) / 3.0))
	if len(out) != want {
		t.Errorf("expected %d samples, got %d", want, len(out))
	}

	out = Downsample(in, 44100, 16000)
	want = int(math.Round(float64(CaptureFrameSamples) * 16000.0 / 44100.0))
	if len(out) != want {
		t.Errorf("expected %d samples for 44.1 kHz input, got %d", want, len(out))
	}
}

func TestDownsamplePreservesDC(t *testing.T) {
	in := make([]float32, 441)
	for i := range in {
		in[i] = 0.5
	}
	out := Downsample(in, 44100, 16000)
	for i, s := range out {
		if math.Abs(float64(s-0.5)) > 1e-6 {
			t.Fatalf("sample %d drifted from DC level: %f", i, s)
		}
	}
}
