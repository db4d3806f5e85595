package audio

import (
	"sync/atomic"
	"testing"
	"time"
)

func loudFrame(n int) []float32 {
	frame := make([]float32, n)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = 0.3
		} else {
			frame[i] = -0.3
		}
	}
	return frame
}

func quietFrame(n int) []float32 {
	return make([]float32, n)
}

func TestProcessClassifiesFrames(t *testing.T) {
	d := NewDetector(DefaultVADConfig())

	loud := d.Process(loudFrame(512))
	if !loud.Speech {
		t.Errorf("loud frame not classified as speech (volume %f)", loud.Volume)
	}
	if loud.Volume <= 0 || loud.Volume > 1 {
		t.Errorf("volume out of range: %f", loud.Volume)
	}

	quiet := d.Process(quietFrame(512))
	if quiet.Speech {
		t.Error("silent frame classified as speech")
	}
	if quiet.Volume != 0 {
		t.Errorf("silent frame volume = %f, want 0", quiet.Volume)
	}
}

func TestVolumeCapsAtOne(t *testing.T) {
	d := NewDetector(DefaultVADConfig())
	frame := make([]float32, 256)
	for i := range frame {
		frame[i] = 1.0
	}
	if v := d.Volume(frame); v != 1.0 {
		t.Errorf("volume = %f, want cap at 1.0", v)
	}
}

func TestSilenceFiresAfterDebounce(t *testing.T) {
	cfg := DefaultVADConfig()
	cfg.SilenceTimeoutMs = 40
	d := NewDetector(cfg)

	var fired atomic.Int32
	d.SetOnSilence(func() { fired.Add(1) })

	d.Process(loudFrame(512))

	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("silence fired before the debounce elapsed")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("silence fired %d times, want 1", fired.Load())
	}
}

func TestSpeechReArmsDebounce(t *testing.T) {
	cfg := DefaultVADConfig()
	cfg.SilenceTimeoutMs = 60
	d := NewDetector(cfg)

	var fired atomic.Int32
	d.SetOnSilence(func() { fired.Add(1) })

	// Keep talking at intervals shorter than the timeout.
	for i := 0; i < 4; i++ {
		d.Process(loudFrame(512))
		time.Sleep(25 * time.Millisecond)
	}
	if fired.Load() != 0 {
		t.Fatal("silence fired while speech frames kept arriving")
	}

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("silence fired %d times after speech stopped, want 1", fired.Load())
	}
}

func TestQuietFramesDoNotArmTimer(t *testing.T) {
	cfg := DefaultVADConfig()
	cfg.SilenceTimeoutMs = 30
	d := NewDetector(cfg)

	var fired atomic.Int32
	d.SetOnSilence(func() { fired.Add(1) })

	d.Process(quietFrame(512))
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("silence fired without any preceding speech")
	}
}

func TestResetCancelsPendingTimer(t *testing.T) {
	cfg := DefaultVADConfig()
	cfg.SilenceTimeoutMs = 40
	d := NewDetector(cfg)

	var fired atomic.Int32
	d.SetOnSilence(func() { fired.Add(1) })

	d.Process(loudFrame(512))
	d.Reset()
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("silence fired after Reset")
	}
}
