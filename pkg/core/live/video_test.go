package live

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/live/protocol"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

type fakeSender struct {
	mu     sync.Mutex
	chunks []protocol.Blob
}

func (f *fakeSender) SendMedia(chunks ...protocol.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeSender) sent() []protocol.Blob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Blob(nil), f.chunks...)
}

type fakeFrameSource struct {
	mu       sync.Mutex
	ready    chan struct{}
	grabs    int
	closed   bool
	startErr error
	modes    []types.VideoMode
}

func newFakeFrameSource() *fakeFrameSource {
	ready := make(chan struct{})
	close(ready)
	return &fakeFrameSource{ready: ready}
}

func (f *fakeFrameSource) Start(_ context.Context, mode types.VideoMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.modes = append(f.modes, mode)
	return nil
}

func (f *fakeFrameSource) Ready() <-chan struct{} { return f.ready }

func (f *fakeFrameSource) Grab() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grabs++
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func (f *fakeFrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFrameSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestSamplerSendsJPEGFrames(t *testing.T) {
	sender := &fakeSender{}
	sampler := NewSampler(sender)
	source := newFakeFrameSource()

	if err := sampler.Start(types.VideoCamera, source, nil); err != nil {
		t.Fatal(err)
	}
	defer sampler.Stop()

	deadline := time.After(3 * time.Second)
	for len(sender.sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no frame sent within deadline")
		case <-time.After(50 * time.Millisecond):
		}
	}

	chunk := sender.sent()[0]
	if chunk.MIMEType != protocol.VideoMIMEType {
		t.Errorf("mime = %q, want image/jpeg", chunk.MIMEType)
	}
	raw, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		t.Fatalf("frame payload is not base64: %v", err)
	}
	// JPEG SOI marker.
	if len(raw) < 2 || raw[0] != 0xFF || raw[1] != 0xD8 {
		t.Error("frame payload is not a JPEG")
	}
}

func TestSamplerModeSwitchStopsPreviousSource(t *testing.T) {
	sampler := NewSampler(&fakeSender{})
	camera := newFakeFrameSource()
	screen := newFakeFrameSource()

	if err := sampler.Start(types.VideoCamera, camera, nil); err != nil {
		t.Fatal(err)
	}
	if err := sampler.Start(types.VideoScreen, screen, nil); err != nil {
		t.Fatal(err)
	}
	defer sampler.Stop()

	if !camera.isClosed() {
		t.Error("previous source not closed on mode switch")
	}
	if got := sampler.Mode(); got != types.VideoScreen {
		t.Errorf("mode = %s, want screen", got)
	}
}

func TestSamplerUnsupportedModeReverts(t *testing.T) {
	sampler := NewSampler(&fakeSender{})
	source := newFakeFrameSource()
	source.startErr = core.NewUnsupportedError("screen capture unavailable")

	err := sampler.Start(types.VideoScreen, source, nil)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrUnsupported {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	if got := sampler.Mode(); got != types.VideoNone {
		t.Errorf("mode = %s, want none after failure", got)
	}
}

func TestSamplerStopIdempotent(t *testing.T) {
	sampler := NewSampler(&fakeSender{})
	source := newFakeFrameSource()
	if err := sampler.Start(types.VideoCamera, source, nil); err != nil {
		t.Fatal(err)
	}
	sampler.Stop()
	sampler.Stop()
	if !source.isClosed() {
		t.Error("source not closed")
	}
	if got := sampler.Mode(); got != types.VideoNone {
		t.Errorf("mode = %s, want none", got)
	}
}

func TestSamplerRejectsNoneMode(t *testing.T) {
	sampler := NewSampler(&fakeSender{})
	if err := sampler.Start(types.VideoNone, newFakeFrameSource(), nil); err == nil {
		t.Error("expected validation error for none mode")
	}
}
