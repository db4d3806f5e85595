package live

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/live/protocol"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

const (
	videoFrameInterval = 500 * time.Millisecond
	videoReadyTimeout  = time.Second
	videoJPEGQuality   = 50
)

// FrameSource provides still frames for the video channel. The
// platform layer injects camera and screen grabbers behind this
// interface. Start returns a typed unsupported error when the source
// cannot serve the requested mode.
type FrameSource interface {
	Start(ctx context.Context, mode types.VideoMode) error
	// Ready is closed once frames are available to grab.
	Ready() <-chan struct{}
	Grab() (image.Image, error)
	Close() error
}

// mediaSender is the slice of the session the sampler needs.
type mediaSender interface {
	SendMedia(chunks ...protocol.Blob) error
}

// Sampler multiplexes low-rate JPEG stills into the live session.
// Camera and screen are mutually exclusive; starting one stops the
// other. Frame send failures are swallowed so a dropped still never
// disturbs the audio conversation.
type Sampler struct {
	sender mediaSender

	mu     sync.Mutex
	mode   types.VideoMode
	source FrameSource
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSampler creates a sampler sending frames through the given session.
func NewSampler(sender mediaSender) *Sampler {
	return &Sampler{sender: sender, mode: types.VideoNone}
}

// Mode returns the active video mode.
func (v *Sampler) Mode() types.VideoMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Start switches the video channel to the given mode, stopping any
// previous source first. On failure the mode reverts to none and the
// audio session is untouched.
func (v *Sampler) Start(mode types.VideoMode, source FrameSource, onPreview func(frame image.Image)) error {
	if mode == types.VideoNone {
		return core.NewValidationErrorWithParam("video mode must be camera or screen", "mode")
	}
	if source == nil {
		return core.NewValidationErrorWithParam("frame source is required", "source")
	}
	v.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := source.Start(ctx, mode); err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	v.mu.Lock()
	v.mode = mode
	v.source = source
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	go v.run(ctx, source, onPreview, done)
	return nil
}

// Stop ends video sampling and releases the source. The audio session
// keeps running. Safe to call when no video is active.
func (v *Sampler) Stop() {
	v.mu.Lock()
	cancel := v.cancel
	source := v.source
	done := v.done
	v.mode = types.VideoNone
	v.source = nil
	v.cancel = nil
	v.done = nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if source != nil {
		_ = source.Close()
	}
}

func (v *Sampler) run(ctx context.Context, source FrameSource, onPreview func(image.Image), done chan struct{}) {
	defer close(done)

	// Bound the wait for the first frame; some sources warm up slowly
	// and some never signal at all.
	select {
	case <-source.Ready():
	case <-time.After(videoReadyTimeout):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(videoFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.sampleOnce(source, onPreview)
		}
	}
}

func (v *Sampler) sampleOnce(source FrameSource, onPreview func(image.Image)) {
	frame, err := source.Grab()
	if err != nil || frame == nil {
		return
	}
	if onPreview != nil {
		onPreview(frame)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: videoJPEGQuality}); err != nil {
		return
	}
	_ = v.sender.SendMedia(protocol.Blob{
		MIMEType: protocol.VideoMIMEType,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}
