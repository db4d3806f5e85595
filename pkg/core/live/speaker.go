package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/audio"
)

// SpeakerSink plays PCM through the default output device via oto.
// Writes append to an internal buffer that the oto player pulls from;
// the player is created lazily on the first write so a silent session
// never touches the device.
type SpeakerSink struct {
	otoCtx *oto.Context

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	player  *oto.Player
	playing bool
	closed  bool
}

// NewSpeakerSink opens the output device for the given stream format.
func NewSpeakerSink(cfg audio.AudioConfig) (*SpeakerSink, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, core.NewDeviceError(fmt.Sprintf("open speaker: %v", err))
	}
	<-ready

	s := &SpeakerSink{otoCtx: otoCtx}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Write appends PCM to the playback buffer, starting the player on the
// first write.
func (s *SpeakerSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.NewValidationError("speaker is closed")
	}

	s.buf = append(s.buf, pcm...)
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.cond.Signal()
	return nil
}

// Read implements io.Reader for the oto player pull loop.
func (s *SpeakerSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.buf) == 0 {
		// Feed silence so oto drains gracefully.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Flush discards buffered audio and tears down the current player so
// stale audio cannot bleed into the next response.
func (s *SpeakerSink) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	if s.player == nil || !s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = false
	player := s.player
	s.player = nil
	s.mu.Unlock()

	player.Pause()
	player.Reset()
	player.Close()
}

// Close stops playback and wakes any blocked reader.
func (s *SpeakerSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		player.Close()
	}
	return nil
}
