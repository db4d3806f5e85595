package live

import (
	"sync"
	"time"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/audio"
)

// Sink receives raw PCM for playback. The production sink drives the
// speaker; tests use a recording sink.
type Sink interface {
	Write(pcm []byte) error
	// Flush discards buffered audio immediately.
	Flush()
	Close() error
}

// Scheduler lines up synthesized audio chunks for gapless playback.
// It keeps a monotonic cursor: each chunk starts at the later of the
// cursor and now, and the cursor advances by the chunk's duration.
// When the last in-flight chunk finishes the drained callback fires
// and the cursor resets so the next response starts immediately.
type Scheduler struct {
	cfg  audio.AudioConfig
	sink Sink

	mu        sync.Mutex
	nextStart time.Time
	sources   map[int]*time.Timer
	nextID    int
	onDrained func()
	closed    bool

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewScheduler creates a scheduler writing to the given sink using the
// playback stream format.
func NewScheduler(cfg audio.AudioConfig, sink Sink) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		sink:      sink,
		sources:   make(map[int]*time.Timer),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// SetOnDrained sets the callback fired when the last scheduled chunk
// finishes playing.
func (s *Scheduler) SetOnDrained(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDrained = fn
}

// Enqueue schedules one PCM chunk and returns its computed start time.
func (s *Scheduler) Enqueue(pcm []byte) (time.Time, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return time.Time{}, core.NewValidationError("scheduler is closed")
	}

	now := s.now()
	start := s.nextStart
	if start.Before(now) {
		start = now
	}
	duration := s.chunkDuration(len(pcm))
	s.nextStart = start.Add(duration)

	id := s.nextID
	s.nextID++
	remaining := s.nextStart.Sub(now)
	s.sources[id] = s.afterFunc(remaining, func() { s.complete(id) })
	sink := s.sink
	s.mu.Unlock()

	if err := sink.Write(pcm); err != nil {
		return time.Time{}, err
	}
	return start, nil
}

// InterruptAll stops every in-flight chunk, flushes the sink, and
// resets the cursor. The drained callback does not fire; barge-in
// transitions are driven by the caller.
func (s *Scheduler) InterruptAll() {
	s.mu.Lock()
	for id, timer := range s.sources {
		timer.Stop()
		delete(s.sources, id)
	}
	s.nextStart = time.Time{}
	sink := s.sink
	s.mu.Unlock()
	sink.Flush()
}

// Active reports whether any chunk is still playing.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources) > 0
}

// Len returns the number of in-flight chunks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Close stops all playback and closes the sink.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, timer := range s.sources {
		timer.Stop()
		delete(s.sources, id)
	}
	s.nextStart = time.Time{}
	sink := s.sink
	s.mu.Unlock()
	return sink.Close()
}

func (s *Scheduler) complete(id int) {
	s.mu.Lock()
	if _, ok := s.sources[id]; !ok {
		// Already interrupted or closed; completing twice is a no-op.
		s.mu.Unlock()
		return
	}
	delete(s.sources, id)
	var fn func()
	if len(s.sources) == 0 && !s.closed {
		s.nextStart = time.Time{}
		fn = s.onDrained
	}
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *Scheduler) chunkDuration(bytes int) time.Duration {
	bps := s.cfg.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}
