package live

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/audio"
	"github.com/gtistudio/voicelive/pkg/core/live/protocol"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

const autoPreviewDelay = 500 * time.Millisecond

// realtimeChannel is the slice of Session the controller drives.
// Tests inject a fake transport through it.
type realtimeChannel interface {
	SendMedia(chunks ...protocol.Blob) error
	SendText(text string) error
	SendToolResponse(responses []protocol.FunctionResponse) error
	Events() <-chan *protocol.ServerMessage
	Close() error
	Err() error
}

// Controller owns one live voice session end to end: it wires capture,
// VAD, transport, playback, tool dispatch, and video into a single
// lifecycle with Connect and Disconnect at the edges.
type Controller struct {
	cfg       SessionConfig
	callbacks Callbacks
	logger    *slog.Logger

	mu         sync.Mutex
	state      *StateMachine
	vad        *audio.Detector
	capture    *audio.CaptureUnit
	scheduler  *Scheduler
	session    realtimeChannel
	dispatcher *Dispatcher
	sampler    *Sampler
	preview    *time.Timer

	muted     atomic.Bool
	closed    atomic.Bool
	connected atomic.Bool

	// Factories, replaced in tests.
	newSink   func(cfg audio.AudioConfig) (Sink, error)
	newSource func() (audio.Source, error)
	dial      func(ctx context.Context, cfg SessionConfig, setup *protocol.Setup) (realtimeChannel, error)
}

// NewController creates a controller for one session. The default
// factories use the system microphone and speaker; the host supplies
// config and callbacks up front so Connect can run asynchronously.
func NewController(cfg SessionConfig, callbacks Callbacks) *Controller {
	c := &Controller{
		cfg:       cfg,
		callbacks: callbacks,
		logger:    slog.Default(),
		state:     NewStateMachine(),
	}
	c.newSink = func(audioCfg audio.AudioConfig) (Sink, error) {
		return NewSpeakerSink(audioCfg)
	}
	c.newSource = func() (audio.Source, error) {
		return audio.NewMicSource(48000), nil
	}
	c.dial = func(ctx context.Context, sessionCfg SessionConfig, setup *protocol.Setup) (realtimeChannel, error) {
		return Dial(ctx, sessionCfg, setup)
	}
	return c
}

// SetLogger overrides the default slog logger.
func (c *Controller) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// State returns the current session state.
func (c *Controller) State() SessionState {
	return c.state.State()
}

// Latency returns the last measured response latency.
func (c *Controller) Latency() time.Duration {
	return c.state.Latency()
}

// Connect acquires playback, microphone, and the realtime channel in
// that order, then starts streaming. Partial failures release whatever
// was already acquired and leave the session in the error state.
func (c *Controller) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return core.NewValidationError("session already disconnected")
	}
	if c.connected.Load() {
		return core.NewValidationError("session already connected")
	}
	// A failed attempt parks the machine in error; a fresh connect
	// starts over from connecting.
	c.state.Reset()
	if err := c.normalizeConfig(); err != nil {
		return c.fail(err)
	}

	c.state.SetOnChange(func(_, to SessionState) {
		c.debug("SESSION", "state -> "+to.String())
		if c.callbacks.OnStateChange != nil {
			c.callbacks.OnStateChange(to)
		}
	})

	// Playback first so the first response chunk always has somewhere
	// to go.
	sink, err := c.newSink(audio.DefaultOutputConfig())
	if err != nil {
		return c.fail(err)
	}
	scheduler := NewScheduler(audio.DefaultOutputConfig(), sink)
	scheduler.SetOnDrained(c.onPlaybackDrained)

	source, err := c.newSource()
	if err != nil {
		_ = scheduler.Close()
		return c.fail(err)
	}
	capture := audio.NewCaptureUnit(source)
	capture.SetOnFrame(c.onFrame)

	session, err := c.dial(ctx, c.cfg, c.buildSetup())
	if err != nil {
		_ = scheduler.Close()
		return c.fail(err)
	}

	// Disconnect may have raced the dial.
	if c.closed.Load() {
		_ = session.Close()
		_ = scheduler.Close()
		return core.NewValidationError("session already disconnected")
	}

	vad := audio.NewDetector(c.cfg.VAD)
	vad.SetOnSilence(c.onSilence)

	c.mu.Lock()
	c.scheduler = scheduler
	c.capture = capture
	c.session = session
	c.vad = vad
	c.dispatcher = NewDispatcher(c.callbacks.OnToolCall)
	c.sampler = NewSampler(session)
	c.mu.Unlock()

	if err := capture.Start(ctx); err != nil {
		_ = session.Close()
		_ = scheduler.Close()
		return c.fail(err)
	}

	// A Disconnect racing the device start may have run before the
	// device came up, so its stop did not take; undo the start here.
	if c.closed.Load() {
		_ = capture.Stop()
		_ = session.Close()
		_ = scheduler.Close()
		return core.NewValidationError("session already disconnected")
	}

	c.state.Set(StateListening)
	c.connected.Store(true)

	go c.readLoop(session)

	if c.cfg.AutoPreview {
		greeting := fmt.Sprintf("Hello, I am %s.", c.cfg.Voice)
		c.mu.Lock()
		c.preview = time.AfterFunc(autoPreviewDelay, func() {
			if c.closed.Load() {
				return
			}
			if err := session.SendText(greeting); err != nil {
				c.debug("SESSION", "preview greeting dropped: "+err.Error())
			}
		})
		c.mu.Unlock()
	}

	c.debug("SESSION", "connected to "+c.cfg.Model)
	return nil
}

// SetMute toggles the microphone mute. Capture keeps running while
// muted so the meter stays live, but frames are neither analyzed for
// turn-taking nor sent upstream.
func (c *Controller) SetMute(muted bool) {
	c.muted.Store(muted)
}

// Muted reports the mute state.
func (c *Controller) Muted() bool {
	return c.muted.Load()
}

// StartVideoStream switches the video channel to the given mode using
// the supplied frame source. The previous mode, if any, is stopped
// first; failures leave the audio session running with video off.
func (c *Controller) StartVideoStream(mode types.VideoMode, source FrameSource, onPreview func(frame image.Image)) error {
	if c.closed.Load() {
		return core.NewValidationError("session already disconnected")
	}
	c.mu.Lock()
	sampler := c.sampler
	c.mu.Unlock()
	if sampler == nil {
		return core.NewValidationError("session is not connected")
	}
	return sampler.Start(mode, source, onPreview)
}

// StopVideoStream ends video sampling without touching the audio
// session.
func (c *Controller) StopVideoStream() {
	c.mu.Lock()
	sampler := c.sampler
	c.mu.Unlock()
	if sampler != nil {
		sampler.Stop()
	}
}

// VideoMode returns the active video mode.
func (c *Controller) VideoMode() types.VideoMode {
	c.mu.Lock()
	sampler := c.sampler
	c.mu.Unlock()
	if sampler == nil {
		return types.VideoNone
	}
	return sampler.Mode()
}

// Disconnect tears the session down in dependency order and fires
// OnClose exactly once. Safe to call at any point, including during a
// pending Connect.
func (c *Controller) Disconnect() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.release()
	c.state.Set(StateClosed)
	if c.callbacks.OnClose != nil {
		c.callbacks.OnClose()
	}
	c.debug("SESSION", "disconnected")
}

// release stops media flow and closes the transport and sink. Upstream
// capture goes first so nothing writes to a closing socket.
func (c *Controller) release() {
	c.mu.Lock()
	preview := c.preview
	sampler := c.sampler
	capture := c.capture
	vad := c.vad
	scheduler := c.scheduler
	session := c.session
	c.mu.Unlock()

	if preview != nil {
		preview.Stop()
	}
	if sampler != nil {
		sampler.Stop()
	}
	if capture != nil {
		_ = capture.Stop()
	}
	if vad != nil {
		vad.Reset()
	}
	if scheduler != nil {
		scheduler.InterruptAll()
	}
	if session != nil {
		_ = session.Close()
	}
	if scheduler != nil {
		_ = scheduler.Close()
	}
	c.connected.Store(false)
}

func (c *Controller) normalizeConfig() error {
	if c.cfg.Model == "" {
		c.cfg.Model = DefaultModel
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = DefaultBaseURL
	}
	if c.cfg.Voice == "" {
		c.cfg.Voice = types.DefaultVoice
	}
	if !c.cfg.Voice.Valid() {
		return core.NewValidationErrorWithParam("voice is not a known preset", "voice")
	}
	if c.cfg.APIKey == "" {
		return core.NewValidationErrorWithParam("api key is required", "api_key")
	}
	return nil
}

func (c *Controller) buildSetup() *protocol.Setup {
	directive := ComposeSystemDirective(c.cfg.Settings, c.cfg.Context)
	return &protocol.Setup{
		Model: "models/" + c.cfg.Model,
		GenerationConfig: protocol.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
						VoiceName: string(c.cfg.Voice),
					},
				},
			},
		},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: directive}},
		},
		// The search tool must stay a separate entry from the function
		// declarations or the endpoint errors out.
		Tools: []*genai.Tool{
			protocol.WorkspaceTool(),
			protocol.SearchTool(),
		},
	}
}

// onFrame handles one 16 kHz microphone frame.
func (c *Controller) onFrame(frame []float32) {
	if c.closed.Load() {
		return
	}

	if c.muted.Load() {
		// Metering only. The silence timer is left untouched so mute
		// has no turn-taking side effects.
		c.emitStats(Stats{Latency: c.state.Latency()})
		return
	}

	c.mu.Lock()
	vad := c.vad
	session := c.session
	c.mu.Unlock()
	if vad == nil || session == nil {
		return
	}

	sample := vad.Process(frame)
	c.emitStats(Stats{
		Latency: c.state.Latency(),
		Speech:  sample.Speech,
		Volume:  sample.Volume,
	})

	// Resumed speech cancels a pending response handoff, but barge-in
	// during playback or a tool call is arbitrated by the server.
	if sample.Speech && c.state.State() == StateThinking {
		c.state.Set(StateListening)
	}

	if err := session.SendMedia(protocol.Blob{
		MIMEType: protocol.AudioInMIMEType,
		Data:     audio.EncodeChunk(frame),
	}); err != nil {
		c.debug("AUDIO", "frame dropped: "+err.Error())
	}
}

// onSilence fires when the VAD debounce expires.
func (c *Controller) onSilence() {
	if c.closed.Load() {
		return
	}
	if c.state.State() == StateListening {
		c.state.Set(StateThinking)
	}
}

// onPlaybackDrained fires when the last scheduled chunk finishes.
func (c *Controller) onPlaybackDrained() {
	if c.closed.Load() {
		return
	}
	if c.state.State() == StateSpeaking {
		c.state.Set(StateListening)
	}
}

func (c *Controller) readLoop(session realtimeChannel) {
	for msg := range session.Events() {
		if c.closed.Load() {
			return
		}
		c.handleServerMessage(session, msg)
	}

	if c.closed.Load() {
		return
	}
	if err := session.Err(); err != nil {
		// Stop capture and playback but leave closed unset so a fresh
		// Connect can recover the controller.
		c.release()
		c.state.Set(StateError)
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(err)
		}
		return
	}
	// Remote hangup without error counts as a clean close.
	if c.closed.CompareAndSwap(false, true) {
		c.release()
		c.state.Set(StateClosed)
		if c.callbacks.OnClose != nil {
			c.callbacks.OnClose()
		}
	}
}

func (c *Controller) handleServerMessage(session realtimeChannel, msg *protocol.ServerMessage) {
	c.mu.Lock()
	scheduler := c.scheduler
	dispatcher := c.dispatcher
	vad := c.vad
	c.mu.Unlock()

	if msg.ToolCall != nil {
		c.state.Set(StateSearching)
		responses := dispatcher.Dispatch(msg.ToolCall)
		if err := session.SendToolResponse(responses); err != nil {
			c.debug("TOOL", "ack dropped: "+err.Error())
		}
		return
	}

	if msg.Interrupted() {
		// Barge-in: kill playback now, keep the socket alive.
		scheduler.InterruptAll()
		vad.Reset()
		c.state.Set(StateListening)
		return
	}

	for _, data := range msg.AudioData() {
		pcm, err := audio.DecodeChunk(data)
		if err != nil {
			c.debug("AUDIO", "bad chunk: "+err.Error())
			continue
		}
		if latency := c.state.MarkFirstAudio(); latency > 0 {
			c.debug("SESSION", "response latency "+latency.String())
		}
		c.state.Set(StateSpeaking)
		if _, err := scheduler.Enqueue(pcm); err != nil {
			c.debug("AUDIO", "enqueue failed: "+err.Error())
		}
	}

	if msg.TurnComplete() && !scheduler.Active() {
		// Turn ended with nothing left to play (or nothing was ever
		// sent); hand the floor back.
		c.state.Set(StateListening)
	}
}

func (c *Controller) fail(err error) error {
	c.state.Set(StateError)
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
	return err
}

func (c *Controller) emitStats(stats Stats) {
	if c.callbacks.OnStats != nil {
		c.callbacks.OnStats(stats)
	}
}

func (c *Controller) debug(category, message string) {
	c.logger.Debug(message, "category", category)
}
