package live

import (
	"time"

	"github.com/gtistudio/voicelive/pkg/core/audio"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

const (
	// DefaultModel is the realtime native-audio model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultBaseURL is the public realtime endpoint. Override it to
	// ride a reverse proxy.
	DefaultBaseURL = "wss://generativelanguage.googleapis.com"

	defaultConnectTimeout = 15 * time.Second
)

// SessionConfig holds all configuration for a live voice session.
type SessionConfig struct {
	// Model is the realtime model to converse with.
	Model string `json:"model"`

	// BaseURL is the websocket endpoint base.
	BaseURL string `json:"base_url"`

	// APIKey authenticates the connection.
	APIKey string `json:"-"`

	// Voice selects the prebuilt voice. Default: Zephyr.
	Voice types.VoiceName `json:"voice"`

	// Settings carries per-user prompt customization.
	Settings types.UserSettings `json:"settings"`

	// Context is prior conversation history folded into the system
	// directive (last ContextTurns entries).
	Context []types.Message `json:"context,omitempty"`

	// AutoPreview sends a canned greeting shortly after connect so
	// the user hears the selected voice immediately.
	AutoPreview bool `json:"auto_preview"`

	// VAD configures voice activity detection.
	VAD audio.VADConfig `json:"vad"`

	// ConnectTimeout bounds the dial plus setup handshake.
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:          DefaultModel,
		BaseURL:        DefaultBaseURL,
		Voice:          types.DefaultVoice,
		AutoPreview:    true,
		VAD:            audio.DefaultVADConfig(),
		ConnectTimeout: defaultConnectTimeout,
	}
}

// Stats is a per-frame metering snapshot delivered to the host UI.
type Stats struct {
	// Latency is the last measured thinking-to-first-audio delay.
	Latency time.Duration `json:"latency"`

	// Speech reports whether the frame crossed the VAD threshold.
	Speech bool `json:"speech"`

	// Volume is the scaled input level, zero while muted.
	Volume float64 `json:"volume"`
}

// Callbacks are the host application's hooks into the session.
// All fields are optional. Callbacks are invoked from session
// goroutines and must not block.
type Callbacks struct {
	OnStateChange func(state SessionState)
	OnStats       func(stats Stats)
	OnToolCall    func(files []types.VirtualFile)
	OnError       func(err error)
	OnClose       func()
}
