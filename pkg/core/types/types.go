// Package types holds the shared data model for voice sessions: chat
// messages carried as conversational context, workspace files produced
// by tool calls, and the preset enumerations the remote endpoint accepts.
package types

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single turn of conversational history.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// VirtualFile is a workspace document produced or updated by a tool call.
type VirtualFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// VoiceName selects one of the remote endpoint's prebuilt voices.
type VoiceName string

const (
	VoicePuck   VoiceName = "Puck"
	VoiceCharon VoiceName = "Charon"
	VoiceKore   VoiceName = "Kore"
	VoiceFenrir VoiceName = "Fenrir"
	VoiceAoede  VoiceName = "Aoede"
	VoiceZephyr VoiceName = "Zephyr"
)

// DefaultVoice is used when no voice is configured.
const DefaultVoice = VoiceZephyr

// VoicePresets lists the accepted prebuilt voices.
func VoicePresets() []VoiceName {
	return []VoiceName{
		VoicePuck,
		VoiceCharon,
		VoiceKore,
		VoiceFenrir,
		VoiceAoede,
		VoiceZephyr,
	}
}

// Valid reports whether the voice is a known preset.
func (v VoiceName) Valid() bool {
	for _, preset := range VoicePresets() {
		if v == preset {
			return true
		}
	}
	return false
}

// VideoMode selects the video channel source.
type VideoMode string

const (
	VideoNone   VideoMode = "none"
	VideoCamera VideoMode = "camera"
	VideoScreen VideoMode = "screen"
)

// UserSettings carries per-user customization applied to the session's
// system directive.
type UserSettings struct {
	CustomPrompt string `json:"custom_prompt,omitempty"`
}
