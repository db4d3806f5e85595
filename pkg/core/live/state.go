package live

import (
	"sync"
	"time"
)

// SessionState represents the current state of the live session.
type SessionState int

const (
	// StateConnecting is the initial state while resources are acquired.
	StateConnecting SessionState = iota
	// StateListening is when the microphone is live and VAD is active.
	StateListening
	// StateThinking is when the user stopped talking and the model is
	// composing a response.
	StateThinking
	// StateSpeaking is when synthesized audio is being played.
	StateSpeaking
	// StateSearching is when a tool call is in flight.
	StateSearching
	// StateError is a terminal failure state; only closed may follow.
	StateError
	// StateClosed is when the session has been torn down.
	StateClosed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateSearching:
		return "searching"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateMachine tracks the session state and measures response latency
// from the moment the user yields the floor to the first synthesized
// audio chunk.
type StateMachine struct {
	mu            sync.Mutex
	state         SessionState
	thinkingStart time.Time
	latency       time.Duration
	onChange      func(from, to SessionState)

	now func() time.Time
}

// NewStateMachine creates a state machine in the connecting state.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		state: StateConnecting,
		now:   time.Now,
	}
}

// SetOnChange sets the callback fired on every actual transition.
func (m *StateMachine) SetOnChange(fn func(from, to SessionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns the current state.
func (m *StateMachine) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Set transitions to the given state. Re-entrant transitions are
// no-ops so repeated silence timers cannot restart the thinking clock.
// Closed is terminal, and error admits only closed.
func (m *StateMachine) Set(to SessionState) bool {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return false
	}
	if from == StateClosed {
		m.mu.Unlock()
		return false
	}
	if from == StateError && to != StateClosed {
		m.mu.Unlock()
		return false
	}
	m.state = to
	if to == StateThinking {
		m.thinkingStart = m.now()
	}
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(from, to)
	}
	return true
}

// Reset returns the machine to connecting so a fresh connection
// attempt can start over after a failure. Closed stays terminal.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	from := m.state
	if from == StateClosed || from == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.thinkingStart = time.Time{}
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(from, StateConnecting)
	}
}

// MarkFirstAudio records the arrival of the first audio chunk of a
// response and returns the measured latency. Returns zero when no
// thinking timestamp was armed, which happens when audio follows a
// tool call directly.
func (m *StateMachine) MarkFirstAudio() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.thinkingStart.IsZero() {
		return 0
	}
	m.latency = m.now().Sub(m.thinkingStart)
	m.thinkingStart = time.Time{}
	return m.latency
}

// Latency returns the most recently measured response latency.
func (m *StateMachine) Latency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latency
}
