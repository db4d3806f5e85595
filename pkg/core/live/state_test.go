package live

import (
	"testing"
	"time"
)

func TestStateStrings(t *testing.T) {
	cases := map[SessionState]string{
		StateConnecting: "connecting",
		StateListening:  "listening",
		StateThinking:   "thinking",
		StateSpeaking:   "speaking",
		StateSearching:  "searching",
		StateError:      "error",
		StateClosed:     "closed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestSetFiresCallbackOnChange(t *testing.T) {
	m := NewStateMachine()
	var transitions [][2]SessionState
	m.SetOnChange(func(from, to SessionState) {
		transitions = append(transitions, [2]SessionState{from, to})
	})

	if !m.Set(StateListening) {
		t.Fatal("connecting to listening should transition")
	}
	if m.Set(StateListening) {
		t.Fatal("re-entrant transition should be a no-op")
	}
	if len(transitions) != 1 {
		t.Fatalf("expected 1 callback, got %d", len(transitions))
	}
	if transitions[0] != [2]SessionState{StateConnecting, StateListening} {
		t.Errorf("unexpected transition %v", transitions[0])
	}
}

func TestClosedIsTerminal(t *testing.T) {
	m := NewStateMachine()
	m.Set(StateClosed)
	if m.Set(StateListening) {
		t.Error("closed should reject further transitions")
	}
	if m.State() != StateClosed {
		t.Errorf("state = %s, want closed", m.State())
	}
}

func TestErrorAdmitsOnlyClosed(t *testing.T) {
	m := NewStateMachine()
	m.Set(StateError)
	if m.Set(StateListening) {
		t.Error("error should reject listening")
	}
	if !m.Set(StateClosed) {
		t.Error("error should admit closed")
	}
}

func TestResetReturnsToConnecting(t *testing.T) {
	m := NewStateMachine()
	m.Set(StateListening)
	m.Set(StateError)

	m.Reset()
	if m.State() != StateConnecting {
		t.Fatalf("state = %s, want connecting", m.State())
	}
	if !m.Set(StateListening) {
		t.Error("reset machine should transition again")
	}

	m.Set(StateError)
	m.Set(StateClosed)
	m.Reset()
	if m.State() != StateClosed {
		t.Error("reset must not revive a closed machine")
	}
}

func TestLatencyMeasuredFromThinking(t *testing.T) {
	m := NewStateMachine()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m.now = func() time.Time { return current }

	m.Set(StateListening)
	m.Set(StateThinking)
	current = base.Add(320 * time.Millisecond)

	if got := m.MarkFirstAudio(); got != 320*time.Millisecond {
		t.Errorf("latency = %s, want 320ms", got)
	}
	if got := m.Latency(); got != 320*time.Millisecond {
		t.Errorf("stored latency = %s, want 320ms", got)
	}

	// A second chunk of the same response has no armed timestamp.
	if got := m.MarkFirstAudio(); got != 0 {
		t.Errorf("second mark = %s, want 0", got)
	}
}

func TestReEntrantThinkingKeepsOriginalClock(t *testing.T) {
	m := NewStateMachine()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m.now = func() time.Time { return current }

	m.Set(StateListening)
	m.Set(StateThinking)
	current = base.Add(100 * time.Millisecond)
	m.Set(StateThinking) // late silence timer, must not rearm
	current = base.Add(250 * time.Millisecond)

	if got := m.MarkFirstAudio(); got != 250*time.Millisecond {
		t.Errorf("latency = %s, want 250ms from first thinking entry", got)
	}
}
