package live

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gtistudio/voicelive/pkg/core"
	"github.com/gtistudio/voicelive/pkg/core/live/protocol"
)

const bidiPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Session is a live websocket connection to the realtime endpoint.
// Writes are serialized behind a mutex; inbound frames are decoded by
// a read loop and delivered on a buffered channel that closes when the
// connection ends.
type Session struct {
	conn *websocket.Conn

	events chan *protocol.ServerMessage
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Dial connects, sends the setup frame, and waits for the endpoint to
// confirm it before returning a live session.
func Dial(ctx context.Context, cfg SessionConfig, setup *protocol.Setup) (*Session, error) {
	wsURL, err := endpointURL(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}
	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &core.TransportError{Op: "dial", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &core.TransportError{Op: "dial", URL: wsURL, Err: err}
	}

	if err := conn.WriteJSON(protocol.ClientMessage{Setup: setup}); err != nil {
		_ = conn.Close()
		return nil, &core.TransportError{Op: "setup", URL: wsURL, Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, &core.TransportError{Op: "setup", URL: wsURL, Err: fmt.Errorf("read setup confirmation: %w", err)}
	}
	_ = conn.SetReadDeadline(time.Time{})

	first, err := protocol.Decode(payload)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if first.SetupComplete == nil {
		_ = conn.Close()
		return nil, core.NewAPIError("endpoint rejected session setup")
	}

	s := &Session{
		conn:   conn,
		events: make(chan *protocol.ServerMessage, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func endpointURL(cfg SessionConfig) (string, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", core.NewValidationErrorWithParam("invalid base URL", "base_url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", core.NewValidationErrorWithParam("base URL must use http(s) or ws(s)", "base_url")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + bidiPath
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Events yields decoded server frames. The channel closes when the
// connection ends.
func (s *Session) Events() <-chan *protocol.ServerMessage {
	if s == nil {
		return nil
	}
	return s.events
}

// SendMedia streams media chunks into the session.
func (s *Session) SendMedia(chunks ...protocol.Blob) error {
	return s.sendJSON(protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{MediaChunks: chunks},
	})
}

// SendText streams a text input into the session.
func (s *Session) SendText(text string) error {
	return s.sendJSON(protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{Text: text},
	})
}

// SendToolResponse acknowledges function calls.
func (s *Session) SendToolResponse(responses []protocol.FunctionResponse) error {
	return s.sendJSON(protocol.ClientMessage{
		ToolResponse: &protocol.ToolResponse{FunctionResponses: responses},
	})
}

func (s *Session) sendJSON(v any) error {
	if s == nil {
		return core.NewValidationError("session must not be nil")
	}
	if s.closed.Load() {
		return core.NewValidationError("session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the websocket session and waits for the read loop to
// exit. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any, after the read loop
// has exited.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.setErr(err)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			s.setErr(err)
			return
		}
		s.emit(msg)
	}
}

func (s *Session) emit(msg *protocol.ServerMessage) {
	select {
	case s.events <- msg:
	default:
		// Avoid deadlocking the read loop if the consumer stalls.
	}
}
