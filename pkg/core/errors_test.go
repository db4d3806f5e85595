package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := NewDeviceError("microphone unavailable")
	if got := err.Error(); got != "device_error: microphone unavailable" {
		t.Errorf("unexpected error string: %q", got)
	}

	withCode := &Error{Type: ErrAPI, Message: "setup rejected", Code: "1007"}
	if got := withCode.Error(); got != "api_error: setup rejected (code: 1007)" {
		t.Errorf("unexpected error string: %q", got)
	}
}

func TestValidationErrorParam(t *testing.T) {
	err := NewValidationErrorWithParam("voice is not a known preset", "voice")
	if err.Type != ErrValidation {
		t.Errorf("expected validation type, got %s", err.Type)
	}
	if err.Param != "voice" {
		t.Errorf("expected param voice, got %q", err.Param)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &TransportError{Op: "dial", URL: "wss://example.com/ws", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestTransportErrorRedactsURL(t *testing.T) {
	err := &TransportError{
		Op:  "dial",
		URL: "wss://example.com/ws?key=secret-api-key",
		Err: fmt.Errorf("timeout"),
	}
	msg := err.Error()
	if strings.Contains(msg, "secret-api-key") {
		t.Errorf("error string leaks credentials: %q", msg)
	}
	if !strings.Contains(msg, "wss://example.com/ws") {
		t.Errorf("error string lost the endpoint: %q", msg)
	}
}
