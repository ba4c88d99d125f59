// Package voice models speech input as an explicit state machine around a
// pluggable recognizer, so transitions and their side effects (auto-submit
// heuristic, error mapping) are testable on their own.
package voice

import (
	"context"
	"fmt"
)

// State is the controller's current position in the recognition lifecycle.
type State string

const (
	// StateUnavailable means no recognizer exists in this environment.
	// Terminal for the session.
	StateUnavailable State = "unavailable"
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateError       State = "error"
)

// ErrorCode is the small fixed set of recognition error causes.
type ErrorCode string

const (
	ErrNotAllowed ErrorCode = "not-allowed"
	ErrNoSpeech   ErrorCode = "no-speech"
	ErrOther      ErrorCode = "other"
)

// RecognitionError is a failed recognition attempt.
type RecognitionError struct {
	Code ErrorCode
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("recognition failed (%s)", e.Code)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Recognizer runs one recognition session per invocation and yields a single
// final transcript (continuous=false, interimResults=false semantics).
type Recognizer interface {
	// Available reports whether recognition can run in this environment.
	Available() bool

	// Recognize blocks until one final transcript is produced or the
	// session fails. Failures are *RecognitionError.
	Recognize(ctx context.Context) (string, error)
}

// unsupported is the recognizer for environments with no speech capability.
type unsupported struct{}

func (unsupported) Available() bool { return false }

func (unsupported) Recognize(ctx context.Context) (string, error) {
	return "", &RecognitionError{Code: ErrOther, Err: fmt.Errorf("speech recognition not supported")}
}

// Unsupported returns a recognizer that pins the controller in the
// unavailable state.
func Unsupported() Recognizer {
	return unsupported{}
}

// Hint maps an error code to the human-readable message shown to the user.
func Hint(code ErrorCode) string {
	switch code {
	case ErrNotAllowed:
		return "Microphone access was denied. Check your audio permissions."
	case ErrNoSpeech:
		return "Didn't catch that. Try speaking again."
	default:
		return "Voice input failed. Try again or type your message."
	}
}
