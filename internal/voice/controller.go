package voice

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Controller is the tagged state machine over a Recognizer. The TUI drives
// it: Begin before launching a recognition session, then exactly one of
// OnResult, OnError, or OnEnd with the session's outcome.
//
// Only one session may be active at a time; Begin while listening is a
// no-op. Recognition errors park the controller in StateError; the next
// Begin starts a fresh session from there.
type Controller struct {
	mu         sync.Mutex
	state      State
	recognizer Recognizer
	delay      time.Duration
	lastHint   string
	armToken   int // increments whenever a pending auto-submit is invalidated
	armed      bool
}

// NewController creates a controller. An unavailable recognizer pins the
// state machine in StateUnavailable.
func NewController(recognizer Recognizer, autoSubmitDelay time.Duration) *Controller {
	state := StateIdle
	if recognizer == nil || !recognizer.Available() {
		state = StateUnavailable
	}
	return &Controller{
		state:      state,
		recognizer: recognizer,
		delay:      autoSubmitDelay,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recognizer returns the underlying recognizer for the caller to run.
func (c *Controller) Recognizer() Recognizer {
	return c.recognizer
}

// Begin transitions idle → listening. Returns false when no session should
// start: the capability is unavailable or a session is already active.
func (c *Controller) Begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle, StateError:
		// Starting a new session is how the user recovers from an error.
		c.state = StateListening
		return true
	case StateListening:
		// Guarded by UI disablement; a second start is a no-op.
		return false
	default:
		return false
	}
}

// OnResult handles a recognized utterance: listening → idle. The committed
// transcript is appended to the composer text, separated by a space when the
// composer was non-empty. A transcript ending in "?" or "." arms an
// auto-submit after the configured delay; the returned token identifies it
// so a later manual edit can disarm it.
func (c *Controller) OnResult(composerText, transcript string) (newText string, autoSubmit bool, token int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateIdle

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return composerText, false, 0
	}

	if composerText != "" {
		newText = composerText + " " + transcript
	} else {
		newText = transcript
	}

	if strings.HasSuffix(transcript, "?") || strings.HasSuffix(transcript, ".") {
		// Sentence-final punctuation is a "user finished" heuristic; the
		// delay leaves room for a manual edit to cancel the submit.
		c.armToken++
		c.armed = true
		log.Debug().Str("transcript", transcript).Msg("voice auto-submit armed")
		return newText, true, c.armToken
	}

	return newText, false, 0
}

// OnError handles a recognition failure: listening → error. Returns the
// human-readable hint to show. The controller stays in StateError until the
// next Begin, so the UI can render the failed session distinctly before the
// user re-initiates.
func (c *Controller) OnError(err error) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := ErrOther
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		code = recErr.Code
	}

	c.state = StateError
	c.lastHint = Hint(code)
	log.Debug().Err(err).Str("code", string(code)).Msg("voice recognition error")
	return c.lastHint
}

// OnEnd handles normal termination with no result: listening → idle.
func (c *Controller) OnEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
}

// AutoSubmitDelay returns how long to wait before firing an armed submit.
func (c *Controller) AutoSubmitDelay() time.Duration {
	return c.delay
}

// Disarm cancels any pending auto-submit. Called on every manual composer
// edit inside the delay window.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	c.armToken++
}

// ShouldSubmit reports whether the auto-submit identified by token is still
// armed, consuming it if so.
func (c *Controller) ShouldSubmit(token int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed || token != c.armToken {
		return false
	}
	c.armed = false
	return true
}

// LastHint returns the most recent error hint.
func (c *Controller) LastHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHint
}
