package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/copperline/deskchat/internal/constants"
	"github.com/copperline/deskchat/internal/core"
)

// Toast is the transient notification surface for fetch, send, and voice
// errors.
type Toast struct {
	level     core.ToastLevel
	text      string
	retryable bool
	shownAt   time.Time
}

// toastExpiredMsg clears a toast after its display window.
type toastExpiredMsg struct {
	shownAt time.Time
}

// show replaces the current toast and schedules its expiry.
func (t *Toast) show(level core.ToastLevel, text string, retryable bool) tea.Cmd {
	now := time.Now()
	t.level = level
	t.text = text
	t.retryable = retryable
	t.shownAt = now

	return tea.Tick(constants.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{shownAt: now}
	})
}

// expire clears the toast if the expiry matches the one still showing.
func (t *Toast) expire(msg toastExpiredMsg) {
	if msg.shownAt.Equal(t.shownAt) {
		t.text = ""
		t.retryable = false
	}
}

// visible reports whether a toast is showing.
func (t *Toast) visible() bool {
	return t.text != ""
}

// View renders the toast line.
func (t *Toast) View() string {
	if !t.visible() {
		return ""
	}

	text := t.text
	if t.retryable {
		text += "  (ctrl+r to retry)"
	}

	switch t.level {
	case core.ToastError:
		return toastErrorStyle.Render(text)
	case core.ToastWarn:
		return toastWarnStyle.Render(text)
	default:
		return toastInfoStyle.Render(text)
	}
}
