package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/copperline/deskchat/internal/constants"
)

// Composer wraps the message input. It holds the draft the sender clears on
// submit and restores on failure.
type Composer struct {
	textInput textinput.Model
}

// NewComposer creates the composer input.
func NewComposer() Composer {
	ti := textinput.New()
	ti.Placeholder = "Ask the assistant..."
	ti.CharLimit = constants.ComposerCharLimit
	ti.Width = 60
	ti.Prompt = "> "

	return Composer{textInput: ti}
}

// Focus gives the composer keyboard focus.
func (c *Composer) Focus() tea.Cmd {
	return c.textInput.Focus()
}

// Blur removes keyboard focus.
func (c *Composer) Blur() {
	c.textInput.Blur()
}

// Focused reports whether the composer has focus.
func (c *Composer) Focused() bool {
	return c.textInput.Focused()
}

// Value returns the current draft.
func (c *Composer) Value() string {
	return c.textInput.Value()
}

// SetValue replaces the draft (voice transcript append, failure rollback,
// draft restore on conversation switch).
func (c *Composer) SetValue(text string) {
	c.textInput.SetValue(text)
	c.textInput.CursorEnd()
}

// Clear empties the composer. Done synchronously on submit so the next
// keystroke never concatenates with the in-flight text.
func (c *Composer) Clear() {
	c.textInput.Reset()
}

// SetWidth resizes the input.
func (c *Composer) SetWidth(width int) {
	c.textInput.Width = width
}

// Update forwards messages to the underlying input.
func (c Composer) Update(msg tea.Msg) (Composer, tea.Cmd) {
	var cmd tea.Cmd
	c.textInput, cmd = c.textInput.Update(msg)
	return c, cmd
}

// View renders the composer.
func (c Composer) View() string {
	return c.textInput.View()
}
