// Package tui provides the terminal user interface for the Copperline
// assistant.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/copperline/deskchat/internal/api"
	"github.com/copperline/deskchat/internal/constants"
	"github.com/copperline/deskchat/internal/core"
	"github.com/copperline/deskchat/internal/store"
	"github.com/copperline/deskchat/internal/voice"
)

// Pane identifies which pane has keyboard focus.
type Pane int

const (
	PaneSidebar Pane = iota
	PaneComposer
)

const sidebarWidth = 26

// Model is the main TUI model.
type Model struct {
	engine  *core.Engine
	store   *store.Store
	backend *api.Client
	voice   *voice.Controller
	eventCh <-chan core.Event

	width  int
	height int
	pane   Pane

	conversations []*store.Conversation
	selectedIdx   int
	activeID      string
	messages      []api.Message

	viewport viewport.Model
	composer Composer
	spinner  spinner.Model
	toast    Toast

	creating bool
	quitting bool
}

// EventMsg wraps an engine event for the TUI.
type EventMsg struct {
	Event core.Event
}

type conversationsLoadedMsg struct {
	conversations []*store.Conversation
	err           error
}

type historyLoadedMsg struct {
	conversationID string
	messages       []api.Message
	err            error
}

type sendCompletedMsg struct {
	conversationID string
	draft          string
	err            error
}

type createCompletedMsg struct {
	conversationID string
	draft          string
	err            error
}

type voiceResultMsg struct {
	transcript string
	err        error
}

type autoSubmitMsg struct {
	token int
}

// New creates the TUI model.
func New(engine *core.Engine, s *store.Store, backend *api.Client, vc *voice.Controller, eventCh <-chan core.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorBrand)

	m := Model{
		engine:   engine,
		store:    s,
		backend:  backend,
		voice:    vc,
		eventCh:  eventCh,
		pane:     PaneComposer,
		viewport: viewport.New(0, 0),
		composer: NewComposer(),
		spinner:  sp,
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadConversations(),
		m.listenForEvents(),
		m.spinner.Tick,
		m.composer.Focus(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - sidebarWidth - 3
		m.viewport.Height = msg.Height - 6
		m.composer.SetWidth(msg.Width - 4)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationsLoadedMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Msg("conversation list load failed")
		}
		m.conversations = msg.conversations
		if m.selectedIdx >= len(m.conversations) {
			m.selectedIdx = 0
		}
		return m, nil

	case historyLoadedMsg:
		// Key everything by the id captured at request time, never by
		// whatever is active now.
		if msg.conversationID == m.activeID {
			m.messages = m.engine.Messages(msg.conversationID)
			m.refreshTranscript()
		}
		return m, nil

	case sendCompletedMsg:
		if msg.err != nil {
			// Rollback: the user keeps their draft, verbatim.
			m.composer.SetValue(msg.draft)
		}
		if msg.conversationID == m.activeID {
			m.messages = m.engine.Messages(msg.conversationID)
			m.refreshTranscript()
		}
		return m, nil

	case createCompletedMsg:
		m.creating = false
		if msg.err != nil {
			m.composer.SetValue(msg.draft)
			return m, nil
		}
		m.activeID = msg.conversationID
		m.messages = m.engine.Messages(msg.conversationID)
		m.refreshTranscript()
		return m, m.loadConversations()

	case EventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, m.listenForEvents())

	case voiceResultMsg:
		return m.handleVoiceResult(msg)

	case autoSubmitMsg:
		if m.voice.ShouldSubmit(msg.token) {
			return m.submit()
		}
		return m, nil

	case toastExpiredMsg:
		m.toast.expire(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.saveDraft()
		return m, tea.Quit

	case key.Matches(msg, keys.SwitchPane):
		if m.pane == PaneSidebar {
			m.pane = PaneComposer
			return m, m.composer.Focus()
		}
		m.pane = PaneSidebar
		m.composer.Blur()
		return m, nil

	case key.Matches(msg, keys.Retry):
		if m.activeID != "" {
			return m, m.retryFetch(m.activeID)
		}
		return m, nil

	case key.Matches(msg, keys.NewConv):
		m.saveDraft()
		m.mountConversation("")
		m.pane = PaneComposer
		return m, m.composer.Focus()

	case key.Matches(msg, keys.Voice):
		return m.startVoice()
	}

	if m.pane == PaneSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.selectedIdx < len(m.conversations)-1 {
			m.selectedIdx++
		}
		return m, nil

	case key.Matches(msg, keys.Open):
		if m.selectedIdx < len(m.conversations) {
			m.saveDraft()
			id := m.conversations[m.selectedIdx].ID
			cmd := m.mountConversation(id)
			m.pane = PaneComposer
			return m, tea.Batch(cmd, m.composer.Focus())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Submit) {
		return m.submit()
	}

	// Any manual edit inside the auto-submit window cancels the pending
	// submit; that window exists precisely to allow the edit.
	m.voice.Disarm()

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// submit sends the composer text. The composer is cleared synchronously so
// the user's next keystroke starts a fresh draft; on failure the draft is
// restored verbatim by sendCompletedMsg.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.composer.Value())
	if text == "" {
		return m, nil
	}

	if m.activeID == "" {
		// No conversation yet: the create-with-first-message path runs
		// instead of a plain send. Single-flight, same as sends; a second
		// submit while the create is outstanding would POST twice.
		if m.creating {
			return m, nil
		}
		m.creating = true
		m.composer.Clear()
		return m, m.createConversation(text)
	}

	if m.engine.SendDisabled(m.activeID) {
		// Single-flight: treated as a disabled control, not an error.
		return m, nil
	}

	m.composer.Clear()
	return m, m.sendMessage(m.activeID, text)
}

func (m *Model) handleEvent(event core.Event) tea.Cmd {
	switch event.Type {
	case core.EventToast:
		if data, ok := event.Data.(core.ToastData); ok {
			return m.toast.show(data.Level, data.Text, data.Retryable)
		}

	case core.EventConversationAdvanced:
		if err := m.store.TouchConversation(event.ConversationID); err != nil {
			log.Warn().Err(err).Msg("touch conversation failed")
		}
		if event.ConversationID == m.activeID {
			m.messages = m.engine.Messages(event.ConversationID)
			m.refreshTranscript()
		}
		return m.loadConversations()

	case core.EventMessagesRefreshed:
		if event.ConversationID == m.activeID {
			m.messages = m.engine.Messages(event.ConversationID)
			m.refreshTranscript()
		}
	}
	return nil
}

// startVoice begins a recognition session unless one is active or the
// capability is missing.
func (m Model) startVoice() (tea.Model, tea.Cmd) {
	if m.voice.State() == voice.StateUnavailable {
		return m, m.toast.show(core.ToastWarn, "Voice input is not available", false)
	}
	if !m.voice.Begin() {
		return m, nil
	}

	recognizer := m.voice.Recognizer()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		transcript, err := recognizer.Recognize(ctx)
		return voiceResultMsg{transcript: transcript, err: err}
	}
}

func (m Model) handleVoiceResult(msg voiceResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		hint := m.voice.OnError(msg.err)
		return m, m.toast.show(core.ToastWarn, hint, false)
	}
	if msg.transcript == "" {
		m.voice.OnEnd()
		return m, nil
	}

	newText, autoSubmit, token := m.voice.OnResult(m.composer.Value(), msg.transcript)
	m.composer.SetValue(newText)

	if !autoSubmit {
		return m, nil
	}
	return m, tea.Tick(m.voice.AutoSubmitDelay(), func(time.Time) tea.Msg {
		return autoSubmitMsg{token: token}
	})
}

// mountConversation switches the active conversation: the engine cancels
// pending reconciles and force-fetches, and the saved draft is restored.
func (m *Model) mountConversation(id string) tea.Cmd {
	m.activeID = id
	m.messages = m.engine.Messages(id)
	m.refreshTranscript()

	if draft, err := m.store.GetDraft(id); err == nil {
		m.composer.SetValue(draft)
	} else {
		m.composer.Clear()
	}

	if id == "" {
		// Unmount still goes through the engine so a reconcile armed for the
		// previous conversation is cancelled before it can fire.
		_, _ = m.engine.Mount(context.Background(), "")
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		messages, err := m.engine.Mount(ctx, id)
		return historyLoadedMsg{conversationID: id, messages: messages, err: err}
	}
}

func (m Model) sendMessage(id, text string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		err := engine.Send(ctx, id, text)
		return sendCompletedMsg{conversationID: id, draft: text, err: err}
	}
}

func (m Model) createConversation(text string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		id, err := engine.CreateConversation(ctx, text)
		return createCompletedMsg{conversationID: id, draft: text, err: err}
	}
}

func (m Model) retryFetch(id string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		messages, err := engine.Retry(ctx, id)
		return historyLoadedMsg{conversationID: id, messages: messages, err: err}
	}
}

// loadConversations syncs the backend list into the store and reads it back
// ordered by last activity. On backend failure the stored list still renders.
func (m Model) loadConversations() tea.Cmd {
	s := m.store
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()

		remote, err := backend.ListConversations(ctx)
		if err == nil {
			for _, c := range remote {
				if upsertErr := s.UpsertConversation(c.ID, c.Title, c.UpdatedAt); upsertErr != nil {
					log.Warn().Err(upsertErr).Str("conversation", c.ID).Msg("upsert conversation failed")
				}
			}
		}

		local, listErr := s.ListConversations()
		if listErr != nil {
			return conversationsLoadedMsg{err: listErr}
		}
		return conversationsLoadedMsg{conversations: local, err: err}
	}
}

// listenForEvents waits for the next engine event.
func (m Model) listenForEvents() tea.Cmd {
	eventCh := m.eventCh
	return func() tea.Msg {
		event, ok := <-eventCh
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

func (m *Model) saveDraft() {
	if m.activeID == "" {
		return
	}
	if err := m.store.SaveDraft(m.activeID, m.composer.Value()); err != nil {
		log.Warn().Err(err).Str("conversation", m.activeID).Msg("save draft failed")
	}
}

// refreshTranscript re-renders the message list into the viewport.
func (m *Model) refreshTranscript() {
	var b strings.Builder
	for _, msg := range m.messages {
		label := assistantLabelStyle.Render("Assistant")
		if msg.Role == api.RoleUser {
			label = userLabelStyle.Render("You")
		}
		stamp := statusStyle.Render(msg.CreatedAt.Local().Format("15:04"))
		b.WriteString(label + " " + stamp + "\n")

		content := msg.Content
		if strings.HasPrefix(msg.ID, constants.OptimisticIDPrefix) {
			content = pendingStyle.Render(content)
		}
		b.WriteString(content + "\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	header := titleStyle.Render("Copperline Assistant")
	if m.engine.Working(m.activeID) {
		header += "  " + m.spinner.View() + statusStyle.Render(" working")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.viewport.View())

	footer := composerStyle.Width(m.width - 2).Render(m.composer.View())

	lines := []string{header, body, footer}
	if m.toast.visible() {
		lines = append(lines, m.toast.View())
	}
	lines = append(lines, helpStyle.Render("tab: pane · enter: send · ctrl+o: voice · ctrl+n: new · ctrl+r: retry · ctrl+c: quit"))

	return strings.Join(lines, "\n")
}

func (m Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversations") + "\n")

	if len(m.conversations) == 0 {
		b.WriteString(sidebarItemStyle.Render("(none yet)") + "\n")
	}

	for i, c := range m.conversations {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		if len(title) > sidebarWidth-4 {
			title = title[:sidebarWidth-5] + "…"
		}

		line := fmt.Sprintf("  %s", title)
		style := sidebarItemStyle
		if m.pane == PaneSidebar && i == m.selectedIdx {
			line = fmt.Sprintf("> %s", title)
			style = sidebarSelectedStyle
		} else if c.ID == m.activeID {
			style = sidebarSelectedStyle
		}
		b.WriteString(style.Render(line) + "\n")
	}

	return sidebarStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(b.String())
}
