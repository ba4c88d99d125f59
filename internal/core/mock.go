package core

import (
	"context"
	"sync"

	"github.com/copperline/deskchat/internal/api"
)

// MockBackend is a scripted backend for tests.
type MockBackend struct {
	mu sync.Mutex

	messages  map[string][]api.Message
	listErrs  map[string][]error // errors to return before succeeding, consumed in order
	sendErr   error
	createErr error
	sendText  string // assistant reply for sends
	createID  string // id assigned to created conversations

	listCalls   map[string]int
	sendCalls   int
	createCalls int

	// sendStarted/sendRelease gate a send mid-flight for concurrency tests.
	sendStarted chan struct{}
	sendRelease chan struct{}
}

// NewMockBackend creates a mock with the given assistant reply.
func NewMockBackend(sendText string) *MockBackend {
	return &MockBackend{
		messages:  make(map[string][]api.Message),
		listErrs:  make(map[string][]error),
		sendText:  sendText,
		createID:  "conv-new",
		listCalls: make(map[string]int),
	}
}

// SetMessages sets the scripted history for a conversation.
func (m *MockBackend) SetMessages(conversationID string, messages []api.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[conversationID] = messages
}

// QueueListError queues an error for the next ListMessages call on the
// conversation. Queued errors are consumed before successes.
func (m *MockBackend) QueueListError(conversationID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrs[conversationID] = append(m.listErrs[conversationID], err)
}

// WithSendError makes every SendMessage call fail.
func (m *MockBackend) WithSendError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
	return m
}

// WithCreateError makes every CreateConversation call fail.
func (m *MockBackend) WithCreateError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
	return m
}

// BlockSends makes SendMessage block until ReleaseSend is called, signalling
// on the returned channel when a send has started.
func (m *MockBackend) BlockSends() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendStarted = make(chan struct{}, 8)
	m.sendRelease = make(chan struct{})
	return m.sendStarted
}

// ReleaseSend unblocks all blocked sends.
func (m *MockBackend) ReleaseSend() {
	m.mu.Lock()
	release := m.sendRelease
	m.sendRelease = nil
	m.mu.Unlock()
	if release != nil {
		close(release)
	}
}

// ListMessages returns the scripted history, consuming queued errors first.
func (m *MockBackend) ListMessages(ctx context.Context, conversationID string) ([]api.Message, error) {
	m.mu.Lock()
	m.listCalls[conversationID]++
	if errs := m.listErrs[conversationID]; len(errs) > 0 {
		err := errs[0]
		m.listErrs[conversationID] = errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	messages := make([]api.Message, len(m.messages[conversationID]))
	copy(messages, m.messages[conversationID])
	m.mu.Unlock()
	return messages, nil
}

// SendMessage records the send and returns the scripted reply.
func (m *MockBackend) SendMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error) {
	m.mu.Lock()
	m.sendCalls++
	started := m.sendStarted
	release := m.sendRelease
	err := m.sendErr
	text := m.sendText
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return &api.SendResponse{Response: text}, nil
}

// CreateConversation returns the scripted conversation id and reply.
func (m *MockBackend) CreateConversation(ctx context.Context, req api.CreateRequest) (*api.CreateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &api.CreateResponse{ConversationID: m.createID, Response: m.sendText}, nil
}

// ListCalls returns how many times ListMessages ran for a conversation.
func (m *MockBackend) ListCalls(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls[conversationID]
}

// SendCalls returns how many times SendMessage ran.
func (m *MockBackend) SendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalls
}
