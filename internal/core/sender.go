package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/copperline/deskchat/internal/api"
	"github.com/copperline/deskchat/internal/constants"
)

// Sender submits composer text to the backend, renders it optimistically,
// and reconciles or rolls back when the request completes.
type Sender struct {
	mu         sync.Mutex
	backend    Backend
	cache      *Cache
	reconciler *Reconciler
	bus        *EventBus
	inFlight   map[string]bool
	processing map[string]bool
}

// NewSender creates a message sender.
func NewSender(backend Backend, cache *Cache, reconciler *Reconciler, bus *EventBus) *Sender {
	return &Sender{
		backend:    backend,
		cache:      cache,
		reconciler: reconciler,
		bus:        bus,
		inFlight:   make(map[string]bool),
		processing: make(map[string]bool),
	}
}

// Send submits text to an existing conversation. At most one send may be
// outstanding per conversation; a second call returns ErrSendInFlight, which
// a disabled submit control treats as a no-op. On success one optimistic
// user message and one optimistic assistant message are appended to the
// cache and a reconcile is scheduled. On failure nothing is appended and an
// EventSendFailed carrying the verbatim draft is published so the composer
// can be restored.
func (s *Sender) Send(ctx context.Context, conversationID, text string) error {
	if conversationID == "" {
		return ErrNoConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Single-flight: claim the conversation before any suspension point.
	s.mu.Lock()
	if s.inFlight[conversationID] {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.inFlight[conversationID] = true
	s.processing[conversationID] = true
	s.mu.Unlock()

	req := api.SendRequest{
		Message:        text,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
		RequestID:      uuid.New().String(),
	}

	log.Debug().Str("conversation", conversationID).Str("request_id", req.RequestID).Msg("sending message")

	resp, err := s.backend.SendMessage(ctx, req)

	s.mu.Lock()
	delete(s.inFlight, conversationID)
	delete(s.processing, conversationID)
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("send failed")
		s.bus.Publish(Event{
			Type:           EventSendFailed,
			ConversationID: conversationID,
			Data:           SendFailedData{Draft: text, Err: err},
		})
		s.bus.Publish(Event{
			Type:           EventToast,
			ConversationID: conversationID,
			Data:           ToastData{Level: ToastError, Text: "Message not sent: " + userFacing(err)},
		})
		return err
	}

	s.appendOptimisticTurn(conversationID, text, resp.Text())
	s.reconciler.Schedule(conversationID)
	s.bus.Publish(Event{Type: EventConversationAdvanced, ConversationID: conversationID})

	return nil
}

// CreateConversation starts a new conversation from a first message. Used
// when no conversation is active; Send only ever operates on an existing
// conversation id.
func (s *Sender) CreateConversation(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoConversation
	}

	req := api.CreateRequest{
		Message:   text,
		Timestamp: time.Now().UTC(),
		RequestID: uuid.New().String(),
	}

	resp, err := s.backend.CreateConversation(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("conversation creation failed")
		s.bus.Publish(Event{
			Type: EventSendFailed,
			Data: SendFailedData{Draft: text, Err: err},
		})
		s.bus.Publish(Event{
			Type: EventToast,
			Data: ToastData{Level: ToastError, Text: "Could not start conversation: " + userFacing(err)},
		})
		return "", err
	}

	s.appendOptimisticTurn(resp.ConversationID, text, resp.Response)
	s.reconciler.Schedule(resp.ConversationID)
	s.bus.Publish(Event{Type: EventConversationAdvanced, ConversationID: resp.ConversationID})

	return resp.ConversationID, nil
}

// appendOptimisticTurn writes the user message and the assistant reply into
// the cache with locally generated ids, to render before the next confirmed
// fetch supersedes them.
func (s *Sender) appendOptimisticTurn(conversationID, userText, assistantText string) {
	now := time.Now().UTC()
	s.cache.AppendOptimistic(conversationID,
		api.Message{
			ID:        constants.OptimisticIDPrefix + uuid.New().String(),
			Role:      api.RoleUser,
			Content:   userText,
			CreatedAt: now,
		},
		api.Message{
			ID:        constants.OptimisticIDPrefix + uuid.New().String(),
			Role:      api.RoleAssistant,
			Content:   assistantText,
			CreatedAt: now,
		},
	)
}

// InFlight reports whether a send is outstanding for the conversation.
func (s *Sender) InFlight(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight[conversationID]
}

// Processing reports the narrow window between submit and completion,
// covering the gap before the in-flight flag is observable elsewhere.
func (s *Sender) Processing(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.processing[conversationID]
}

// userFacing extracts the server-provided text from a send error, falling
// back to the error string.
func userFacing(err error) string {
	var sendErr *api.SendError
	if errors.As(err, &sendErr) && sendErr.Detail != "" {
		return sendErr.Detail
	}
	return err.Error()
}
