// Package core implements the conversation synchronization engine: the
// message cache, history fetcher, optimistic sender, reconciler, and busy
// state aggregation that keep the local view of a conversation correct under
// network latency and failure.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/copperline/deskchat/internal/api"
)

// ErrNoConversation is returned when an operation requires an active
// conversation and none is selected.
var ErrNoConversation = errors.New("no active conversation")

// ErrSendInFlight is returned when a send is already outstanding for the
// conversation. Callers driving a disabled submit control treat it as a no-op.
var ErrSendInFlight = errors.New("send already in flight")

// Backend is the subset of the portal API the engine consumes.
type Backend interface {
	ListMessages(ctx context.Context, conversationID string) ([]api.Message, error)
	SendMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error)
	CreateConversation(ctx context.Context, req api.CreateRequest) (*api.CreateResponse, error)
}

// EventType identifies the type of event.
type EventType string

const (
	EventToast                EventType = "toast"
	EventConversationAdvanced EventType = "conversation_advanced"
	EventMessagesRefreshed    EventType = "messages_refreshed"
	EventSendFailed           EventType = "send_failed"
)

// ToastLevel classifies a transient notification.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastWarn  ToastLevel = "warn"
	ToastError ToastLevel = "error"
)

// Event represents something that happened in the engine.
type Event struct {
	Type           EventType
	ConversationID string
	Data           interface{}
	Timestamp      time.Time
}

// ToastData carries a transient user-facing notification.
type ToastData struct {
	Level     ToastLevel
	Text      string
	Retryable bool // fetch failures offer a retry affordance
}

// SendFailedData carries the draft to restore after a failed send.
type SendFailedData struct {
	Draft string
	Err   error
}
