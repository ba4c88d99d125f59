package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/copperline/deskchat/internal/api"
)

// Engine wires the cache, fetcher, sender, reconciler, and busy aggregation
// behind one facade and tracks which conversation is mounted.
type Engine struct {
	cache      *Cache
	fetcher    *Fetcher
	sender     *Sender
	reconciler *Reconciler
	busy       *BusyAggregator
	bus        *EventBus

	mu     sync.Mutex
	active string
}

// NewEngine assembles an engine over the given backend.
func NewEngine(backend Backend, bus *EventBus, staleness, retention, reconcileDelay time.Duration) *Engine {
	cache := NewCache(staleness, retention)
	fetcher := NewFetcher(backend, cache)
	reconciler := NewReconciler(cache, fetcher, bus, reconcileDelay)
	sender := NewSender(backend, cache, reconciler, bus)

	return &Engine{
		cache:      cache,
		fetcher:    fetcher,
		sender:     sender,
		reconciler: reconciler,
		busy:       NewBusyAggregator(fetcher, sender),
		bus:        bus,
	}
}

// Mount makes a conversation active: pending reconciles for the previous
// conversation are cancelled, expired cache entries are evicted, and the
// history is force-fetched regardless of freshness to correct for
// cross-session drift. Mounting the empty id just unmounts.
func (e *Engine) Mount(ctx context.Context, conversationID string) ([]api.Message, error) {
	e.mu.Lock()
	prev := e.active
	e.active = conversationID
	e.mu.Unlock()

	if prev != "" && prev != conversationID {
		e.reconciler.Cancel(prev)
	}
	if conversationID == "" {
		return nil, nil
	}

	e.cache.EvictExpired(conversationID)

	messages, err := e.fetcher.Load(ctx, conversationID, true)
	if err != nil {
		e.reportFetchFailure(conversationID, "mount", err)
		// Whatever is cached stays visible
		cached, _ := e.cache.Snapshot(conversationID)
		return cached, err
	}

	return messages, nil
}

// reportFetchFailure surfaces a failed history load as a retryable toast.
// Every fetch path reports the same way so a failed retry is as visible as
// the failed mount that preceded it.
func (e *Engine) reportFetchFailure(conversationID, op string, err error) {
	log.Warn().Err(err).Str("conversation", conversationID).Str("op", op).Msg("history fetch failed")
	e.bus.Publish(Event{
		Type:           EventToast,
		ConversationID: conversationID,
		Data:           ToastData{Level: ToastError, Text: "Could not load conversation", Retryable: true},
	})
}

// Active returns the mounted conversation id, empty if none.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Messages returns the rendered message list for a conversation.
func (e *Engine) Messages(conversationID string) []api.Message {
	messages, _ := e.cache.Snapshot(conversationID)
	return messages
}

// Refresh re-runs a non-forced load, used by periodic refreshes.
func (e *Engine) Refresh(ctx context.Context, conversationID string) ([]api.Message, error) {
	messages, err := e.fetcher.Load(ctx, conversationID, false)
	if err != nil {
		e.reportFetchFailure(conversationID, "refresh", err)
	}
	return messages, err
}

// Retry force-fetches after a failed load. A failed retry reports through
// the same toast path as the failed mount, so the user is never left without
// feedback after pressing retry.
func (e *Engine) Retry(ctx context.Context, conversationID string) ([]api.Message, error) {
	messages, err := e.fetcher.Load(ctx, conversationID, true)
	if err != nil {
		e.reportFetchFailure(conversationID, "retry", err)
	}
	return messages, err
}

// Send submits text to the active conversation.
func (e *Engine) Send(ctx context.Context, conversationID, text string) error {
	return e.sender.Send(ctx, conversationID, text)
}

// CreateConversation starts a new conversation from a first message and
// mounts it.
func (e *Engine) CreateConversation(ctx context.Context, text string) (string, error) {
	id, err := e.sender.CreateConversation(ctx, text)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	prev := e.active
	e.active = id
	e.mu.Unlock()

	// Same as a mount switch: a reconcile armed for the previous conversation
	// must not fire once it is no longer the active one.
	if prev != "" && prev != id {
		e.reconciler.Cancel(prev)
	}
	return id, nil
}

// Working reports the single busy indicator for a conversation.
func (e *Engine) Working(conversationID string) bool {
	return e.busy.Working(conversationID)
}

// SendDisabled reports whether the submit control should be disabled for the
// conversation (a send is already outstanding).
func (e *Engine) SendDisabled(conversationID string) bool {
	return e.sender.InFlight(conversationID)
}

// Shutdown cancels all pending reconciles.
func (e *Engine) Shutdown() {
	e.reconciler.CancelAll()
}
