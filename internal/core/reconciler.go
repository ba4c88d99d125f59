package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/copperline/deskchat/internal/constants"
)

// Reconciler replaces optimistic messages with server-confirmed ones. After
// a successful send it waits a short delay (so the backend's persistence has
// caught up), marks the conversation stale, and forces a refetch. The refetch
// replaces the entry wholesale, so no duplicate or orphaned optimistic
// message can survive it.
type Reconciler struct {
	mu      sync.Mutex
	cache   *Cache
	fetcher *Fetcher
	bus     *EventBus
	delay   time.Duration
	timers  map[string]*time.Timer
}

// NewReconciler creates a reconciler with the given delay.
func NewReconciler(cache *Cache, fetcher *Fetcher, bus *EventBus, delay time.Duration) *Reconciler {
	return &Reconciler{
		cache:   cache,
		fetcher: fetcher,
		bus:     bus,
		delay:   delay,
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule queues a reconcile for the conversation. A pending reconcile for
// the same conversation is replaced, not duplicated.
func (r *Reconciler) Schedule(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[conversationID]; ok {
		t.Stop()
	}
	r.timers[conversationID] = time.AfterFunc(r.delay, func() {
		r.run(conversationID)
	})
}

// Cancel drops any pending reconcile for the conversation. Called on
// conversation switch so a reconcile never fires for a conversation that is
// no longer mounted.
func (r *Reconciler) Cancel(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[conversationID]; ok {
		t.Stop()
		delete(r.timers, conversationID)
	}
}

// CancelAll drops every pending reconcile. Called on shutdown.
func (r *Reconciler) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// Pending reports whether a reconcile is queued for the conversation.
func (r *Reconciler) Pending(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.timers[conversationID]
	return ok
}

func (r *Reconciler) run(conversationID string) {
	r.mu.Lock()
	delete(r.timers, conversationID)
	r.mu.Unlock()

	r.cache.MarkStale(conversationID)

	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	if _, err := r.fetcher.Load(ctx, conversationID, true); err != nil {
		// Optimistic messages stay visible; the next load will converge.
		log.Warn().Err(err).Str("conversation", conversationID).Msg("reconcile refetch failed")
		return
	}

	r.bus.Publish(Event{Type: EventMessagesRefreshed, ConversationID: conversationID})
}
