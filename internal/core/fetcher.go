package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/copperline/deskchat/internal/api"
	"github.com/copperline/deskchat/internal/constants"
)

// Fetcher loads conversation histories from the backend into the cache.
type Fetcher struct {
	mu      sync.Mutex
	backend Backend
	cache   *Cache
	loading map[string]int // per-conversation count of loads in flight
}

// NewFetcher creates a history fetcher over the given backend and cache.
func NewFetcher(backend Backend, cache *Cache) *Fetcher {
	return &Fetcher{
		backend: backend,
		cache:   cache,
		loading: make(map[string]int),
	}
}

// Load fetches a conversation's message history. A non-forced load with a
// fresh cache entry skips the network and returns the cached messages; a
// forced load (conversation mount, reconciliation) always hits the backend
// to correct for cross-session drift. Failures are retried once before an
// *api.FetchError surfaces; the cache is left untouched on failure so stale
// data stays visible.
func (f *Fetcher) Load(ctx context.Context, conversationID string, force bool) ([]api.Message, error) {
	if conversationID == "" {
		// No conversation selected; the engine is inert.
		return nil, nil
	}

	if !force && f.cache.Fresh(conversationID) {
		messages, _ := f.cache.Snapshot(conversationID)
		log.Debug().Str("conversation", conversationID).Msg("history fresh, skipping fetch")
		return messages, nil
	}

	seq := f.cache.BeginFetch(conversationID)
	f.setLoading(conversationID, +1)
	defer f.setLoading(conversationID, -1)

	var (
		messages []api.Message
		err      error
	)
	for attempt := 0; attempt <= constants.FetchRetryBudget; attempt++ {
		messages, err = f.backend.ListMessages(ctx, conversationID)
		if err == nil {
			break
		}
		log.Warn().Err(err).Str("conversation", conversationID).Int("attempt", attempt+1).Msg("history fetch failed")
	}
	if err != nil {
		return nil, err
	}

	if !f.cache.ApplyFetch(conversationID, seq, messages) {
		// A newer fetch won the race; its result is what renders.
		log.Debug().Str("conversation", conversationID).Uint64("seq", seq).Msg("discarding superseded fetch result")
		messages, _ = f.cache.Snapshot(conversationID)
	}

	return messages, nil
}

// Loading reports whether a load is in flight for the conversation.
func (f *Fetcher) Loading(conversationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.loading[conversationID] > 0
}

func (f *Fetcher) setLoading(conversationID string, delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loading[conversationID] += delta
	if f.loading[conversationID] <= 0 {
		delete(f.loading, conversationID)
	}
}
