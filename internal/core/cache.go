package core

import (
	"sync"
	"time"

	"github.com/copperline/deskchat/internal/api"
)

// entry is a cached message list for one conversation.
type entry struct {
	messages  []api.Message
	fetchedAt time.Time
	stale     bool

	// issued is the issue-order sequence counter for fetches against this
	// conversation; applied is the sequence of the last fetch whose result
	// was written. A completing fetch older than applied is discarded, so a
	// slow response can never overwrite a newer one.
	issued  uint64
	applied uint64
}

// Cache is the per-conversation message store. Entries for different
// conversations never interact.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	staleness time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewCache creates a cache with the given staleness and retention windows.
func NewCache(staleness, retention time.Duration) *Cache {
	return &Cache{
		entries:   make(map[string]*entry),
		staleness: staleness,
		retention: retention,
		now:       time.Now,
	}
}

func (c *Cache) get(conversationID string) *entry {
	e, ok := c.entries[conversationID]
	if !ok {
		e = &entry{}
		c.entries[conversationID] = e
	}
	return e
}

// Snapshot returns a copy of the cached messages for a conversation and
// whether an entry exists.
func (c *Cache) Snapshot(conversationID string) ([]api.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]api.Message, len(e.messages))
	copy(out, e.messages)
	return out, true
}

// Fresh reports whether a non-forced load may skip the network: an entry
// exists, is not marked stale, and its last fetch is within the staleness
// window.
func (c *Cache) Fresh(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	if !ok || e.stale || e.fetchedAt.IsZero() {
		return false
	}
	return c.now().Sub(e.fetchedAt) < c.staleness
}

// BeginFetch stamps a new fetch with its issue-order sequence. The returned
// sequence must be passed to ApplyFetch with the result.
func (c *Cache) BeginFetch(conversationID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.get(conversationID)
	e.issued++
	return e.issued
}

// ApplyFetch replaces the entry wholesale with the fetched messages
// (last-writer-wins by completion order, guarded by issue order). Returns
// false if a newer fetch has already been applied, in which case the result
// is discarded.
func (c *Cache) ApplyFetch(conversationID string, seq uint64, messages []api.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.get(conversationID)
	if seq < e.applied {
		return false
	}
	e.applied = seq
	e.messages = make([]api.Message, len(messages))
	copy(e.messages, messages)
	e.fetchedAt = c.now()
	e.stale = false
	return true
}

// AppendOptimistic appends locally synthesized messages to the entry,
// preserving existing order. The entry is created if missing.
func (c *Cache) AppendOptimistic(conversationID string, messages ...api.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.get(conversationID)
	e.messages = append(e.messages, messages...)
}

// MarkStale flags the entry so the next non-forced load goes to the network.
func (c *Cache) MarkStale(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[conversationID]; ok {
		e.stale = true
	}
}

// Evict removes a conversation's entry.
func (c *Cache) Evict(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, conversationID)
}

// EvictExpired removes entries past the retention window, except the active
// conversation's.
func (c *Cache) EvictExpired(activeConversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.retention)
	for id, e := range c.entries {
		if id == activeConversationID {
			continue
		}
		if !e.fetchedAt.IsZero() && e.fetchedAt.Before(cutoff) {
			delete(c.entries, id)
		}
	}
}

// Len returns the number of cached conversations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
