package core

import (
	"testing"
	"time"

	"github.com/copperline/deskchat/internal/api"
)

func msg(id string, role api.Role, content string) api.Message {
	return api.Message{ID: id, Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

func TestCacheSnapshotCopies(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	seq := c.BeginFetch("c1")
	c.ApplyFetch("c1", seq, []api.Message{msg("m1", api.RoleUser, "hello")})

	snap, ok := c.Snapshot("c1")
	if !ok {
		t.Fatal("expected cache entry for c1")
	}
	snap[0].Content = "mutated"

	snap2, _ := c.Snapshot("c1")
	if snap2[0].Content != "hello" {
		t.Errorf("snapshot mutation leaked into cache: %q", snap2[0].Content)
	}
}

func TestCacheFreshWithinStalenessWindow(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	now := time.Now()
	c.now = func() time.Time { return now }

	seq := c.BeginFetch("c1")
	c.ApplyFetch("c1", seq, nil)

	if !c.Fresh("c1") {
		t.Error("entry should be fresh immediately after fetch")
	}

	now = now.Add(9 * time.Second)
	if !c.Fresh("c1") {
		t.Error("entry should be fresh inside the staleness window")
	}

	now = now.Add(2 * time.Second)
	if c.Fresh("c1") {
		t.Error("entry should not be fresh past the staleness window")
	}
}

func TestCacheMarkStaleOverridesFreshness(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	seq := c.BeginFetch("c1")
	c.ApplyFetch("c1", seq, nil)
	c.MarkStale("c1")

	if c.Fresh("c1") {
		t.Error("a stale-marked entry must not be considered fresh")
	}
}

func TestCacheMissingEntryNotFresh(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	if c.Fresh("nope") {
		t.Error("missing entry reported fresh")
	}
	if _, ok := c.Snapshot("nope"); ok {
		t.Error("missing entry reported present")
	}
}

// A fetch issued earlier but completing later must not overwrite the result
// of a newer fetch.
func TestCacheStaleFetchCannotOverwriteNewer(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	oldSeq := c.BeginFetch("c1")
	newSeq := c.BeginFetch("c1")

	if !c.ApplyFetch("c1", newSeq, []api.Message{msg("m2", api.RoleAssistant, "new")}) {
		t.Fatal("newer fetch should apply")
	}
	if c.ApplyFetch("c1", oldSeq, []api.Message{msg("m1", api.RoleUser, "old")}) {
		t.Fatal("older fetch should be rejected")
	}

	snap, _ := c.Snapshot("c1")
	if len(snap) != 1 || snap[0].ID != "m2" {
		t.Errorf("expected newer fetch result to survive, got %+v", snap)
	}
}

func TestCacheAppendOptimisticPreservesOrder(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	seq := c.BeginFetch("c1")
	c.ApplyFetch("c1", seq, []api.Message{msg("m1", api.RoleUser, "first")})

	c.AppendOptimistic("c1", msg("local-1", api.RoleUser, "second"))
	c.AppendOptimistic("c1", msg("local-2", api.RoleAssistant, "third"))

	snap, _ := c.Snapshot("c1")
	if len(snap) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(snap))
	}
	for i, want := range []string{"m1", "local-1", "local-2"} {
		if snap[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, snap[i].ID)
		}
	}
}

func TestCacheWholesaleReplaceSupersedesOptimistic(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	c.AppendOptimistic("c1", msg("local-1", api.RoleUser, "hello"))
	c.AppendOptimistic("c1", msg("local-2", api.RoleAssistant, "hi"))

	seq := c.BeginFetch("c1")
	confirmed := []api.Message{
		msg("m1", api.RoleUser, "hello"),
		msg("m2", api.RoleAssistant, "hi"),
	}
	c.ApplyFetch("c1", seq, confirmed)

	snap, _ := c.Snapshot("c1")
	if len(snap) != 2 {
		t.Fatalf("expected 2 confirmed messages, got %d", len(snap))
	}
	if snap[0].ID != "m1" || snap[1].ID != "m2" {
		t.Errorf("optimistic entries survived the wholesale replace: %+v", snap)
	}
}

func TestCacheEntriesIndependent(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	seq := c.BeginFetch("c1")
	c.ApplyFetch("c1", seq, []api.Message{msg("m1", api.RoleUser, "one")})
	c.AppendOptimistic("c2", msg("local-1", api.RoleUser, "two"))

	c.Evict("c1")

	if _, ok := c.Snapshot("c1"); ok {
		t.Error("c1 should be evicted")
	}
	if _, ok := c.Snapshot("c2"); !ok {
		t.Error("c2 should be unaffected by c1's eviction")
	}
}

func TestCacheEvictExpiredKeepsActive(t *testing.T) {
	c := NewCache(10*time.Second, 120*time.Second)

	now := time.Now()
	c.now = func() time.Time { return now }

	for _, id := range []string{"active", "old"} {
		seq := c.BeginFetch(id)
		c.ApplyFetch(id, seq, nil)
	}

	now = now.Add(121 * time.Second)
	c.EvictExpired("active")

	if _, ok := c.Snapshot("active"); !ok {
		t.Error("active conversation must survive eviction")
	}
	if _, ok := c.Snapshot("old"); ok {
		t.Error("expired inactive conversation should be evicted")
	}
}
