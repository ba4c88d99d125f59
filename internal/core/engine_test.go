package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/copperline/deskchat/internal/api"
	"github.com/copperline/deskchat/internal/constants"
)

func setupEngineTest(t *testing.T, backend *MockBackend) (*Engine, *EventBus) {
	t.Helper()

	bus := NewEventBus(100)
	engine := NewEngine(backend, bus, 10*time.Second, 120*time.Second, 30*time.Millisecond)

	t.Cleanup(func() {
		engine.Shutdown()
		bus.Close()
	})
	return engine, bus
}

// Full send/reconcile round trip: an empty conversation receives "Hello",
// renders the optimistic turn immediately, and converges on the confirmed
// entries once the reconcile refetch lands.
func TestSendThenReconcileScenario(t *testing.T) {
	backend := NewMockBackend("Hi there")
	engine, _ := setupEngineTest(t, backend)

	messages, err := engine.Mount(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %+v", messages)
	}

	if err := engine.Send(context.Background(), "c1", "Hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	// Immediately after: optimistic user + assistant entries, in order.
	rendered := engine.Messages("c1")
	if len(rendered) != 2 {
		t.Fatalf("expected 2 optimistic messages, got %d", len(rendered))
	}
	if rendered[0].Role != api.RoleUser || rendered[0].Content != "Hello" {
		t.Errorf("unexpected first message: %+v", rendered[0])
	}
	if rendered[1].Role != api.RoleAssistant || rendered[1].Content != "Hi there" {
		t.Errorf("unexpected second message: %+v", rendered[1])
	}
	for _, m := range rendered {
		if !strings.HasPrefix(m.ID, constants.OptimisticIDPrefix) {
			t.Errorf("expected optimistic id, got %q", m.ID)
		}
	}

	// The backend has now persisted the turn with its own ids.
	t1 := time.Now().UTC()
	backend.SetMessages("c1", []api.Message{
		{ID: "m1", Role: api.RoleUser, Content: "Hello", CreatedAt: t1},
		{ID: "m2", Role: api.RoleAssistant, Content: "Hi there", CreatedAt: t1.Add(time.Second)},
	})

	waitFor(t, "reconciled view", func() bool {
		got := engine.Messages("c1")
		return len(got) == 2 && got[0].ID == "m1" && got[1].ID == "m2"
	})

	// No optimistic entries survive the wholesale replace.
	for _, m := range engine.Messages("c1") {
		if strings.HasPrefix(m.ID, constants.OptimisticIDPrefix) {
			t.Errorf("optimistic entry %q survived reconciliation", m.ID)
		}
	}
}

// Send failure scenario: nothing is appended and the draft comes back to the
// caller for restore.
func TestSendFailureScenario(t *testing.T) {
	backend := NewMockBackend("")
	engine, bus := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	events := bus.Subscribe()
	backend.WithSendError(&api.SendError{Status: 500, Detail: "boom"})

	if err := engine.Send(context.Background(), "c1", "Hello"); err == nil {
		t.Fatal("Send() should fail")
	}

	if got := engine.Messages("c1"); len(got) != 0 {
		t.Errorf("failed send appended messages: %+v", got)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == EventSendFailed {
				if draft := ev.Data.(SendFailedData).Draft; draft != "Hello" {
					t.Errorf("draft restore mismatch: %q", draft)
				}
				return
			}
		case <-deadline:
			t.Fatal("no EventSendFailed published")
		}
	}
}

// Switching conversations cancels the pending reconcile for the previous
// one.
func TestMountCancelsPendingReconcile(t *testing.T) {
	backend := NewMockBackend("Hi")
	engine, _ := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount(c1) error: %v", err)
	}
	if err := engine.Send(context.Background(), "c1", "Hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !engine.reconciler.Pending("c1") {
		t.Fatal("reconcile should be pending after send")
	}

	listCallsBefore := backend.ListCalls("c1")
	if _, err := engine.Mount(context.Background(), "c2"); err != nil {
		t.Fatalf("Mount(c2) error: %v", err)
	}
	if engine.reconciler.Pending("c1") {
		t.Error("switching away should cancel c1's pending reconcile")
	}

	time.Sleep(80 * time.Millisecond)
	if calls := backend.ListCalls("c1"); calls != listCallsBefore {
		t.Errorf("cancelled reconcile still refetched c1 (%d -> %d)", listCallsBefore, calls)
	}

	// The optimistic view for c1 stays as it was, untouched.
	snap := engine.Messages("c1")
	if len(snap) != 2 {
		t.Errorf("c1's cache entry changed after switch: %+v", snap)
	}
}

// A mount fetch failure keeps whatever was cached and reports the error with
// a retry affordance.
func TestMountFailureKeepsCacheAndOffersRetry(t *testing.T) {
	backend := NewMockBackend("Hi")
	backend.SetMessages("c1", []api.Message{msg("m1", api.RoleUser, "old")})
	engine, bus := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	events := bus.Subscribe()
	backend.QueueListError("c1", &api.FetchError{Status: 502})
	backend.QueueListError("c1", &api.FetchError{Status: 502})

	cached, err := engine.Mount(context.Background(), "c1")
	if err == nil {
		t.Fatal("Mount() should surface the fetch error")
	}
	if len(cached) != 1 || cached[0].ID != "m1" {
		t.Errorf("stale data should remain visible, got %+v", cached)
	}

	select {
	case ev := <-events:
		if ev.Type != EventToast {
			t.Fatalf("expected toast event, got %+v", ev)
		}
		data := ev.Data.(ToastData)
		if !data.Retryable {
			t.Error("fetch failure toast should carry the retry affordance")
		}
	case <-time.After(time.Second):
		t.Fatal("no toast published")
	}

	// Retry recovers.
	recovered, err := engine.Retry(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if len(recovered) != 1 {
		t.Errorf("retry should reload history, got %+v", recovered)
	}
}

// A failed retry is as visible as the failed mount before it: the same
// retryable toast comes back so the user is never left guessing.
func TestRetryFailurePublishesToast(t *testing.T) {
	backend := NewMockBackend("Hi")
	engine, bus := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}

	events := bus.Subscribe()
	backend.QueueListError("c1", &api.FetchError{Status: 502})
	backend.QueueListError("c1", &api.FetchError{Status: 502})

	if _, err := engine.Retry(context.Background(), "c1"); err == nil {
		t.Fatal("Retry() should surface the fetch error")
	}

	select {
	case ev := <-events:
		if ev.Type != EventToast {
			t.Fatalf("expected toast event, got %+v", ev)
		}
		data := ev.Data.(ToastData)
		if !data.Retryable {
			t.Error("retry failure toast should carry the retry affordance")
		}
	case <-time.After(time.Second):
		t.Fatal("no toast published for the failed retry")
	}
}

// Mounting the empty id unmounts and the engine goes inert.
func TestUnmount(t *testing.T) {
	backend := NewMockBackend("Hi")
	engine, _ := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	messages, err := engine.Mount(context.Background(), "")
	if err != nil {
		t.Fatalf("unmount error: %v", err)
	}
	if messages != nil {
		t.Errorf("unmount should return nil, got %+v", messages)
	}
	if engine.Active() != "" {
		t.Errorf("expected no active conversation, got %q", engine.Active())
	}
}

// Unmounting (switching to no conversation at all) cancels the pending
// reconcile just like switching to another conversation does.
func TestUnmountCancelsPendingReconcile(t *testing.T) {
	backend := NewMockBackend("Hi")
	engine, _ := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount(c1) error: %v", err)
	}
	if err := engine.Send(context.Background(), "c1", "Hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !engine.reconciler.Pending("c1") {
		t.Fatal("reconcile should be pending after send")
	}

	listCallsBefore := backend.ListCalls("c1")
	if _, err := engine.Mount(context.Background(), ""); err != nil {
		t.Fatalf("unmount error: %v", err)
	}
	if engine.reconciler.Pending("c1") {
		t.Error("unmounting should cancel c1's pending reconcile")
	}

	time.Sleep(80 * time.Millisecond)
	if calls := backend.ListCalls("c1"); calls != listCallsBefore {
		t.Errorf("cancelled reconcile still refetched c1 (%d -> %d)", listCallsBefore, calls)
	}
}

// Creating a new conversation switches away from the previous one and must
// cancel its pending reconcile, same as a mount switch.
func TestCreateConversationCancelsPreviousReconcile(t *testing.T) {
	backend := NewMockBackend("Hi")
	engine, _ := setupEngineTest(t, backend)

	if _, err := engine.Mount(context.Background(), "c1"); err != nil {
		t.Fatalf("Mount(c1) error: %v", err)
	}
	if err := engine.Send(context.Background(), "c1", "Hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !engine.reconciler.Pending("c1") {
		t.Fatal("reconcile should be pending after send")
	}

	listCallsBefore := backend.ListCalls("c1")
	id, err := engine.CreateConversation(context.Background(), "First")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	if engine.Active() != id {
		t.Fatalf("new conversation should be active, got %q", engine.Active())
	}
	if engine.reconciler.Pending("c1") {
		t.Error("creating a conversation should cancel c1's pending reconcile")
	}

	time.Sleep(80 * time.Millisecond)
	if calls := backend.ListCalls("c1"); calls != listCallsBefore {
		t.Errorf("cancelled reconcile still refetched c1 (%d -> %d)", listCallsBefore, calls)
	}
}

func TestCreateConversationBecomesActive(t *testing.T) {
	backend := NewMockBackend("Welcome")
	engine, _ := setupEngineTest(t, backend)

	id, err := engine.CreateConversation(context.Background(), "First")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	if engine.Active() != id {
		t.Errorf("new conversation should be active, got %q", engine.Active())
	}
	if got := engine.Messages(id); len(got) != 2 {
		t.Errorf("expected optimistic turn, got %+v", got)
	}
}
