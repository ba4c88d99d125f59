package core

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus(100)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(Event{Type: EventConversationAdvanced, ConversationID: "c1"})

	select {
	case ev := <-ch:
		if ev.Type != EventConversationAdvanced || ev.ConversationID != "c1" {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("publish should stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(100)
	defer bus.Close()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Publish(Event{Type: EventToast})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(100)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	// Channel is closed on unsubscribe
	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}
}

func TestBusFullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus(100)
	defer bus.Close()

	bus.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(Event{Type: EventToast})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
