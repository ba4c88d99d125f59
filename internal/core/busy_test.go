package core

import (
	"context"
	"testing"
	"time"
)

// IsWorking is OR over its three inputs; the user sees one indicator, not
// which step is running.
func TestIsWorkingTruthTable(t *testing.T) {
	cases := []struct {
		fetch, send, processing bool
		want                    bool
	}{
		{false, false, false, false},
		{true, false, false, true},
		{false, true, false, true},
		{false, false, true, true},
		{true, true, false, true},
		{true, false, true, true},
		{false, true, true, true},
		{true, true, true, true},
	}

	for _, tc := range cases {
		if got := IsWorking(tc.fetch, tc.send, tc.processing); got != tc.want {
			t.Errorf("IsWorking(%v, %v, %v) = %v, want %v",
				tc.fetch, tc.send, tc.processing, got, tc.want)
		}
	}
}

func TestAggregatorTracksSendInFlight(t *testing.T) {
	backend := NewMockBackend("Hi")
	cache := NewCache(10*time.Second, 120*time.Second)
	fetcher := NewFetcher(backend, cache)
	bus := NewEventBus(100)
	defer bus.Close()
	reconciler := NewReconciler(cache, fetcher, bus, time.Hour)
	defer reconciler.CancelAll()
	sender := NewSender(backend, cache, reconciler, bus)
	busy := NewBusyAggregator(fetcher, sender)

	if busy.Working("c1") {
		t.Error("nothing started, should be idle")
	}

	started := backend.BlockSends()
	done := make(chan error, 1)
	go func() {
		done <- sender.Send(context.Background(), "c1", "Hello")
	}()
	<-started

	if !busy.Working("c1") {
		t.Error("busy should report true while a send is in flight")
	}
	if busy.Working("c2") {
		t.Error("busy is per conversation; c2 is idle")
	}

	backend.ReleaseSend()
	if err := <-done; err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if busy.Working("c1") {
		t.Error("busy should clear once the send completes")
	}
}
