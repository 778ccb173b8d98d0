package main

import (
	"encoding/json"
	"testing"
)

func TestEventBusScopedDelivery(t *testing.T) {
	t.Parallel()
	bus := NewEventBus()

	ch, cancel := bus.Subscribe(boardKey(1, "2024-01-01"))
	defer cancel()
	other, cancelOther := bus.Subscribe(boardKey(2, "2024-01-01"))
	defer cancelOther()

	bus.Publish(Event{Type: "habit.moved", Entity: "habit", UserID: 1, Date: "2024-01-01"})

	select {
	case raw := <-ch:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != "habit.moved" {
			t.Fatalf("type = %q", ev.Type)
		}
	default:
		t.Fatal("subscriber got nothing")
	}

	select {
	case <-other:
		t.Fatal("event leaked to another user's board")
	default:
	}
}

func TestEventBusDropsWhenSlow(t *testing.T) {
	t.Parallel()
	bus := NewEventBus()

	ch, cancel := bus.Subscribe(boardKey(1, "2024-01-01"))
	defer cancel()

	// Fill the buffer and keep publishing; slow consumers lose events
	// rather than blocking the publisher.
	for i := 0; i < cap(ch)+10; i++ {
		bus.Publish(Event{Type: "note.saved", UserID: 1, Date: "2024-01-01"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffered = %d, want %d", len(ch), cap(ch))
	}
}
