package broadcast

import (
	"testing"

	"go.uber.org/goleak"
)

func TestFollower_Pending(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := New()
	f := bus.Follow("user:a", CartUpdated)
	defer f.Close()

	if f.Pending() {
		t.Fatal("Pending() = true before any publish")
	}

	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated})
	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated})
	bus.Publish(Event{Audience: "user:a", Kind: WishlistUpdated})
	bus.Publish(Event{Audience: "user:b", Kind: CartUpdated})

	if !f.Pending() {
		t.Error("Pending() = false after a cart event")
	}
	if f.Pending() {
		t.Error("Pending() = true after draining")
	}
}

func TestFollower_Move(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := New()
	f := bus.Follow("guest:s1")
	defer f.Close()

	bus.Publish(Event{Audience: "guest:s1", Kind: CartUpdated})
	f.Move("user:a")

	if got := f.Audience(); got != "user:a" {
		t.Errorf("Audience() = %s, want user:a", got)
	}
	if f.Pending() {
		t.Error("events from the old audience survived Move")
	}
	if n := bus.Subscribers("guest:s1"); n != 0 {
		t.Errorf("old audience still has %d subscribers", n)
	}

	bus.Publish(Event{Audience: "user:a", Kind: WishlistUpdated})
	if !f.Pending() {
		t.Error("Pending() = false after event on new audience")
	}

	f.Move("user:a")
	if n := bus.Subscribers("user:a"); n != 1 {
		t.Errorf("Subscribers = %d after same-audience Move, want 1", n)
	}
}

func TestFollower_Close(t *testing.T) {
	bus := New()
	f := bus.Follow("user:a")
	f.Close()
	f.Close()

	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated})
	if f.Pending() {
		t.Error("closed follower received an event")
	}
	if n := bus.Subscribers("user:a"); n != 0 {
		t.Errorf("Subscribers = %d after Close, want 0", n)
	}
}
