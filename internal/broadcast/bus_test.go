package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestBus_DeliversToAudience(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New()
	defer bus.Close()

	a1 := bus.Subscribe("user:a")
	a2 := bus.Subscribe("user:a")
	b := bus.Subscribe("user:b")
	defer a1.Close()
	defer a2.Close()
	defer b.Close()

	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated})

	for i, s := range []*Subscription{a1, a2} {
		events := s.Drain()
		if len(events) != 1 || events[0].Kind != CartUpdated {
			t.Errorf("sub %d events = %+v, want one cart.updated", i, events)
		}
		if events[0].At.IsZero() {
			t.Errorf("sub %d event missing timestamp", i)
		}
	}
	if events := b.Drain(); len(events) != 0 {
		t.Errorf("other audience got %+v", events)
	}
}

func TestBus_PublishNeverBlocksAndCoalesces(t *testing.T) {
	bus := New()
	s := bus.Subscribe("guest:s1")
	defer s.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Audience: "guest:s1", Kind: CartUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on an unread subscription")
	}

	events, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1 coalesced", len(events))
	}
}

func TestBus_KindsAreNotSwallowed(t *testing.T) {
	bus := New()
	s := bus.Subscribe("user:a")
	defer s.Close()

	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated, At: time.Unix(1, 0)})
	bus.Publish(Event{Audience: "user:a", Kind: WishlistUpdated, At: time.Unix(2, 0)})

	events, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != CartUpdated || events[1].Kind != WishlistUpdated {
		t.Errorf("order = %s, %s", events[0].Kind, events[1].Kind)
	}
}

func TestBus_KindFilter(t *testing.T) {
	bus := New()
	s := bus.Subscribe("user:a", WishlistUpdated)
	defer s.Close()

	bus.Publish(Event{Audience: "user:a", Kind: CartUpdated})
	if events := s.Drain(); len(events) != 0 {
		t.Errorf("filtered kind delivered: %+v", events)
	}

	bus.Publish(Event{Audience: "user:a", Kind: WishlistUpdated})
	if events := s.Drain(); len(events) != 1 {
		t.Errorf("wanted kind not delivered: %+v", events)
	}
}

func TestSubscription_NextWakesOnPublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New()
	s := bus.Subscribe("user:a")
	defer s.Close()

	got := make(chan []Event, 1)
	go func() {
		events, _ := s.Next(context.Background())
		got <- events
	}()

	bus.Publish(Event{Audience: "user:a", Kind: WishlistUpdated})

	select {
	case events := <-got:
		if len(events) != 1 || events[0].Kind != WishlistUpdated {
			t.Errorf("events = %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not wake")
	}
}

func TestSubscription_CloseUnblocksNext(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New()
	s := bus.Subscribe("user:a")

	errc := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errc <- err
	}()

	s.Close()
	s.Close() // idempotent

	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Errorf("Next err = %v, want ErrClosed", err)
	}
	if n := bus.Subscribers("user:a"); n != 0 {
		t.Errorf("Subscribers = %d after Close, want 0", n)
	}
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	bus := New()
	s := bus.Subscribe("user:a")
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestBus_CloseEndsAllSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New()
	subs := []*Subscription{bus.Subscribe("a"), bus.Subscribe("b")}

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			<-s.Done()
		}(s)
	}

	bus.Close()
	wg.Wait()

	late := bus.Subscribe("a")
	select {
	case <-late.Done():
	default:
		t.Error("subscribing to a closed bus should yield a closed subscription")
	}
	bus.Publish(Event{Audience: "a", Kind: CartUpdated})
	if events := late.Drain(); len(events) != 0 {
		t.Errorf("closed bus delivered %+v", events)
	}
}
