// Package broadcast fans cart and wishlist change notifications out to
// every view of the same visitor.
//
// Events carry no state. A receiver re-queries its manager, so coalescing
// several pending events of one kind into one loses nothing.
package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Kind names what changed.
type Kind string

const (
	CartUpdated     Kind = "cart.updated"
	WishlistUpdated Kind = "wishlist.updated"
)

// ErrClosed is returned by Next once the subscription or bus is closed.
var ErrClosed = errors.New("broadcast: subscription closed")

// Event is one change notification.
type Event struct {
	Audience string    `json:"audience"`
	Kind     Kind      `json:"kind"`
	At       time.Time `json:"at"`
}

// Bus is an in-process publish/subscribe hub keyed by audience.
// The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// New creates an open bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers for events addressed to audience. With no kinds,
// every kind is delivered. Subscribing to a closed bus yields a closed
// subscription.
func (b *Bus) Subscribe(audience string, kinds ...Kind) *Subscription {
	s := &Subscription{
		bus:      b,
		audience: audience,
		pending:  make(map[Kind]Event),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.closeOnce.Do(func() { close(s.done) })
		return s
	}
	set, ok := b.subs[audience]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[audience] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers ev to every subscriber of ev.Audience. It never blocks.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs[ev.Audience] {
		s.deliver(ev)
	}
}

// Subscribers returns how many subscriptions audience has.
func (b *Bus) Subscribers(audience string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[audience])
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*Subscription]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.closeOnce.Do(func() { close(s.done) })
		}
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[s.audience]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.audience)
		}
	}
}

// Subscription is one view's inbox.
type Subscription struct {
	bus      *Bus
	audience string
	kinds    map[Kind]bool

	mu      sync.Mutex
	pending map[Kind]Event

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) deliver(ev Event) {
	if s.kinds != nil && !s.kinds[ev.Kind] {
		return
	}
	s.mu.Lock()
	s.pending[ev.Kind] = ev
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
		// A signal is already pending; the receiver will see this event
		// when it drains.
	}
}

// Audience returns the audience this subscription listens to.
func (s *Subscription) Audience() string { return s.audience }

// Ready fires when at least one event is pending.
func (s *Subscription) Ready() <-chan struct{} { return s.signal }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Drain removes and returns pending events, one per kind, oldest first.
func (s *Subscription) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	events := make([]Event, 0, len(s.pending))
	for k, ev := range s.pending {
		events = append(events, ev)
		delete(s.pending, k)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].At.Equal(events[j].At) {
			return events[i].Kind < events[j].Kind
		}
		return events[i].At.Before(events[j].At)
	})
	return events
}

// Next blocks until events are pending, the context ends, or the
// subscription closes.
func (s *Subscription) Next(ctx context.Context) ([]Event, error) {
	for {
		if events := s.Drain(); len(events) > 0 {
			return events, nil
		}
		select {
		case <-s.signal:
		case <-s.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
	s.closeOnce.Do(func() { close(s.done) })
}
