package broadcast

import "sync"

// Follower is a subscription whose audience can be moved, for state
// holders that check for changes on their next access instead of
// running a receive loop.
type Follower struct {
	bus   *Bus
	kinds []Kind

	mu  sync.Mutex
	sub *Subscription
}

// Follow subscribes to audience for kinds.
func (b *Bus) Follow(audience string, kinds ...Kind) *Follower {
	return &Follower{bus: b, kinds: kinds, sub: b.Subscribe(audience, kinds...)}
}

// Audience returns the audience currently followed.
func (f *Follower) Audience() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub.Audience()
}

// Move switches to audience. Events pending on the old audience are
// dropped. Moving to the current audience is a no-op.
func (f *Follower) Move(audience string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub.Audience() == audience {
		return
	}
	f.sub.Close()
	f.sub = f.bus.Subscribe(audience, f.kinds...)
}

// Pending drains the subscription and reports whether anything had
// arrived since the last call.
func (f *Follower) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sub.Drain()) > 0
}

// Close ends the subscription.
func (f *Follower) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub.Close()
}
