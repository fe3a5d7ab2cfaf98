package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/cart"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/localstore"
	"storefront-sync/internal/wishlist"
)

// DefaultTTL is how long an idle session stays in memory.
const DefaultTTL = 30 * time.Minute

// Options configures a Registry. Local is the shared guest store; each
// session sees its own namespace of it.
type Options struct {
	Remote       adapter.RemoteStore
	Local        localstore.Store
	Bus          *broadcast.Bus
	MergePolicy  cart.MergePolicy
	HydrateLimit int
	TTL          time.Duration
	Logger       *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Registry owns the live sessions.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{opts: opts, sessions: make(map[string]*Session)}
}

// Resolve returns the session for id, creating it when needed. An id that
// is not a UUID is replaced by a fresh one. A well-formed id that is not
// in memory (evicted, or from before a restart) is recreated under the
// same id, so a returning guest finds their stored cart again. An
// existing session is synced with changes other sessions of the same
// visitor made.
func (r *Registry) Resolve(ctx context.Context, id string) (s *Session, created bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession(id)
		r.sessions[id] = s
	}
	s.Touch(r.opts.Now())
	r.mu.Unlock()

	if !ok {
		s.Cart.Refresh(ctx)
		r.opts.Logger.Debug("session created", slog.String("session_id", id))
	} else {
		s.Sync(ctx)
	}
	return s, !ok
}

// Get returns a live session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. Guest carts stay in the local store.
func (r *Registry) Sweep() int {
	cutoff := r.opts.Now().Add(-r.opts.TTL)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, s)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.opts.Logger.Info("evicted idle sessions",
					slog.Int("evicted", n),
					slog.Int("live", r.Len()),
				)
			}
		}
	}
}

func (r *Registry) newSession(id string) *Session {
	logger := r.opts.Logger
	holder := identity.NewHolder()

	s := &Session{
		ID:       id,
		Identity: holder,
		remote:   r.opts.Remote,
		bus:      r.opts.Bus,
		logger:   logger.With(slog.String("session_id", id)),
	}
	s.Cart = cart.New(cart.Options{
		Remote:       r.opts.Remote,
		Local:        localstore.Scoped(r.opts.Local, "guest:"+id),
		Identity:     holder,
		Bus:          r.opts.Bus,
		SessionID:    id,
		MergePolicy:  r.opts.MergePolicy,
		HydrateLimit: r.opts.HydrateLimit,
		Logger:       logger,
	})
	s.Wishlist = wishlist.New(wishlist.Options{
		Remote:    r.opts.Remote,
		Identity:  holder,
		Bus:       r.opts.Bus,
		SessionID: id,
		Logger:    logger,
	})
	holder.OnChange(s.Cart.OnIdentityChange)
	holder.OnChange(s.Wishlist.OnIdentityChange)
	return s
}
