// Package wishlist implements the wishlist state manager for one session.
// Wishlists exist only for signed-in visitors.
package wishlist

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/model"
)

// Options wires a Manager.
type Options struct {
	Remote    adapter.RemoteStore
	Identity  *identity.Holder
	Bus       *broadcast.Bus
	SessionID string
	Logger    *slog.Logger
}

// Manager caches the product ids on the visitor's wishlist.
type Manager struct {
	remote    adapter.RemoteStore
	ident     *identity.Holder
	bus       *broadcast.Bus
	sessionID string
	logger    *slog.Logger

	// follow watches the current audience for changes made by other
	// sessions of the same visitor.
	follow *broadcast.Follower

	mu  sync.RWMutex
	ids []string
}

// New creates a Manager with an empty cache.
func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Manager{
		remote:    opts.Remote,
		ident:     opts.Identity,
		bus:       opts.Bus,
		sessionID: opts.SessionID,
		logger:    opts.Logger.With(slog.String("session_id", opts.SessionID)),
		ids:       []string{},
	}
	m.follow = opts.Bus.Follow(opts.Identity.Current().Audience(opts.SessionID), broadcast.WishlistUpdated)
	return m
}

// Sync refreshes the cache if another session changed the wishlist since
// the last check. It reports whether a refresh happened.
func (m *Manager) Sync(ctx context.Context) bool {
	if !m.follow.Pending() {
		return false
	}
	m.Refresh(ctx)
	return true
}

// Close stops watching for changes.
func (m *Manager) Close() {
	m.follow.Close()
}

// Items returns a copy of the cached product ids.
func (m *Manager) Items() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.ids)
}

// Contains reports cached membership.
func (m *Manager) Contains(productID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.ids, productID)
}

func (m *Manager) set(ids []string) {
	m.mu.Lock()
	m.ids = ids
	m.mu.Unlock()
}

// Refresh re-reads the wishlist. Guests and read failures get an empty
// list.
func (m *Manager) Refresh(ctx context.Context) []string {
	m.Entries(ctx)
	return m.Items()
}

// Entries fetches the full wishlist with product details and updates the
// cached ids from it.
func (m *Manager) Entries(ctx context.Context) []model.WishlistEntry {
	entries := m.fetch(ctx)
	m.set(model.ProductIDs(entries))
	return entries
}

func (m *Manager) fetch(ctx context.Context) []model.WishlistEntry {
	st := m.ident.Current()
	if !st.Authenticated() {
		return []model.WishlistEntry{}
	}
	entries, err := m.remote.FetchWishlist(ctx, st.Token)
	if err != nil {
		m.logger.Warn("wishlist refresh failed",
			slog.String("user_id", st.UserID()),
			slog.String("error", err.Error()),
		)
		return []model.WishlistEntry{}
	}
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	return entries
}

// Toggle adds productID when it is not in the cached list and removes it
// otherwise. The cache is synced first, so a change made from another
// session decides the direction. It reports whether the product is now saved. Guests get an
// auth-required error before any network call; on remote failure the
// cache is left as it was.
func (m *Manager) Toggle(ctx context.Context, productID string) (saved bool, err error) {
	st, err := m.authenticated("save items")
	if err != nil {
		return false, err
	}
	if productID == "" {
		return false, model.NewValidationError("productId", "required")
	}

	m.Sync(ctx)
	if m.Contains(productID) {
		err = m.remote.RemoveFromWishlist(ctx, st.Token, productID)
	} else {
		err = m.remote.AddToWishlist(ctx, st.Token, productID)
		saved = true
	}
	if err != nil {
		return false, err
	}

	m.changed(ctx, st)
	return saved, nil
}

// Clear removes every saved product.
func (m *Manager) Clear(ctx context.Context) error {
	st, err := m.authenticated("clear the wishlist")
	if err != nil {
		return err
	}
	if err := m.remote.ClearWishlist(ctx, st.Token); err != nil {
		return err
	}
	m.changed(ctx, st)
	return nil
}

// OnIdentityChange resyncs the cache. Signing out empties it without a
// network call. It is shaped as an identity.Listener.
func (m *Manager) OnIdentityChange(ctx context.Context, _, to identity.State) {
	if to.Loading {
		return
	}
	m.follow.Move(to.Audience(m.sessionID))
	m.Refresh(ctx)
}

func (m *Manager) authenticated(operation string) (identity.State, error) {
	st := m.ident.Current()
	if st.Loading {
		return st, identity.LoadingError()
	}
	if !st.Authenticated() {
		return st, model.NewAuthRequiredError(operation)
	}
	return st, nil
}

func (m *Manager) changed(ctx context.Context, st identity.State) {
	m.bus.Publish(broadcast.Event{
		Audience: st.Audience(m.sessionID),
		Kind:     broadcast.WishlistUpdated,
	})
	m.follow.Pending()
	m.Refresh(ctx)
}
