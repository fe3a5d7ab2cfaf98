// Package session hosts one visitor's state: identity, cart and wishlist.
// Sessions are created and found through a Registry; HTTP requests are
// bound to a session by the Storefront-Session header.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/cart"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/model"
	"storefront-sync/internal/wishlist"
)

// Session is one visitor.
type Session struct {
	ID       string
	Identity *identity.Holder
	Cart     *cart.Manager
	Wishlist *wishlist.Manager

	remote adapter.RemoteStore
	bus    *broadcast.Bus
	logger *slog.Logger

	// authMu serializes login and logout.
	authMu   sync.Mutex
	lastSeen atomic.Int64
}

// Audience is the broadcast audience for the session's current identity.
func (s *Session) Audience() string {
	return s.Identity.Current().Audience(s.ID)
}

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.lastSeen.Store(t.UnixNano())
}

// LastSeen returns the time of the last Touch.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Sync brings the cart count and wishlist cache up to date with changes
// other sessions of the same visitor have published.
func (s *Session) Sync(ctx context.Context) {
	s.Cart.Sync(ctx)
	s.Wishlist.Sync(ctx)
}

// Close stops the session's managers from following its audience.
func (s *Session) Close() {
	s.Cart.Close()
	s.Wishlist.Close()
}

// Login resolves token to a user and switches the session to it. While
// the token is being resolved the identity is loading. On failure the
// previous identity is restored and the error returned.
func (s *Session) Login(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewValidationError("token", "required")
	}

	s.authMu.Lock()
	defer s.authMu.Unlock()

	from := s.Identity.Current()
	s.Identity.Set(ctx, identity.State{Loading: true})

	user, err := s.remote.CurrentUser(ctx, token)
	if err != nil {
		s.Identity.Set(ctx, from)
		s.logger.Warn("login failed", slog.String("error", err.Error()))
		return nil, err
	}

	to := identity.State{User: user, Token: token}
	s.Identity.Set(ctx, to)
	s.announce(from, to)

	s.logger.Info("session signed in", slog.String("user_id", user.ID))
	return user, nil
}

// Logout returns the session to guest.
func (s *Session) Logout(ctx context.Context) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	from := s.Identity.Current()
	if !from.Authenticated() {
		return
	}
	s.Identity.Set(ctx, identity.Guest)
	s.announce(from, identity.Guest)

	s.logger.Info("session signed out", slog.String("user_id", from.UserID()))
}

// announce tells views on both sides of a transition to re-query. Views
// still on the old audience use it to move to the new one.
func (s *Session) announce(from, to identity.State) {
	audiences := []string{to.Audience(s.ID)}
	if old := from.Audience(s.ID); old != audiences[0] {
		audiences = append(audiences, old)
	}
	for _, a := range audiences {
		s.bus.Publish(broadcast.Event{Audience: a, Kind: broadcast.CartUpdated})
		s.bus.Publish(broadcast.Event{Audience: a, Kind: broadcast.WishlistUpdated})
	}
}
