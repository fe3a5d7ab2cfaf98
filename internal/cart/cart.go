// Package cart implements the cart state manager for one session.
//
// The authoritative store is a pure function of identity: a signed-in
// visitor's cart lives in the shop API, a guest's cart lives in the
// session's local store. The manager keeps a cached count for badges and
// announces every successful mutation on the broadcast bus.
package cart

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/hydrate"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/localstore"
	"storefront-sync/internal/model"
)

// Options wires a Manager.
type Options struct {
	Remote    adapter.RemoteStore
	Local     localstore.Store // already scoped to the session
	Identity  *identity.Holder
	Bus       *broadcast.Bus
	SessionID string

	MergePolicy  MergePolicy
	HydrateLimit int
	Logger       *slog.Logger
}

// AddRequest adds Quantity units of a product, optionally a specific
// size/color.
type AddRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Manager is the cart state manager.
type Manager struct {
	remote    adapter.RemoteStore
	local     localstore.Store
	ident     *identity.Holder
	bus       *broadcast.Bus
	sessionID string
	policy    MergePolicy
	limit     int
	logger    *slog.Logger

	// follow watches the current audience for changes made by other
	// sessions of the same visitor.
	follow *broadcast.Follower

	// mu serializes guest read-modify-write cycles.
	mu    sync.Mutex
	count atomic.Int64
}

// New creates a Manager. It does not register itself for identity
// changes; the owner calls OnIdentityChange.
func New(opts Options) *Manager {
	if opts.MergePolicy == "" {
		opts.MergePolicy = MergeSum
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Manager{
		remote:    opts.Remote,
		local:     opts.Local,
		ident:     opts.Identity,
		bus:       opts.Bus,
		sessionID: opts.SessionID,
		policy:    opts.MergePolicy,
		limit:     opts.HydrateLimit,
		logger:    opts.Logger.With(slog.String("session_id", opts.SessionID)),
	}
	m.follow = opts.Bus.Follow(opts.Identity.Current().Audience(opts.SessionID), broadcast.CartUpdated)
	return m
}

// Sync refreshes the count if another session changed the cart since
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

// Count returns the cached count as of the last Refresh.
// Authenticated: distinct lines. Guest: total units.
func (m *Manager) Count() int {
	return int(m.count.Load())
}

// Refresh re-reads the authoritative store and updates the cached count.
// Read failures zero the count and are never returned.
func (m *Manager) Refresh(ctx context.Context) int {
	st := m.ident.Current()
	switch {
	case st.Loading:
		// No authority yet.
	case st.Authenticated():
		lines, err := m.remote.FetchCart(ctx, st.Token)
		if err != nil {
			m.logger.Warn("cart refresh failed",
				slog.String("user_id", st.UserID()),
				slog.String("error", err.Error()),
			)
			m.count.Store(0)
			break
		}
		m.count.Store(int64(len(lines)))
	default:
		m.count.Store(int64(m.refreshGuest(ctx)))
	}
	return m.Count()
}

func (m *Manager) refreshGuest(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, ok, err := m.readGuest(ctx)
	if err != nil {
		m.logger.Warn("guest cart unreadable", slog.String("error", err.Error()))
		return 0
	}
	if !ok {
		return 0
	}

	kept := positive(lines)
	if len(kept) != len(lines) || len(kept) == 0 {
		if err := m.writeGuest(ctx, kept); err != nil {
			m.logger.Warn("guest cart cleanup failed", slog.String("error", err.Error()))
		}
	}
	return model.CountUnits(kept)
}

// Add puts units of a product in the cart. Quantities accumulate on an
// existing line. Remote failures are returned unchanged.
func (m *Manager) Add(ctx context.Context, req AddRequest) error {
	if req.ProductID == "" {
		return model.NewValidationError("productId", "required")
	}
	if req.Quantity < 1 {
		return model.NewValidationError("quantity", "must be at least 1")
	}

	st := m.ident.Current()
	switch {
	case st.Loading:
		return identity.LoadingError()
	case st.Authenticated():
		err := m.remote.AddToCart(ctx, st.Token, adapter.AddToCartRequest{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Size:      req.Size,
			Color:     req.Color,
		})
		if err != nil {
			return err
		}
	default:
		if err := m.addGuest(ctx, req); err != nil {
			return err
		}
	}

	m.changed(ctx, st)
	return nil
}

func (m *Manager) addGuest(ctx context.Context, req AddRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, _, err := m.readGuest(ctx)
	if err != nil {
		return model.NewInternalError(err)
	}

	key := model.LineKey(req.ProductID, req.Size, req.Color)
	found := false
	for i := range lines {
		if lines[i].ID == key {
			lines[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, model.CartLine{
			ID:        key,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Size:      req.Size,
			Color:     req.Color,
		})
	}
	return m.writeGuest(ctx, lines)
}

// Lines returns the cart's lines with product details. Guest lines are
// hydrated one lookup per line; lines whose product cannot be found are
// left out. Read failures yield an empty cart.
func (m *Manager) Lines(ctx context.Context) []model.CartLine {
	st := m.ident.Current()
	switch {
	case st.Loading:
		return []model.CartLine{}
	case st.Authenticated():
		lines, err := m.remote.FetchCart(ctx, st.Token)
		if err != nil {
			m.logger.Warn("cart fetch failed", slog.String("error", err.Error()))
			return []model.CartLine{}
		}
		if lines == nil {
			lines = []model.CartLine{}
		}
		return lines
	}

	m.mu.Lock()
	lines, _, err := m.readGuest(ctx)
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("guest cart unreadable", slog.String("error", err.Error()))
		return []model.CartLine{}
	}
	return hydrate.Lines(ctx, m.remote, positive(lines), hydrate.Options{
		Limit:  m.limit,
		Logger: m.logger,
	})
}

// UpdateQuantity sets a line's quantity. lineID is the server row id when
// signed in and the guest line key otherwise. For guests a quantity below
// 1 and an unknown key are both no-ops.
func (m *Manager) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	st := m.ident.Current()
	switch {
	case st.Loading:
		return identity.LoadingError()
	case st.Authenticated():
		if quantity < 1 {
			return model.NewValidationError("quantity", "must be at least 1")
		}
		if err := m.remote.UpdateCartItem(ctx, st.Token, lineID, quantity); err != nil {
			return err
		}
	default:
		if quantity < 1 {
			return nil
		}
		if err := m.updateGuest(ctx, lineID, quantity); err != nil {
			return err
		}
	}

	m.changed(ctx, st)
	return nil
}

func (m *Manager) updateGuest(ctx context.Context, key string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, _, err := m.readGuest(ctx)
	if err != nil {
		return model.NewInternalError(err)
	}
	for i := range lines {
		if lines[i].ID == key {
			lines[i].Quantity = quantity
			return m.writeGuest(ctx, lines)
		}
	}
	return nil
}

// Remove deletes a line. Removing the last guest line deletes the guest
// cart from local storage.
func (m *Manager) Remove(ctx context.Context, lineID string) error {
	st := m.ident.Current()
	switch {
	case st.Loading:
		return identity.LoadingError()
	case st.Authenticated():
		if err := m.remote.RemoveCartItem(ctx, st.Token, lineID); err != nil {
			return err
		}
	default:
		if err := m.removeGuest(ctx, lineID); err != nil {
			return err
		}
	}

	m.changed(ctx, st)
	return nil
}

func (m *Manager) removeGuest(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, ok, err := m.readGuest(ctx)
	if err != nil {
		return model.NewInternalError(err)
	}
	if !ok {
		return nil
	}
	kept := lines[:0:0]
	for _, l := range lines {
		if l.ID != key {
			kept = append(kept, l)
		}
	}
	return m.writeGuest(ctx, kept)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) error {
	st := m.ident.Current()
	switch {
	case st.Loading:
		return identity.LoadingError()
	case st.Authenticated():
		if err := m.remote.ClearCart(ctx, st.Token); err != nil {
			return err
		}
	default:
		m.mu.Lock()
		err := m.local.Delete(ctx, storageKey)
		m.mu.Unlock()
		if err != nil {
			return model.NewInternalError(err)
		}
	}

	m.changed(ctx, st)
	return nil
}

// changed announces a successful mutation and resyncs the count.
func (m *Manager) changed(ctx context.Context, st identity.State) {
	m.bus.Publish(broadcast.Event{
		Audience: st.Audience(m.sessionID),
		Kind:     broadcast.CartUpdated,
	})
	// The refresh below covers everything published so far, our own
	// event included.
	m.follow.Pending()
	m.Refresh(ctx)
}
