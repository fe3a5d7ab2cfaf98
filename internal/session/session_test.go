package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/cart"
	"storefront-sync/internal/localstore"
	"storefront-sync/internal/model"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newRegistry(t *testing.T, remote adapter.RemoteStore) (*Registry, *localstore.Memory, *broadcast.Bus, *testClock) {
	t.Helper()
	local := localstore.NewMemory()
	bus := broadcast.New()
	t.Cleanup(bus.Close)
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	reg := NewRegistry(Options{
		Remote:      remote,
		Local:       local,
		Bus:         bus,
		MergePolicy: cart.MergeSum,
		TTL:         10 * time.Minute,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock.Now,
	})
	return reg, local, bus, clock
}

func TestResolve_CreatesAndReuses(t *testing.T) {
	reg, _, _, _ := newRegistry(t, &adapter.Mock{})
	ctx := context.Background()

	s, created := reg.Resolve(ctx, "")
	if !created {
		t.Error("first Resolve should create")
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("session id %q is not a UUID", s.ID)
	}

	again, created := reg.Resolve(ctx, s.ID)
	if created || again != s {
		t.Error("Resolve with a live id should return the same session")
	}

	bogus, created := reg.Resolve(ctx, "not-a-uuid")
	if !created || bogus.ID == "not-a-uuid" {
		t.Errorf("malformed id should get a fresh session, got %q", bogus.ID)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestResolve_ReturningGuestKeepsCart(t *testing.T) {
	reg, _, _, clock := newRegistry(t, &adapter.Mock{})
	ctx := context.Background()

	s, _ := reg.Resolve(ctx, "")
	if err := s.Cart.Add(ctx, cart.AddRequest{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	clock.t = clock.t.Add(time.Hour)
	if n := reg.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := reg.Get(s.ID); ok {
		t.Fatal("session should be evicted")
	}

	back, created := reg.Resolve(ctx, s.ID)
	if !created {
		t.Error("evicted session should be recreated")
	}
	if back.Cart.Count() != 2 {
		t.Errorf("recreated Count() = %d, want 2 from local store", back.Cart.Count())
	}
}

func TestSweep_KeepsActiveSessions(t *testing.T) {
	reg, _, bus, clock := newRegistry(t, &adapter.Mock{})
	ctx := context.Background()

	idle, _ := reg.Resolve(ctx, "")
	clock.t = clock.t.Add(8 * time.Minute)
	active, _ := reg.Resolve(ctx, "")
	clock.t = clock.t.Add(5 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := reg.Get(idle.ID); ok {
		t.Error("idle session survived")
	}
	if n := bus.Subscribers("guest:" + idle.ID); n != 0 {
		t.Errorf("evicted session still subscribed %d times", n)
	}
	if _, ok := reg.Get(active.ID); !ok {
		t.Error("active session evicted")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	reg, _, _, _ := newRegistry(t, &adapter.Mock{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLogin_SwitchesIdentityAndMergesCart(t *testing.T) {
	var added []string
	remote := &adapter.Mock{
		CurrentUserFunc: func(_ context.Context, token string) (*model.User, error) {
			if token != "good" {
				return nil, model.NewUnauthorizedError("bad token")
			}
			return &model.User{ID: "u1", Email: "a@example.com"}, nil
		},
		AddToCartFunc: func(_ context.Context, token string, req adapter.AddToCartRequest) error {
			added = append(added, token+" "+req.ProductID)
			return nil
		},
	}
	reg, _, bus, _ := newRegistry(t, remote)
	ctx := context.Background()

	s, _ := reg.Resolve(ctx, "")
	s.Cart.Add(ctx, cart.AddRequest{ProductID: "p1", Quantity: 1})

	guestView := bus.Subscribe(s.Audience())
	defer guestView.Close()

	user, err := s.Login(ctx, "good")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "u1" || !s.Identity.Current().Authenticated() {
		t.Errorf("identity = %+v", s.Identity.Current())
	}
	if s.Audience() != "user:u1" {
		t.Errorf("Audience() = %q", s.Audience())
	}
	if len(added) != 1 || added[0] != "good p1" {
		t.Errorf("merge adds = %v", added)
	}
	if events := guestView.Drain(); len(events) != 2 {
		t.Errorf("guest view got %d events, want cart and wishlist", len(events))
	}
}

func TestLogin_FailureStaysGuest(t *testing.T) {
	remote := &adapter.Mock{
		CurrentUserFunc: func(context.Context, string) (*model.User, error) {
			return nil, model.NewUnauthorizedError("expired")
		},
	}
	reg, _, _, _ := newRegistry(t, remote)
	ctx := context.Background()
	s, _ := reg.Resolve(ctx, "")

	if _, err := s.Login(ctx, "stale"); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("Login err = %v, want unauthorized", err)
	}
	st := s.Identity.Current()
	if st.Authenticated() || st.Loading {
		t.Errorf("identity = %+v, want settled guest", st)
	}

	if _, err := s.Login(ctx, ""); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Login(\"\") err = %v, want validation error", err)
	}
}

func TestLogout(t *testing.T) {
	remote := &adapter.Mock{
		CurrentUserFunc: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "u1"}, nil
		},
		FetchWishlistFunc: func(context.Context, string) ([]model.WishlistEntry, error) {
			return []model.WishlistEntry{{ProductID: "w1"}}, nil
		},
	}
	reg, _, _, _ := newRegistry(t, remote)
	ctx := context.Background()
	s, _ := reg.Resolve(ctx, "")

	s.Login(ctx, "tok")
	if !s.Wishlist.Contains("w1") {
		t.Fatal("wishlist should load on sign-in")
	}

	s.Logout(ctx)
	if s.Identity.Current().Authenticated() {
		t.Error("still authenticated after Logout")
	}
	if len(s.Wishlist.Items()) != 0 {
		t.Error("wishlist should empty on logout")
	}
	if s.Audience() != "guest:"+s.ID {
		t.Errorf("Audience() = %q", s.Audience())
	}

	s.Logout(ctx) // no-op
}

// sharedShop is one shop account reachable from several sessions.
type sharedShop struct {
	mu       sync.Mutex
	cart     []model.CartLine
	wishlist []string
	adds     int
	removes  int
}

func (sh *sharedShop) mock() *adapter.Mock {
	return &adapter.Mock{
		CurrentUserFunc: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "u1"}, nil
		},
		FetchCartFunc: func(context.Context, string) ([]model.CartLine, error) {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			return slices.Clone(sh.cart), nil
		},
		AddToCartFunc: func(_ context.Context, _ string, req adapter.AddToCartRequest) error {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			sh.cart = append(sh.cart, model.CartLine{ID: "row-" + req.ProductID, ProductID: req.ProductID, Quantity: req.Quantity})
			return nil
		},
		FetchWishlistFunc: func(context.Context, string) ([]model.WishlistEntry, error) {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			out := []model.WishlistEntry{}
			for _, id := range sh.wishlist {
				out = append(out, model.WishlistEntry{ProductID: id})
			}
			return out, nil
		},
		AddToWishlistFunc: func(_ context.Context, _ string, id string) error {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			sh.adds++
			sh.wishlist = append(sh.wishlist, id)
			return nil
		},
		RemoveFromWishlistFunc: func(_ context.Context, _ string, id string) error {
			sh.mu.Lock()
			defer sh.mu.Unlock()
			sh.removes++
			sh.wishlist = slices.DeleteFunc(sh.wishlist, func(s string) bool { return s == id })
			return nil
		},
	}
}

func TestSameUserSessionsStayInSync(t *testing.T) {
	shop := &sharedShop{}
	reg, _, _, _ := newRegistry(t, shop.mock())
	ctx := context.Background()

	a, _ := reg.Resolve(ctx, "")
	b, _ := reg.Resolve(ctx, "")
	if _, err := a.Login(ctx, "tok"); err != nil {
		t.Fatalf("A Login: %v", err)
	}
	if _, err := b.Login(ctx, "tok"); err != nil {
		t.Fatalf("B Login: %v", err)
	}

	if err := a.Cart.Add(ctx, cart.AddRequest{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("A Add: %v", err)
	}
	if _, err := a.Wishlist.Toggle(ctx, "ring-1"); err != nil {
		t.Fatalf("A Toggle: %v", err)
	}

	b, _ = reg.Resolve(ctx, b.ID)
	if b.Cart.Count() != 1 {
		t.Errorf("B cart count = %d, want 1", b.Cart.Count())
	}
	if !b.Wishlist.Contains("ring-1") {
		t.Errorf("B wishlist = %v, want [ring-1]", b.Wishlist.Items())
	}

	saved, err := b.Wishlist.Toggle(ctx, "ring-1")
	if err != nil {
		t.Fatalf("B Toggle: %v", err)
	}
	if saved {
		t.Error("B Toggle saved ring-1 again")
	}
	if shop.adds != 1 || shop.removes != 1 {
		t.Errorf("remote adds=%d removes=%d, want 1 and 1", shop.adds, shop.removes)
	}

	a, _ = reg.Resolve(ctx, a.ID)
	if len(a.Wishlist.Items()) != 0 {
		t.Errorf("A wishlist = %v after B removed it", a.Wishlist.Items())
	}
}
