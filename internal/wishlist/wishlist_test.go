package wishlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/model"
)

var signedIn = identity.State{User: &model.User{ID: "u1"}, Token: "tok"}

// fakeWishlist is an in-memory remote wishlist that records calls.
type fakeWishlist struct {
	mu    sync.Mutex
	ids   []string
	calls []string
}

func (f *fakeWishlist) mock() *adapter.Mock {
	return &adapter.Mock{
		FetchWishlistFunc: func(context.Context, string) ([]model.WishlistEntry, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			out := make([]model.WishlistEntry, 0, len(f.ids))
			for _, id := range f.ids {
				out = append(out, model.WishlistEntry{ProductID: id, Product: &model.Product{ID: id}})
			}
			return out, nil
		},
		AddToWishlistFunc: func(_ context.Context, _ string, id string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls = append(f.calls, "POST add "+id)
			f.ids = append(f.ids, id)
			return nil
		},
		RemoveFromWishlistFunc: func(_ context.Context, _ string, id string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls = append(f.calls, "DELETE remove "+id)
			f.ids = slices.DeleteFunc(f.ids, func(s string) bool { return s == id })
			return nil
		},
		ClearWishlistFunc: func(context.Context, string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls = append(f.calls, "DELETE clear")
			f.ids = nil
			return nil
		},
	}
}

func newManager(t *testing.T, remote adapter.RemoteStore) (*Manager, *identity.Holder, *broadcast.Bus) {
	t.Helper()
	ident := identity.NewHolder()
	bus := broadcast.New()
	t.Cleanup(bus.Close)
	m := New(Options{
		Remote:    remote,
		Identity:  ident,
		Bus:       bus,
		SessionID: "s1",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ident.OnChange(m.OnIdentityChange)
	return m, ident, bus
}

func TestToggle_RoundTrip(t *testing.T) {
	fake := &fakeWishlist{}
	m, ident, _ := newManager(t, fake.mock())
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	if got := m.Items(); len(got) != 0 {
		t.Fatalf("initial Items() = %v", got)
	}

	saved, err := m.Toggle(ctx, "ring-1")
	if err != nil || !saved {
		t.Fatalf("first Toggle = %v, %v", saved, err)
	}
	if diff := cmp.Diff([]string{"ring-1"}, m.Items()); diff != "" {
		t.Errorf("Items after add (-want +got):\n%s", diff)
	}

	saved, err = m.Toggle(ctx, "ring-1")
	if err != nil || saved {
		t.Fatalf("second Toggle = %v, %v", saved, err)
	}
	if got := m.Items(); len(got) != 0 {
		t.Errorf("Items after remove = %v, want []", got)
	}

	if diff := cmp.Diff([]string{"POST add ring-1", "DELETE remove ring-1"}, fake.calls); diff != "" {
		t.Errorf("remote calls (-want +got):\n%s", diff)
	}
}

func TestToggle_GuestRequiresAuth(t *testing.T) {
	remote := &adapter.Mock{
		AddToWishlistFunc: func(context.Context, string, string) error {
			t.Error("network call attempted for a guest")
			return nil
		},
		FetchWishlistFunc: func(context.Context, string) ([]model.WishlistEntry, error) {
			t.Error("network call attempted for a guest")
			return nil, nil
		},
	}
	m, _, _ := newManager(t, remote)

	_, err := m.Toggle(context.Background(), "p1")
	if !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("Toggle err = %v, want ErrAuthRequired", err)
	}
	if err := m.Clear(context.Background()); !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("Clear err = %v, want ErrAuthRequired", err)
	}
	if got := m.Items(); got == nil || len(got) != 0 {
		t.Errorf("Items() = %#v, want []", got)
	}
	if got := m.Refresh(context.Background()); len(got) != 0 {
		t.Errorf("guest Refresh() = %v, want []", got)
	}
}

func TestToggle_FailureLeavesCache(t *testing.T) {
	fake := &fakeWishlist{ids: []string{"a"}}
	remote := fake.mock()
	m, ident, bus := newManager(t, remote)
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	sub := bus.Subscribe(signedIn.Audience("s1"))
	defer sub.Close()

	remote.RemoveFromWishlistFunc = func(context.Context, string, string) error {
		return model.NewUpstreamError("shop", errors.New("down"))
	}

	if _, err := m.Toggle(ctx, "a"); !errors.Is(err, model.ErrUpstreamError) {
		t.Errorf("Toggle err = %v, want upstream", err)
	}
	if !m.Contains("a") {
		t.Error("cache should be untouched after a failed toggle")
	}
	if events := sub.Drain(); len(events) != 0 {
		t.Errorf("failed toggle published %+v", events)
	}
}

func TestRefresh_FailureEmpties(t *testing.T) {
	fake := &fakeWishlist{ids: []string{"a", "b"}}
	remote := fake.mock()
	m, ident, _ := newManager(t, remote)
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	if len(m.Items()) != 2 {
		t.Fatalf("Items() = %v after sign-in", m.Items())
	}

	remote.FetchWishlistFunc = func(context.Context, string) ([]model.WishlistEntry, error) {
		return nil, model.NewUnauthorizedError("expired")
	}
	if got := m.Refresh(ctx); len(got) != 0 {
		t.Errorf("Refresh() = %v, want [] on failure", got)
	}
}

func TestSignOut_EmptiesWithoutNetwork(t *testing.T) {
	fake := &fakeWishlist{ids: []string{"a"}}
	remote := fake.mock()
	m, ident, _ := newManager(t, remote)
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	remote.FetchWishlistFunc = func(context.Context, string) ([]model.WishlistEntry, error) {
		t.Error("fetch after sign-out")
		return nil, nil
	}
	ident.Set(ctx, identity.Guest)

	if got := m.Items(); len(got) != 0 {
		t.Errorf("Items() = %v after sign-out", got)
	}
}

func TestToggle_PublishesWishlistUpdated(t *testing.T) {
	fake := &fakeWishlist{}
	m, ident, bus := newManager(t, fake.mock())
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	// Another session of the same user.
	sub := bus.Subscribe(signedIn.Audience("s2"))
	defer sub.Close()

	if _, err := m.Toggle(ctx, "p1"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	events := sub.Drain()
	if len(events) != 1 || events[0].Kind != broadcast.WishlistUpdated {
		t.Errorf("events = %+v, want one wishlist.updated", events)
	}
}

func TestClear(t *testing.T) {
	fake := &fakeWishlist{ids: []string{"a", "b"}}
	m, ident, _ := newManager(t, fake.mock())
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(m.Items()) != 0 {
		t.Errorf("Items() = %v after Clear", m.Items())
	}
}

func TestEntries_CarriesProducts(t *testing.T) {
	fake := &fakeWishlist{ids: []string{"a"}}
	m, ident, _ := newManager(t, fake.mock())
	ctx := context.Background()
	ident.Set(ctx, signedIn)

	want := []model.WishlistEntry{{ProductID: "a", Product: &model.Product{ID: "a"}}}
	if diff := cmp.Diff(want, m.Entries(ctx)); diff != "" {
		t.Errorf("Entries (-want +got):\n%s", diff)
	}
}

func TestToggle_WhileLoading(t *testing.T) {
	m, ident, _ := newManager(t, &adapter.Mock{})
	ident.Set(context.Background(), identity.State{Loading: true})

	if _, err := m.Toggle(context.Background(), "p1"); !errors.Is(err, identity.ErrLoading) {
		t.Errorf("Toggle err = %v, want ErrLoading", err)
	}
}

func TestToggle_SeesOtherSessionsChanges(t *testing.T) {
	fake := &fakeWishlist{}
	a, identA, bus := newManager(t, fake.mock())
	ctx := context.Background()

	identB := identity.NewHolder()
	b := New(Options{
		Remote:    fake.mock(),
		Identity:  identB,
		Bus:       bus,
		SessionID: "s2",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer b.Close()
	identB.OnChange(b.OnIdentityChange)

	identA.Set(ctx, signedIn)
	identB.Set(ctx, signedIn)

	if saved, err := a.Toggle(ctx, "ring-1"); err != nil || !saved {
		t.Fatalf("A Toggle = %v, %v", saved, err)
	}
	if got := b.Items(); len(got) != 0 {
		t.Fatalf("B cache = %v before sync, want the stale []", got)
	}

	saved, err := b.Toggle(ctx, "ring-1")
	if err != nil {
		t.Fatalf("B Toggle: %v", err)
	}
	if saved {
		t.Error("B Toggle saved again; it should have removed the item A saved")
	}
	if diff := cmp.Diff([]string{"POST add ring-1", "DELETE remove ring-1"}, fake.calls); diff != "" {
		t.Errorf("remote calls (-want +got):\n%s", diff)
	}

	if !a.Sync(ctx) {
		t.Error("A did not see B's removal")
	}
	if got := a.Items(); len(got) != 0 {
		t.Errorf("A cache = %v, want []", got)
	}
}
