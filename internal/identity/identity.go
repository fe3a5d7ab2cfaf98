// Package identity tracks who a session is acting for and tells the
// cart and wishlist managers when that changes.
package identity

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"storefront-sync/internal/model"
)

// State is a snapshot of a session's identity.
//
// Loading is set while a login is being resolved; consumers must not pick
// a store until it clears.
type State struct {
	User    *model.User
	Token   string
	Loading bool
}

// Guest is the unauthenticated, settled state.
var Guest = State{}

// Authenticated reports whether the state carries a signed-in user.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil && s.Token != ""
}

// UserID returns the signed-in user's id, or "".
func (s State) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Audience names the set of views that should converge with this state.
// Authenticated views of one user share an audience across sessions;
// guest views are confined to their session.
func (s State) Audience(sessionID string) string {
	if s.Authenticated() {
		return "user:" + s.User.ID
	}
	return "guest:" + sessionID
}

// ErrLoading is returned by operations attempted while a sign-in is
// still being resolved.
var ErrLoading = errors.New("identity is loading")

// LoadingError wraps ErrLoading for HTTP callers.
func LoadingError() *model.APIError {
	return &model.APIError{
		Code:       "IDENTITY_LOADING",
		Message:    "sign-in in progress, retry shortly",
		StatusCode: http.StatusConflict,
		Err:        ErrLoading,
	}
}

// Listener observes a transition. It runs synchronously on the goroutine
// that called Set, with Set's context.
type Listener func(ctx context.Context, from, to State)

// Holder owns the current State for one session.
type Holder struct {
	mu        sync.RWMutex
	state     State
	listeners []Listener
}

// NewHolder starts as a settled guest.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the state at call time.
func (h *Holder) Current() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// OnChange registers l for every future transition.
func (h *Holder) OnChange(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// Set replaces the state and notifies listeners in registration order.
// Setting an identical state is not a transition and notifies no one.
func (h *Holder) Set(ctx context.Context, to State) {
	h.mu.Lock()
	from := h.state
	if sameState(from, to) {
		h.mu.Unlock()
		return
	}
	h.state = to
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	for _, l := range listeners {
		l(ctx, from, to)
	}
}

func sameState(a, b State) bool {
	return a.Loading == b.Loading && a.Token == b.Token && a.UserID() == b.UserID()
}
