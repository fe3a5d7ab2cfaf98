package handler

import (
	"net/http"

	"storefront-sync/internal/model"
	"storefront-sync/internal/session"
)

type loginRequest struct {
	Token string `json:"token"`
}

// sessionResponse describes the session's identity and cached state.
type sessionResponse struct {
	ID            string      `json:"id"`
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	Audience      string      `json:"audience"`
	CartCount     int         `json:"cartCount"`
	Wishlist      []string    `json:"wishlist"`
}

func describe(s *session.Session) sessionResponse {
	st := s.Identity.Current()
	return sessionResponse{
		ID:            s.ID,
		Authenticated: st.Authenticated(),
		User:          st.User,
		Audience:      st.Audience(s.ID),
		CartCount:     s.Cart.Count(),
		Wishlist:      s.Wishlist.Items(),
	}
}

// handleGetSession reports the session's identity and cached counts.
// GET /session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	s.Sync(r.Context())
	h.writeJSON(w, http.StatusOK, describe(s))
}

// handleLogin signs the session in with a shop bearer token.
// POST /session/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := s.Login(r.Context(), req.Token); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, describe(s))
}

// handleLogout returns the session to guest.
// POST /session/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	s.Logout(r.Context())
	h.writeJSON(w, http.StatusOK, describe(s))
}
