package handler

import (
	"net/http"

	"storefront-sync/internal/model"
)

type wishlistResponse struct {
	Items []model.WishlistEntry `json:"items"`
	IDs   []string              `json:"ids"`
}

type toggleResponse struct {
	ProductID string   `json:"productId"`
	Saved     bool     `json:"saved"`
	IDs       []string `json:"ids"`
}

// handleGetWishlist returns saved products. Guests get an empty list.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	entries := s.Wishlist.Entries(r.Context())
	h.writeJSON(w, http.StatusOK, wishlistResponse{Items: entries, IDs: model.ProductIDs(entries)})
}

// handleToggleWishlist saves or unsaves a product.
// POST /wishlist/{productId}/toggle
func (h *Handler) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	productID := r.PathValue("productId")

	saved, err := s.Wishlist.Toggle(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toggleResponse{
		ProductID: productID,
		Saved:     saved,
		IDs:       s.Wishlist.Items(),
	})
}

// handleClearWishlist removes every saved product.
// DELETE /wishlist
func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Wishlist.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wishlistResponse{Items: []model.WishlistEntry{}, IDs: s.Wishlist.Items()})
}
