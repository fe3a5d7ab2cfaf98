package handler

import (
	"log/slog"
	"net/http"

	"storefront-sync/internal/cart"
	"storefront-sync/internal/model"
)

type cartResponse struct {
	Lines []model.CartLine `json:"lines"`
	Count int              `json:"count"`
}

type countResponse struct {
	Count int `json:"count"`
}

// addItemRequest leaves quantity optional; omitted means one unit.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// handleGetCart returns the cart with product details.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	lines := s.Cart.Lines(ctx)
	count := s.Cart.Refresh(ctx)
	h.writeJSON(w, http.StatusOK, cartResponse{Lines: lines, Count: count})
}

// handleCartCount returns the badge count.
// GET /cart/count
func (h *Handler) handleCartCount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: s.Cart.Refresh(r.Context())})
}

// handleAddItem adds units of a product.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	h.logger.DebugContext(ctx, "adding to cart",
		slog.String("session_id", s.ID),
		slog.String("product_id", req.ProductID),
		slog.Int("quantity", qty),
	)

	err := s.Cart.Add(ctx, cart.AddRequest{
		ProductID: req.ProductID,
		Quantity:  qty,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, countResponse{Count: s.Cart.Count()})
}

// handleUpdateItem sets a line's quantity.
// PUT /cart/items/{id}
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := s.Cart.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: s.Cart.Count()})
}

// handleRemoveItem removes a line.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Cart.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: s.Cart.Count()})
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Cart.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: s.Cart.Count()})
}
