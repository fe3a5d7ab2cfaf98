// Package handler provides the HTTP API storefront views talk to.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/model"
	"storefront-sync/internal/session"
)

// DefaultHeartbeat is how often an idle event stream sends a comment.
const DefaultHeartbeat = 25 * time.Second

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions  *session.Registry
	bus       *broadcast.Bus
	logger    *slog.Logger
	heartbeat time.Duration
}

// New creates a Handler. Routes other than /health and /mcp expect the
// session middleware to have run.
func New(sessions *session.Registry, bus *broadcast.Bus, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		bus:       bus,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("GET /cart/count", h.handleCartCount)
	mux.HandleFunc("POST /cart/items", h.handleAddItem)
	mux.HandleFunc("PUT /cart/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveItem)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)

	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)
	mux.HandleFunc("POST /wishlist/{productId}/toggle", h.handleToggleWishlist)
	mux.HandleFunc("DELETE /wishlist", h.handleClearWishlist)

	mux.HandleFunc("GET /session", h.handleGetSession)
	mux.HandleFunc("POST /session/login", h.handleLogin)
	mux.HandleFunc("POST /session/logout", h.handleLogout)

	mux.HandleFunc("GET /events", h.handleEvents)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// currentSession returns the request's session or writes a 500.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := session.FromContext(r.Context())
	if s == nil {
		h.writeError(w, model.NewInternalError(errors.New("request has no session")))
		return nil, false
	}
	return s, true
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: h.sessions.Len()})
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
