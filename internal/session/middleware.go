package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type contextKey string

const sessionContextKey contextKey = "storefront.session"

// CodeHeaderInvalid is the error code for an unparseable session header.
const CodeHeaderInvalid = "session_header_invalid"

// Middleware binds every request to a session. It parses the
// Storefront-Session header, rejects unsupported client versions, resolves
// (or creates) the session, echoes the binding in the response header and
// stores the session in the request context.
func Middleware(reg *Registry, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			h, err := ParseHeader(r.Header.Get(HeaderName))
			if err != nil {
				logger.Warn("invalid session header",
					slog.String("header", r.Header.Get(HeaderName)),
					slog.String("error", err.Error()))
				writeSessionError(w, http.StatusBadRequest, CodeHeaderInvalid, err.Error())
				return
			}

			if err := CheckClientVersion(ServerVersion, h.Version); err != nil {
				writeSessionError(w, http.StatusBadRequest, CodeVersionUnsupported, err.Error())
				return
			}

			s, _ := reg.Resolve(r.Context(), h.ID)
			if value, err := FormatHeader(Header{ID: s.ID, Version: ServerVersion}); err == nil {
				w.Header().Set(HeaderName, value)
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// isExemptPath reports paths served without a session.
func isExemptPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/mcp":
		return true
	}
	return false
}

func writeSessionError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request's session, or nil on exempt paths.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}
