package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storefront-sync/internal/broadcast"
)

// handleEvents streams cart.updated and wishlist.updated to a view as
// Server-Sent Events. Events carry no state; the view re-fetches.
// When the session's identity changes the stream follows it to the new
// audience.
// GET /events
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rc := http.NewResponseController(w)
	// Streams outlive the server's WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	audience := s.Audience()
	sub := h.bus.Subscribe(audience)
	defer func() { sub.Close() }()
	h.logger.Debug("event stream opened",
		slog.String("session_id", s.ID),
		slog.String("audience", audience),
		slog.Int("subscribers", h.bus.Subscribers(audience)),
	)

	if err := writeSSE(w, "ready", readyEvent{Session: s.ID, Audience: audience}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case t := <-heartbeat.C:
			// An open stream keeps its session alive.
			s.Touch(t)
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-sub.Ready():
			for _, ev := range sub.Drain() {
				if err := writeSSE(w, string(ev.Kind), ev); err != nil {
					return
				}
			}
			if now := s.Audience(); now != audience {
				sub.Close()
				audience = now
				sub = h.bus.Subscribe(audience)
				// Events published to the new audience before the switch
				// are gone; a new identity means everything changed.
				if err := writeResync(w, audience); err != nil {
					return
				}
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type readyEvent struct {
	Session  string `json:"session"`
	Audience string `json:"audience"`
}

func writeResync(w http.ResponseWriter, audience string) error {
	at := time.Now()
	for _, kind := range []broadcast.Kind{broadcast.CartUpdated, broadcast.WishlistUpdated} {
		ev := broadcast.Event{Audience: audience, Kind: kind, At: at}
		if err := writeSSE(w, string(kind), ev); err != nil {
			return err
		}
	}
	return nil
}

func writeSSE(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

