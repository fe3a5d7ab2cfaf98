package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-sync/internal/model"
)

// storageKey is the local store key holding the guest cart.
const storageKey = "cart"

// storedLine is the persisted guest line. Selectors are omitted when
// empty so plain lines stay {productId, quantity}.
type storedLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// readGuest loads the guest cart. ok is false when the key is absent.
// Caller holds m.mu.
func (m *Manager) readGuest(ctx context.Context) (lines []model.CartLine, ok bool, err error) {
	raw, ok, err := m.local.Get(ctx, storageKey)
	if err != nil || !ok {
		return nil, ok, err
	}

	var stored []storedLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, true, fmt.Errorf("decoding guest cart: %w", err)
	}

	lines = make([]model.CartLine, 0, len(stored))
	for _, s := range stored {
		lines = append(lines, model.CartLine{
			ID:        model.LineKey(s.ProductID, s.Size, s.Color),
			ProductID: s.ProductID,
			Quantity:  s.Quantity,
			Size:      s.Size,
			Color:     s.Color,
		})
	}
	return lines, true, nil
}

// writeGuest persists lines, deleting the key when none have a positive
// quantity. Caller holds m.mu.
func (m *Manager) writeGuest(ctx context.Context, lines []model.CartLine) error {
	stored := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		stored = append(stored, storedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
		})
	}

	if len(stored) == 0 {
		return m.local.Delete(ctx, storageKey)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding guest cart: %w", err)
	}
	return m.local.Set(ctx, storageKey, string(raw))
}

// positive drops lines with a non-positive quantity.
func positive(lines []model.CartLine) []model.CartLine {
	out := lines[:0:0]
	for _, l := range lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}
