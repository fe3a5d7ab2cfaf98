// Package model holds the canonical storefront types shared by every
// component. Boundary DTOs from the shop API are normalized into these
// types as soon as a response is decoded.
package model

import "strings"

// Product is the subset of a catalog product the storefront renders
// next to cart and wishlist rows.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"` // minor units
	Currency string `json:"currency,omitempty"`
	Image    string `json:"image,omitempty"`
	Stock    int    `json:"stock"`
}

// CartLine is one distinct product (optionally with size/color) a visitor
// intends to buy.
//
// ID identifies the line for update and removal. Authenticated lines carry
// the server-assigned row id; guest lines carry their LineKey.
type CartLine struct {
	ID        string   `json:"id"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Size      string   `json:"size,omitempty"`
	Color     string   `json:"color,omitempty"`
	Product   *Product `json:"product,omitempty"`
}

// Key returns the line's uniqueness key.
func (l CartLine) Key() string {
	return LineKey(l.ProductID, l.Size, l.Color)
}

// WishlistEntry is one saved product. Presence is the only state.
type WishlistEntry struct {
	ProductID string   `json:"productId"`
	Product   *Product `json:"product,omitempty"`
}

// User is the authenticated visitor as reported by the identity endpoint.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// LineKey builds the uniqueness key for a cart line.
// Uses productID alone when no selector is set, so plain products keep
// their product id as line id.
func LineKey(productID, size, color string) string {
	if size == "" && color == "" {
		return productID
	}
	return strings.Join([]string{productID, size, color}, ":")
}

// CountUnits sums quantities across lines.
func CountUnits(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// ProductIDs projects wishlist entries to their product identifiers.
func ProductIDs(entries []WishlistEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	return ids
}
