// Package adapter defines the port to the shop's REST API.
// The cart and wishlist managers depend on this interface only.
package adapter

import (
	"context"

	"storefront-sync/internal/model"
)

// RemoteStore persists cart and wishlist rows for an authenticated user.
//
// Every method takes the visitor's bearer token. Each call is a single
// atomic upstream operation; there are no guarantees across calls.
// Implementations return *model.APIError for upstream failures.
type RemoteStore interface {
	// FetchCart returns the authenticated cart, normalized to CartLine.
	// Line IDs are server-assigned row ids.
	FetchCart(ctx context.Context, token string) ([]model.CartLine, error)

	// AddToCart adds quantity units of a product to the cart.
	AddToCart(ctx context.Context, token string, req AddToCartRequest) error

	// UpdateCartItem sets the quantity of a line identified by its row id.
	UpdateCartItem(ctx context.Context, token, itemID string, quantity int) error

	// RemoveCartItem deletes a line identified by its row id.
	RemoveCartItem(ctx context.Context, token, itemID string) error

	// ClearCart deletes every line of the cart.
	ClearCart(ctx context.Context, token string) error

	// FetchWishlist returns the saved products.
	FetchWishlist(ctx context.Context, token string) ([]model.WishlistEntry, error)

	// AddToWishlist saves a product.
	AddToWishlist(ctx context.Context, token, productID string) error

	// RemoveFromWishlist unsaves a product.
	RemoveFromWishlist(ctx context.Context, token, productID string) error

	// ClearWishlist removes every saved product.
	ClearWishlist(ctx context.Context, token string) error

	// GetProduct returns catalog details for one product. No token needed.
	GetProduct(ctx context.Context, productID string) (*model.Product, error)

	// CurrentUser resolves a bearer token to the signed-in user.
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// AddToCartRequest is the body of POST /api/cart/add.
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}
