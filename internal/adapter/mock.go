package adapter

import (
	"context"

	"storefront-sync/internal/model"
)

// Mock implements RemoteStore for testing.
// Each method can be configured via function fields; unset reads return
// empty results and unset writes succeed.
type Mock struct {
	FetchCartFunc          func(ctx context.Context, token string) ([]model.CartLine, error)
	AddToCartFunc          func(ctx context.Context, token string, req AddToCartRequest) error
	UpdateCartItemFunc     func(ctx context.Context, token, itemID string, quantity int) error
	RemoveCartItemFunc     func(ctx context.Context, token, itemID string) error
	ClearCartFunc          func(ctx context.Context, token string) error
	FetchWishlistFunc      func(ctx context.Context, token string) ([]model.WishlistEntry, error)
	AddToWishlistFunc      func(ctx context.Context, token, productID string) error
	RemoveFromWishlistFunc func(ctx context.Context, token, productID string) error
	ClearWishlistFunc      func(ctx context.Context, token string) error
	GetProductFunc         func(ctx context.Context, productID string) (*model.Product, error)
	CurrentUserFunc        func(ctx context.Context, token string) (*model.User, error)
}

// FetchCart calls the configured FetchCartFunc or returns an empty cart.
func (m *Mock) FetchCart(ctx context.Context, token string) ([]model.CartLine, error) {
	if m.FetchCartFunc != nil {
		return m.FetchCartFunc(ctx, token)
	}
	return []model.CartLine{}, nil
}

// AddToCart calls the configured AddToCartFunc or succeeds.
func (m *Mock) AddToCart(ctx context.Context, token string, req AddToCartRequest) error {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, token, req)
	}
	return nil
}

// UpdateCartItem calls the configured UpdateCartItemFunc or succeeds.
func (m *Mock) UpdateCartItem(ctx context.Context, token, itemID string, quantity int) error {
	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, token, itemID, quantity)
	}
	return nil
}

// RemoveCartItem calls the configured RemoveCartItemFunc or succeeds.
func (m *Mock) RemoveCartItem(ctx context.Context, token, itemID string) error {
	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, token, itemID)
	}
	return nil
}

// ClearCart calls the configured ClearCartFunc or succeeds.
func (m *Mock) ClearCart(ctx context.Context, token string) error {
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx, token)
	}
	return nil
}

// FetchWishlist calls the configured FetchWishlistFunc or returns an empty list.
func (m *Mock) FetchWishlist(ctx context.Context, token string) ([]model.WishlistEntry, error) {
	if m.FetchWishlistFunc != nil {
		return m.FetchWishlistFunc(ctx, token)
	}
	return []model.WishlistEntry{}, nil
}

// AddToWishlist calls the configured AddToWishlistFunc or succeeds.
func (m *Mock) AddToWishlist(ctx context.Context, token, productID string) error {
	if m.AddToWishlistFunc != nil {
		return m.AddToWishlistFunc(ctx, token, productID)
	}
	return nil
}

// RemoveFromWishlist calls the configured RemoveFromWishlistFunc or succeeds.
func (m *Mock) RemoveFromWishlist(ctx context.Context, token, productID string) error {
	if m.RemoveFromWishlistFunc != nil {
		return m.RemoveFromWishlistFunc(ctx, token, productID)
	}
	return nil
}

// ClearWishlist calls the configured ClearWishlistFunc or succeeds.
func (m *Mock) ClearWishlist(ctx context.Context, token string) error {
	if m.ClearWishlistFunc != nil {
		return m.ClearWishlistFunc(ctx, token)
	}
	return nil
}

// GetProduct calls the configured GetProductFunc or returns not found.
func (m *Mock) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, productID)
	}
	return nil, model.NewNotFoundError("product")
}

// CurrentUser calls the configured CurrentUserFunc or returns unauthorized.
func (m *Mock) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, token)
	}
	return nil, model.NewUnauthorizedError("invalid token")
}

// Verify Mock implements RemoteStore at compile time.
var _ RemoteStore = (*Mock)(nil)
