package storeapi

import (
	"encoding/json"

	"storefront-sync/internal/model"
)

// =============================================================================
// BOUNDARY DTOs
// =============================================================================
//
// The shop API is not consistent across endpoints: the cart comes back as
// {items: [...]} from some deployments and {cartItems: [...]} from others,
// ids are numbers on older builds and strings on newer ones, and wishlist
// rows nest the product. These types absorb that and are converted to
// model types in transform.go before anything else sees them.
// =============================================================================

// flexID decodes an identifier that may be a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// cartResponse is GET /api/cart.
type cartResponse struct {
	Items     []cartItemDTO `json:"items"`
	CartItems []cartItemDTO `json:"cartItems"`
}

// lines returns whichever item list the server populated.
func (r *cartResponse) lines() []cartItemDTO {
	if len(r.Items) > 0 {
		return r.Items
	}
	return r.CartItems
}

type cartItemDTO struct {
	ID        flexID      `json:"id"`
	ProductID flexID      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Size      string      `json:"size"`
	Color     string      `json:"color"`
	Product   *productDTO `json:"product"`
}

type productDTO struct {
	ID       flexID      `json:"id"`
	Name     string      `json:"name"`
	Price    model.Price `json:"price"`
	Currency string      `json:"currency"`
	Image    string      `json:"image"`
	Images   []string    `json:"images"`
	Stock    int         `json:"stock"`
}

// productEnvelope is GET /api/products/:id. Some handlers wrap the product,
// others return it bare; both decode here.
type productEnvelope struct {
	Product *productDTO `json:"product"`
	productDTO
}

// wishlistResponse is GET /api/wishlist.
type wishlistResponse struct {
	WishlistItems []wishlistItemDTO `json:"wishlistItems"`
}

type wishlistItemDTO struct {
	ProductID flexID      `json:"productId"`
	Product   *productDTO `json:"product"`
}

type userEnvelope struct {
	User *userDTO `json:"user"`
}

type userDTO struct {
	ID    flexID `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// errorResponse is the error body the shop API returns on non-2xx.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
