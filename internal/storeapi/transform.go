package storeapi

import "storefront-sync/internal/model"

// CartFromResponse normalizes a cart payload into canonical lines.
// Lines without a product id are dropped.
func CartFromResponse(resp *cartResponse) []model.CartLine {
	items := resp.lines()
	lines := make([]model.CartLine, 0, len(items))
	for _, item := range items {
		productID := string(item.ProductID)
		if productID == "" && item.Product != nil {
			productID = string(item.Product.ID)
		}
		if productID == "" {
			continue
		}
		lines = append(lines, model.CartLine{
			ID:        string(item.ID),
			ProductID: productID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Product:   ProductFromDTO(item.Product),
		})
	}
	return lines
}

// WishlistFromResponse projects wishlist rows to entries.
func WishlistFromResponse(resp *wishlistResponse) []model.WishlistEntry {
	entries := make([]model.WishlistEntry, 0, len(resp.WishlistItems))
	for _, item := range resp.WishlistItems {
		productID := string(item.ProductID)
		if item.Product != nil && item.Product.ID != "" {
			productID = string(item.Product.ID)
		}
		if productID == "" {
			continue
		}
		entries = append(entries, model.WishlistEntry{
			ProductID: productID,
			Product:   ProductFromDTO(item.Product),
		})
	}
	return entries
}

// ProductFromDTO converts a product payload. Returns nil for nil input.
func ProductFromDTO(p *productDTO) *model.Product {
	if p == nil {
		return nil
	}
	image := p.Image
	if image == "" && len(p.Images) > 0 {
		image = p.Images[0]
	}
	return &model.Product{
		ID:       string(p.ID),
		Name:     p.Name,
		Price:    int64(p.Price),
		Currency: p.Currency,
		Image:    image,
		Stock:    p.Stock,
	}
}

// productFromEnvelope unwraps {product: {...}} or a bare product.
func productFromEnvelope(env *productEnvelope) *model.Product {
	if env.Product != nil {
		return ProductFromDTO(env.Product)
	}
	if env.productDTO.ID == "" {
		return nil
	}
	return ProductFromDTO(&env.productDTO)
}

func userFromEnvelope(env *userEnvelope) *model.User {
	if env.User == nil || env.User.ID == "" {
		return nil
	}
	return &model.User{
		ID:    string(env.User.ID),
		Email: env.User.Email,
		Name:  env.User.Name,
	}
}
