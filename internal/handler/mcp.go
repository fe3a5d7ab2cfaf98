// MCP transport for agents using the official MCP Go SDK.
// Exposes cart and wishlist operations as MCP tools. MCP requests carry
// no Storefront-Session header, so each tool takes the session id in its
// arguments and returns it for the next call.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront-sync/internal/cart"
	"storefront-sync/internal/model"
	"storefront-sync/internal/session"
)

// === MCP Tool Input/Output Types ===

// SessionInput selects the storefront session.
type SessionInput struct {
	Session string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	Session   string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
	ProductID string `json:"product_id" jsonschema:"product to add"`
	Quantity  int    `json:"quantity,omitempty" jsonschema:"units to add, default 1"`
	Size      string `json:"size,omitempty" jsonschema:"size selector"`
	Color     string `json:"color,omitempty" jsonschema:"color selector"`
}

// UpdateCartItemInput is the input schema for update_cart_item.
type UpdateCartItemInput struct {
	Session  string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
	LineID   string `json:"line_id" jsonschema:"line id from get_cart"`
	Quantity int    `json:"quantity" jsonschema:"new quantity, at least 1"`
}

// RemoveCartItemInput is the input schema for remove_cart_item.
type RemoveCartItemInput struct {
	Session string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
	LineID  string `json:"line_id" jsonschema:"line id from get_cart"`
}

// ToggleWishlistInput is the input schema for toggle_wishlist.
type ToggleWishlistInput struct {
	Session   string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
	ProductID string `json:"product_id" jsonschema:"product to save or unsave"`
}

// SignInInput is the input schema for sign_in.
type SignInInput struct {
	Session string `json:"session,omitempty" jsonschema:"storefront session id; omit to start a guest session"`
	Token   string `json:"token" jsonschema:"shop bearer token"`
}

// CartOutput is returned by every cart tool.
type CartOutput struct {
	Session string           `json:"session"`
	Lines   []model.CartLine `json:"lines"`
	Count   int              `json:"count"`
}

// WishlistOutput is returned by every wishlist tool.
type WishlistOutput struct {
	Session string                `json:"session"`
	Items   []model.WishlistEntry `json:"items"`
	IDs     []string              `json:"ids"`
}

// SessionOutput is returned by sign_in and sign_out.
type SessionOutput struct {
	Session       string      `json:"session"`
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
// The tools expose the same operations as the REST API.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-sync",
			Version: session.ServerVersion,
		},
		&mcp.ServerOptions{
			Instructions: "Storefront cart and wishlist. Pass the session returned by any tool " +
				"to later calls to keep working on the same cart. Wishlist tools require sign_in.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart lines with product details and the item count.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add units of a product to the cart. Repeated adds accumulate.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Set the quantity of a cart line.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cart",
		Description: "Remove every line from the cart.",
	}, h.mcpClearCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_wishlist",
		Description: "Get saved products. Empty for guests.",
	}, h.mcpGetWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_wishlist",
		Description: "Save a product, or unsave it if already saved. Requires sign_in.",
	}, h.mcpToggleWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sign_in",
		Description: "Sign the session in with a shop bearer token. The guest cart is merged into the account cart.",
	}, h.mcpSignIn)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sign_out",
		Description: "Return the session to guest.",
	}, h.mcpSignOut)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)
	return nil, h.cartOutput(ctx, s), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)

	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	err := s.Cart.Add(ctx, cart.AddRequest{
		ProductID: input.ProductID,
		Quantity:  qty,
		Size:      input.Size,
		Color:     input.Color,
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.cartOutput(ctx, s), nil
}

func (h *Handler) mcpUpdateCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateCartItemInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	if input.LineID == "" {
		return nil, nil, fmt.Errorf("line_id is required")
	}
	s, _ := h.sessions.Resolve(ctx, input.Session)

	if err := s.Cart.UpdateQuantity(ctx, input.LineID, input.Quantity); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.cartOutput(ctx, s), nil
}

func (h *Handler) mcpRemoveCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveCartItemInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	if input.LineID == "" {
		return nil, nil, fmt.Errorf("line_id is required")
	}
	s, _ := h.sessions.Resolve(ctx, input.Session)

	if err := s.Cart.Remove(ctx, input.LineID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.cartOutput(ctx, s), nil
}

func (h *Handler) mcpClearCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)

	if err := s.Cart.Clear(ctx); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.cartOutput(ctx, s), nil
}

func (h *Handler) mcpGetWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *WishlistOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)
	return nil, wishlistOutput(ctx, s), nil
}

func (h *Handler) mcpToggleWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ToggleWishlistInput,
) (*mcp.CallToolResult, *WishlistOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)

	if _, err := s.Wishlist.Toggle(ctx, input.ProductID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, wishlistOutput(ctx, s), nil
}

func (h *Handler) mcpSignIn(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SignInInput,
) (*mcp.CallToolResult, *SessionOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)

	user, err := s.Login(ctx, input.Token)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &SessionOutput{Session: s.ID, Authenticated: true, User: user}, nil
}

func (h *Handler) mcpSignOut(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *SessionOutput, error) {
	s, _ := h.sessions.Resolve(ctx, input.Session)
	s.Logout(ctx)
	return nil, &SessionOutput{Session: s.ID}, nil
}

func (h *Handler) cartOutput(ctx context.Context, s *session.Session) *CartOutput {
	lines := s.Cart.Lines(ctx)
	if lines == nil {
		lines = []model.CartLine{}
	}
	return &CartOutput{Session: s.ID, Lines: lines, Count: s.Cart.Refresh(ctx)}
}

func wishlistOutput(ctx context.Context, s *session.Session) *WishlistOutput {
	entries := s.Wishlist.Entries(ctx)
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	ids := model.ProductIDs(entries)
	if ids == nil {
		ids = []string{}
	}
	return &WishlistOutput{Session: s.ID, Items: entries, IDs: ids}
}

// mcpError converts manager errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
