// Package storeapi is the HTTP client for the shop's REST API.
// It implements adapter.RemoteStore.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/model"
	"storefront-sync/internal/transport"
)

// serviceName labels upstream errors.
const serviceName = "shop API"

// userAgent identifies this client to the shop API.
const userAgent = "Storefront-Sync/1.0"

// maxResponseSize caps decoded response bodies.
const maxResponseSize = 4 << 20

// API paths.
const (
	pathCart           = "/api/cart"
	pathCartAdd        = "/api/cart/add"
	pathCartUpdate     = "/api/cart/update/"
	pathCartRemove     = "/api/cart/remove/"
	pathCartClear      = "/api/cart/clear"
	pathWishlist       = "/api/wishlist"
	pathWishlistAdd    = "/api/wishlist/add/"
	pathWishlistRemove = "/api/wishlist/remove/"
	pathWishlistClear  = "/api/wishlist/clear"
	pathProducts       = "/api/products/"
	pathCurrentUser    = "/api/auth/me"
)

// Config holds client settings.
type Config struct {
	BaseURL string

	// RequestTimeout bounds every call, including reading the body.
	// Zero means 15s.
	RequestTimeout time.Duration

	// FingerprintTLS dials with a Chrome TLS fingerprint.
	FingerprintTLS bool

	// HTTPClient overrides the client built from the fields above.
	HTTPClient *http.Client
}

// Client talks to the shop API on behalf of a visitor.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: transport.New(transport.Options{
				DialTimeout:    timeout,
				FingerprintTLS: cfg.FingerprintTLS,
				UserAgent:      userAgent,
			}),
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// === Cart ===

// FetchCart returns the authenticated cart.
func (c *Client) FetchCart(ctx context.Context, token string) ([]model.CartLine, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, pathCart, token, nil, &resp); err != nil {
		return nil, err
	}
	return CartFromResponse(&resp), nil
}

// AddToCart posts a line to the cart. The token may be empty for the
// guest-compatible variant of the endpoint.
func (c *Client) AddToCart(ctx context.Context, token string, req adapter.AddToCartRequest) error {
	return c.do(ctx, http.MethodPost, pathCartAdd, token, req, nil)
}

// UpdateCartItem sets a line's quantity by row id.
func (c *Client) UpdateCartItem(ctx context.Context, token, itemID string, quantity int) error {
	return c.do(ctx, http.MethodPut, pathCartUpdate+url.PathEscape(itemID), token,
		updateQuantityRequest{Quantity: quantity}, nil)
}

// RemoveCartItem deletes a line by row id.
func (c *Client) RemoveCartItem(ctx context.Context, token, itemID string) error {
	return c.do(ctx, http.MethodDelete, pathCartRemove+url.PathEscape(itemID), token, nil, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, pathCartClear, token, nil, nil)
}

// === Wishlist ===

// FetchWishlist returns the saved products.
func (c *Client) FetchWishlist(ctx context.Context, token string) ([]model.WishlistEntry, error) {
	var resp wishlistResponse
	if err := c.do(ctx, http.MethodGet, pathWishlist, token, nil, &resp); err != nil {
		return nil, err
	}
	return WishlistFromResponse(&resp), nil
}

// AddToWishlist saves a product.
func (c *Client) AddToWishlist(ctx context.Context, token, productID string) error {
	return c.do(ctx, http.MethodPost, pathWishlistAdd+url.PathEscape(productID), token, nil, nil)
}

// RemoveFromWishlist unsaves a product.
func (c *Client) RemoveFromWishlist(ctx context.Context, token, productID string) error {
	return c.do(ctx, http.MethodDelete, pathWishlistRemove+url.PathEscape(productID), token, nil, nil)
}

// ClearWishlist removes every saved product.
func (c *Client) ClearWishlist(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, pathWishlistClear, token, nil, nil)
}

// === Catalog and identity ===

// GetProduct fetches one product's details.
func (c *Client) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if productID == "" {
		return nil, model.NewValidationError("product_id", "required")
	}
	var env productEnvelope
	if err := c.do(ctx, http.MethodGet, pathProducts+url.PathEscape(productID), "", nil, &env); err != nil {
		return nil, err
	}
	p := productFromEnvelope(&env)
	if p == nil {
		return nil, model.NewNotFoundError("product")
	}
	return p, nil
}

// CurrentUser resolves a bearer token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError("token required")
	}
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, pathCurrentUser, token, nil, &env); err != nil {
		return nil, err
	}
	u := userFromEnvelope(&env)
	if u == nil {
		return nil, model.NewUnauthorizedError("token not recognized")
	}
	return u, nil
}

// === Helpers ===

// do executes one API call. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, token, body != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewUpstreamError(serviceName, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return model.NewUpstreamError(serviceName, fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// parseErrorResponse converts a non-2xx response into an APIError.
func parseErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	json.Unmarshal(body, &apiErr) // best effort

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError("resource")
	case http.StatusUnauthorized, http.StatusForbidden:
		msg := apiErr.text()
		if msg == "" {
			msg = "shop API rejected credentials"
		}
		return model.NewUnauthorizedError(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		msg := apiErr.text()
		if msg == "" {
			msg = "rejected by shop API"
		}
		return model.NewValidationError("request", msg)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError(serviceName)
	default:
		return model.NewUpstreamError(serviceName,
			fmt.Errorf("status %d: %s", statusCode, apiErr.text()))
	}
}

// Verify Client implements RemoteStore at compile time.
var _ adapter.RemoteStore = (*Client)(nil)
