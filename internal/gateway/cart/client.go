// Package cart is the HTTP client for the cart service.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/merchkit/order-service/internal/gateway"
	"github.com/merchkit/order-service/internal/order/domain"
)

// Client talks to the cart service over JSON/HTTP. The caller's token is an
// explicit parameter on every call — the cart service resolves the cart
// owner from it, so there is no user id in the URL.
//
// No timeout and no retry is configured here: a hung cart service blocks
// the calling request.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client against the given base URL (e.g. "http://cart-service:3002").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FetchCart returns the caller's current cart. An existing-but-empty cart
// comes back as a snapshot with zero items, not as an error.
func (c *Client) FetchCart(ctx context.Context, authToken string) (*domain.CartSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cart", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build cart request: %v", gateway.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch cart: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var snap domain.CartSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return nil, fmt.Errorf("%w: decode cart: %v", gateway.ErrUnavailable, err)
		}
		return &snap, nil
	case http.StatusNotFound:
		// The cart service never materialises a cart until the first item
		// is added; treat a missing cart as an empty one.
		return &domain.CartSnapshot{}, nil
	default:
		return nil, fmt.Errorf("%w: fetch cart: status %d", gateway.ErrUnavailable, resp.StatusCode)
	}
}

// ClearCart empties the caller's cart. The orchestrator treats a failure
// here as best-effort, but the error is still reported so it can be logged.
func (c *Client) ClearCart(ctx context.Context, authToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/cart", nil)
	if err != nil {
		return fmt.Errorf("%w: build clear request: %v", gateway.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: clear cart: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: clear cart: status %d", gateway.ErrUnavailable, resp.StatusCode)
	}
	return nil
}
