// Package catalog is the HTTP client for the catalog (product) service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/merchkit/order-service/internal/gateway"
	"github.com/merchkit/order-service/internal/order/domain"
)

// Client talks to the catalog service over JSON/HTTP. As with the cart
// client, there is deliberately no timeout and no retry.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetProduct fetches a point-in-time snapshot of one product.
func (c *Client) GetProduct(ctx context.Context, productID, authToken string) (*domain.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/api/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build product request: %v", gateway.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get product %s: %v", gateway.ErrUnavailable, productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var snap domain.ProductSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return nil, fmt.Errorf("%w: decode product %s: %v", gateway.ErrUnavailable, productID, err)
		}
		return &snap, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: product %s", gateway.ErrNotFound, productID)
	default:
		return nil, fmt.Errorf("%w: get product %s: status %d", gateway.ErrUnavailable, productID, resp.StatusCode)
	}
}

type stockAdjustment struct {
	Delta int64 `json:"delta"`
}

// AdjustStock applies a signed stock delta: negative to reserve stock for a
// new order, positive to restore it on cancellation. The catalog service is
// the one that rejects a decrement that would go negative — this client
// never computes "new stock" itself.
func (c *Client) AdjustStock(ctx context.Context, productID string, delta int64, authToken string) error {
	body, err := json.Marshal(stockAdjustment{Delta: delta})
	if err != nil {
		return fmt.Errorf("%w: marshal stock adjustment: %v", gateway.ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/api/products/%s/stock", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build stock request: %v", gateway.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: adjust stock of %s: %v", gateway.ErrUnavailable, productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: product %s", gateway.ErrNotFound, productID)
	case http.StatusConflict:
		return fmt.Errorf("%w: product %s, delta %d", gateway.ErrInsufficientStock, productID, delta)
	default:
		return fmt.Errorf("%w: adjust stock of %s: status %d", gateway.ErrUnavailable, productID, resp.StatusCode)
	}
}
