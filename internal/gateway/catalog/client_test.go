package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/order-service/internal/gateway"
)

func TestGetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products/prod-a", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"prod-a","name":"Widget","price":10000,"stock_quantity":7,"active":true,"store_id":"store-1"}`))
	}))
	defer srv.Close()

	snap, err := New(srv.URL).GetProduct(context.Background(), "prod-a", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Widget", snap.Name)
	assert.Equal(t, int64(10000), snap.PriceCents)
	assert.Equal(t, int64(7), snap.StockQuantity)
	assert.True(t, snap.Available())
}

func TestGetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetProduct(context.Background(), "ghost", "tok")
	require.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestGetProductServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetProduct(context.Background(), "prod-a", "tok")
	require.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestAdjustStock(t *testing.T) {
	var gotBody stockAdjustment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/products/prod-a/stock", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).AdjustStock(context.Background(), "prod-a", -3, "tok"))
	assert.Equal(t, int64(-3), gotBody.Delta)
}

func TestAdjustStockInsufficient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := New(srv.URL).AdjustStock(context.Background(), "prod-a", -3, "tok")
	require.ErrorIs(t, err, gateway.ErrInsufficientStock)
}

func TestAdjustStockProductGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL).AdjustStock(context.Background(), "ghost", -1, "tok")
	require.ErrorIs(t, err, gateway.ErrNotFound)
}
