package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merchkit/order-service/internal/gateway/cart"
	"github.com/merchkit/order-service/internal/gateway/catalog"
	"github.com/merchkit/order-service/internal/httpx"
	"github.com/merchkit/order-service/internal/httpx/middlewares"
	flowsqlite "github.com/merchkit/order-service/internal/order/flowlog/sqlite"
	"github.com/merchkit/order-service/internal/order/orchestrator"
	"github.com/merchkit/order-service/internal/order/query"
	ordersqlite "github.com/merchkit/order-service/internal/order/store/sqlite"
	"github.com/merchkit/order-service/internal/pkg/cache"
	"github.com/merchkit/order-service/internal/pkg/metrics"
	"github.com/merchkit/order-service/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "order-service"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := ordersqlite.Open(getEnv("ORDER_DB_PATH", "./data/orders.db"))
	if err != nil {
		slog.Error("failed to open order store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	flowRepo, err := flowsqlite.Open(getEnv("FLOWLOG_DB_PATH", "./data/orderflow.db"))
	if err != nil {
		slog.Error("failed to open flow log", "error", err)
		os.Exit(1)
	}
	defer flowRepo.Close()

	redisCache := cache.NewRedisCache(getEnv("REDIS_ADDR", "redis-cache:6379"), "order")
	queries := query.NewService(store, redisCache)

	orderMetrics := metrics.NewOrderMetrics()

	carts := cart.New(getEnv("CART_SERVICE_URL", "http://cart-service:3002"))
	products := catalog.New(getEnv("CATALOG_SERVICE_URL", "http://catalog-service:3003"))

	orch := orchestrator.New(carts, products, store,
		orchestrator.WithFlowLog(flowRepo),
		orchestrator.WithMetrics(orderMetrics),
		orchestrator.WithCacheInvalidation(queries),
	)

	handler := httpx.NewHandler(orch, queries)
	auth := middlewares.RequireAuth(getEnv("AUTH_SERVICE_URL", "http://auth-service:3001"))
	router := httpx.NewRouter(handler, auth)

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("order service running", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("order service stopped")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
