// Package query is the read side of the order service: lookups plus the
// purchase-history predicate consumed by the review access-control
// collaborator. Single-order reads go through redis; cache failures degrade
// to a plain store read.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/merchkit/order-service/internal/order/domain"
	"github.com/merchkit/order-service/internal/pkg/cache"
)

// Store is the read-side persistence port.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	ExistsByUserAndProduct(ctx context.Context, userID, productID string) (bool, error)
}

const (
	opOrder    = "order"
	opUserList = "orders_by_user"
	defaultTTL = 5 * time.Minute
)

// Service answers reads. cache may be nil, which disables caching entirely.
type Service struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
}

func NewService(store Store, c cache.Cache) *Service {
	return &Service{store: store, cache: c, ttl: defaultTTL}
}

// GetOrderByID returns the order or domain.ErrOrderNotFound. Reads are
// idempotent: absent interleaved writes, two calls return identical data.
func (s *Service) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey(opOrder, id)
		if raw, err := s.cache.Get(ctx, key); err != nil {
			slog.WarnContext(ctx, "order cache read failed", "order_id", id, "error", err)
		} else if raw != "" {
			var o domain.Order
			if err := json.Unmarshal([]byte(raw), &o); err == nil {
				return &o, nil
			}
			// Corrupt entry: fall through to the store, the next Set
			// overwrites it.
		}
	}

	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(o); err == nil {
			key := s.cache.GenerateKey(opOrder, id)
			if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
				slog.WarnContext(ctx, "order cache write failed", "order_id", id, "error", err)
			}
		}
	}
	return o, nil
}

// ListUserOrders returns the user's orders, newest first. Lists are not
// cached as payloads — only invalidated — because a user's list changes on
// every order they place.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// HasUserPurchased reports whether the user has a non-pending,
// non-cancelled order containing the product. Consumed by the review
// service to gate "verified purchase" content.
func (s *Service) HasUserPurchased(ctx context.Context, userID, productID string) (bool, error) {
	return s.store.ExistsByUserAndProduct(ctx, userID, productID)
}

// InvalidateOrder implements the orchestrator's cache invalidation hook.
func (s *Service) InvalidateOrder(ctx context.Context, orderID, userID string) {
	if s.cache == nil {
		return
	}
	err := s.cache.Del(ctx,
		s.cache.GenerateKey(opOrder, orderID),
		s.cache.GenerateKey(opUserList, userID),
	)
	if err != nil {
		slog.WarnContext(ctx, "order cache invalidation failed",
			"order_id", orderID, "user_id", userID, "error", err)
	}
}
