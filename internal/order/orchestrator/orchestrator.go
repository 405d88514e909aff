// Package orchestrator drives the order create/cancel workflow across the
// cart service, the catalog service and the local order store.
//
// There is no shared transaction behind this workflow — no two-phase commit
// and no broker. Correctness rests entirely on the ordering of the remote
// calls, on the store's local transaction, and on best-effort compensation.
// Two known consistency gaps are part of the contract and must not be
// "fixed" here:
//
//   - A stock decrement that fails midway is not compensated: earlier
//     decrements of the same order stand, and the order row stays PENDING
//     with no expiry or cleanup job picking it up.
//   - A confirm write that fails after the stock was committed is logged
//     and swallowed; the caller still receives a CONFIRMED order while the
//     store may say PENDING.
//
// The gateways are ports so a later design can slot proper compensation in
// behind them without touching callers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/merchkit/order-service/internal/gateway"
	"github.com/merchkit/order-service/internal/order/domain"
	"github.com/merchkit/order-service/internal/order/flowlog"
	"github.com/merchkit/order-service/internal/pkg/metrics"
)

// CartGateway is the collaborator contract against the cart service. The
// caller's token accompanies every call explicitly; it is never ambient.
type CartGateway interface {
	FetchCart(ctx context.Context, authToken string) (*domain.CartSnapshot, error)
	ClearCart(ctx context.Context, authToken string) error
}

// CatalogGateway is the collaborator contract against the catalog service.
// The sign of delta distinguishes a decrement (order creation) from an
// increment (cancellation); the catalog rejects decrements that would drive
// stock negative.
type CatalogGateway interface {
	GetProduct(ctx context.Context, productID, authToken string) (*domain.ProductSnapshot, error)
	AdjustStock(ctx context.Context, productID string, delta int64, authToken string) error
}

// Store is the durable order persistence port.
type Store interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// CacheInvalidator drops cached reads after a write. Nil-safe: the
// orchestrator works without one.
type CacheInvalidator interface {
	InvalidateOrder(ctx context.Context, orderID, userID string)
}

// CreateOrderCommand carries everything CreateOrder needs. AuthToken is the
// capability token of the requesting user, threaded through to every
// gateway call.
type CreateOrderCommand struct {
	UserID          string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethod   string
	AuthToken       string
}

// Orchestrator coordinates the order workflow. Flow log, metrics and cache
// are optional; gateways and store are not.
type Orchestrator struct {
	carts   CartGateway
	catalog CatalogGateway
	store   Store
	flow    flowlog.Repository
	metrics *metrics.OrderMetrics
	cache   CacheInvalidator
	tracer  trace.Tracer
}

func New(carts CartGateway, catalog CatalogGateway, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		carts:   carts,
		catalog: catalog,
		store:   store,
		tracer:  otel.Tracer("order-orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type Option func(*Orchestrator)

// WithFlowLog enables the append-only workflow audit trail.
func WithFlowLog(repo flowlog.Repository) Option {
	return func(o *Orchestrator) { o.flow = repo }
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCacheInvalidation drops cached reads after every write.
func WithCacheInvalidation(c CacheInvalidator) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// CreateOrder turns the caller's cart into a durable order:
//
//	fetch cart → validate every line → persist PENDING →
//	decrement stock per line → clear cart (best effort) → confirm.
//
// All validation happens before any write; one invalid line aborts the
// whole request. After the PENDING row exists, failures no longer undo
// anything — see the package comment for the gaps that implies.
func (o *Orchestrator) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	ctx, span := o.tracer.Start(ctx, "CreateOrder")
	defer span.End()
	started := time.Now()

	o.logFlow(ctx, "", cmd.UserID, flowlog.StatusStarted, flowlog.StepFetchCart, nil)

	// 1. Cart.
	cart, err := o.carts.FetchCart(ctx, cmd.AuthToken)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrCartUnreachable, err)
		return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepFetchCart, "rejected", err)
	}
	if len(cart.Items) == 0 {
		return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepFetchCart, "rejected", domain.ErrEmptyCart)
	}

	// 2. Validate every line against the catalog before writing anything.
	snapshots := make([]*domain.ProductSnapshot, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Quantity <= 0 {
			err := fmt.Errorf("%w: quantity %d for product %s", domain.ErrInvalidOrder, line.Quantity, line.ProductID)
			return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepValidateLines, "rejected", err)
		}

		snap, err := o.catalog.GetProduct(ctx, line.ProductID, cmd.AuthToken)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				err = fmt.Errorf("%w: %s", domain.ErrProductNotFound, line.ProductID)
			} else {
				err = fmt.Errorf("%w: %v", domain.ErrCatalogUnreachable, err)
			}
			return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepValidateLines, "rejected", err)
		}
		if !snap.Available() {
			err := fmt.Errorf("%w: %s", domain.ErrProductUnavailable, line.ProductID)
			return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepValidateLines, "rejected", err)
		}
		if snap.StockQuantity < line.Quantity {
			err := fmt.Errorf("%w: product %s has %d, requested %d",
				domain.ErrInsufficientStock, line.ProductID, snap.StockQuantity, line.Quantity)
			return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepValidateLines, "rejected", err)
		}
		snapshots = append(snapshots, snap)
	}

	// 3. Assemble the order in memory, snapshotting names and prices now.
	order := &domain.Order{
		UserID:          cmd.UserID,
		Status:          domain.StatusPending,
		ShippingAddress: cmd.ShippingAddress,
		BillingAddress:  cmd.BillingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		Items:           make([]domain.OrderItem, 0, len(cart.Items)),
	}
	for i, line := range cart.Items {
		order.Items = append(order.Items, domain.NewOrderItem(snapshots[i], line.Quantity))
	}
	order.TotalCents = order.ComputeTotal()
	if order.TotalCents <= 0 {
		err := fmt.Errorf("%w: total %d", domain.ErrInvalidOrder, order.TotalCents)
		return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepValidateLines, "rejected", err)
	}

	// 4. Persist PENDING. The only point where a failure leaves no
	// observable side effect at all.
	if err := o.store.Create(ctx, order); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrStorage, err)
		return nil, o.rejectCreate(ctx, cmd.UserID, flowlog.StepPersistOrder, "storage_error", err)
	}
	o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusStepDone, flowlog.StepPersistOrder, nil)

	// 5. Commit stock, one line at a time. A failure surfaces the error
	// and stops — decrements already applied stay applied, and the order
	// row stays PENDING.
	for _, it := range order.Items {
		if err := o.catalog.AdjustStock(ctx, it.ProductID, -it.Quantity, cmd.AuthToken); err != nil {
			switch {
			case errors.Is(err, gateway.ErrInsufficientStock):
				err = fmt.Errorf("%w: product %s", domain.ErrStockConflict, it.ProductID)
			case errors.Is(err, gateway.ErrNotFound):
				err = fmt.Errorf("%w: product %s", domain.ErrProductGone, it.ProductID)
			default:
				err = fmt.Errorf("%w: product %s: %v", domain.ErrStockUpdateFailed, it.ProductID, err)
			}
			slog.ErrorContext(ctx, "stock decrement failed, order left pending",
				"order_id", order.ID, "product_id", it.ProductID, "error", err)
			o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusFailed, flowlog.StepAdjustStock,
				[]string{err.Error()})
			if o.metrics != nil {
				o.metrics.StockAdjustFails.Inc()
				o.metrics.StrandedOrders.Inc()
			}
			o.countOutcome("stranded")
			return nil, err
		}
	}
	o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusStepDone, flowlog.StepAdjustStock, nil)

	// 6. Clear the cart. Best effort: a stale cart is a lesser harm than
	// losing a placed order.
	if err := o.carts.ClearCart(ctx, cmd.AuthToken); err != nil {
		slog.WarnContext(ctx, "cart clear failed, continuing",
			"order_id", order.ID, "user_id", cmd.UserID, "error", err)
		o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusStepSkipped, flowlog.StepClearCart,
			[]string{err.Error()})
	}

	// 7. Confirm. If this write fails the caller still gets a CONFIRMED
	// order while the store may say PENDING — a known inconsistency
	// window that needs manual intervention, not a silent patch.
	order.Status = domain.StatusConfirmed
	if err := o.store.UpdateStatus(ctx, order.ID, domain.StatusConfirmed); err != nil {
		slog.ErrorContext(ctx, "CRITICAL: confirm write failed after stock commit, manual intervention required",
			"order_id", order.ID, "user_id", cmd.UserID, "error", err)
		o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusStepSkipped, flowlog.StepConfirmOrder,
			[]string{err.Error()})
	}

	o.invalidate(ctx, order.ID, cmd.UserID)
	o.logFlow(ctx, order.ID, cmd.UserID, flowlog.StatusCompleted, flowlog.StepConfirmOrder, nil)
	o.countOutcome("confirmed")
	if o.metrics != nil {
		o.metrics.CreateLatencyMS.Observe(float64(time.Since(started).Milliseconds()))
	}
	slog.InfoContext(ctx, "order confirmed",
		"order_id", order.ID, "user_id", cmd.UserID, "total_cents", order.TotalCents)

	return order, nil
}

// UpdateOrderStatus overwrites the order's status. The only transition with
// a side effect is CANCELLED, which restores stock per item; that loop
// stops at the first failing product and surfaces nothing — the status
// update itself has already succeeded and is not rolled back.
func (o *Orchestrator) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, authToken string) (*domain.Order, error) {
	order, err := o.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if err := o.store.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOrderUpdateFailed, err)
	}
	order.Status = status

	if status == domain.StatusCancelled {
		o.restoreStock(ctx, order, authToken)
	}

	o.invalidate(ctx, order.ID, order.UserID)
	return order, nil
}

// restoreStock adds each item's quantity back to the catalog. The first
// failure aborts the remaining restorations; later items are silently left
// un-restored. Failures are logged as critical and never retried.
func (o *Orchestrator) restoreStock(ctx context.Context, order *domain.Order, authToken string) {
	for _, it := range order.Items {
		if err := o.catalog.AdjustStock(ctx, it.ProductID, it.Quantity, authToken); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: stock restoration failed, remaining items not restored",
				"order_id", order.ID, "product_id", it.ProductID, "error", err)
			o.logFlow(ctx, order.ID, order.UserID, flowlog.StatusRestoreAborted, flowlog.StepRestoreStock,
				[]string{err.Error()})
			if o.metrics != nil {
				o.metrics.StockAdjustFails.Inc()
			}
			return
		}
	}
	o.logFlow(ctx, order.ID, order.UserID, flowlog.StatusStepDone, flowlog.StepRestoreStock, nil)
}

// rejectCreate records a failed creation attempt and passes the error back
// unchanged.
func (o *Orchestrator) rejectCreate(ctx context.Context, userID, step, outcome string, err error) error {
	slog.InfoContext(ctx, "order creation rejected", "user_id", userID, "step", step, "error", err)
	o.logFlow(ctx, "", userID, flowlog.StatusFailed, step, []string{err.Error()})
	o.countOutcome(outcome)
	return err
}

// logFlow appends to the audit trail, best effort.
func (o *Orchestrator) logFlow(ctx context.Context, orderID, userID string, status flowlog.Status, step string, errs []string) {
	if o.flow == nil {
		return
	}
	entry := flowlog.NewEntry(ctx, orderID, userID, status, step, errs)
	if err := o.flow.Append(ctx, entry); err != nil {
		slog.WarnContext(ctx, "flow log append failed", "order_id", orderID, "error", err)
	}
}

func (o *Orchestrator) invalidate(ctx context.Context, orderID, userID string) {
	if o.cache != nil {
		o.cache.InvalidateOrder(ctx, orderID, userID)
	}
}

func (o *Orchestrator) countOutcome(outcome string) {
	if o.metrics != nil {
		o.metrics.OrdersCreated.WithLabelValues(outcome).Inc()
	}
}
