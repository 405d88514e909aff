package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/order-service/internal/gateway"
	"github.com/merchkit/order-service/internal/order/domain"
	ordersqlite "github.com/merchkit/order-service/internal/order/store/sqlite"
)

const testToken = "token-123"

type fakeCartGateway struct {
	snapshot   *domain.CartSnapshot
	fetchErr   error
	clearErr   error
	clearCalls int
	tokens     []string
}

func (f *fakeCartGateway) FetchCart(_ context.Context, authToken string) (*domain.CartSnapshot, error) {
	f.tokens = append(f.tokens, authToken)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakeCartGateway) ClearCart(_ context.Context, authToken string) error {
	f.tokens = append(f.tokens, authToken)
	f.clearCalls++
	return f.clearErr
}

type stockCall struct {
	productID string
	delta     int64
}

type fakeCatalogGateway struct {
	products  map[string]*domain.ProductSnapshot
	getErr    map[string]error
	adjustErr map[string]error
	calls     []stockCall
	tokens    []string
}

func (f *fakeCatalogGateway) GetProduct(_ context.Context, productID, authToken string) (*domain.ProductSnapshot, error) {
	f.tokens = append(f.tokens, authToken)
	if err := f.getErr[productID]; err != nil {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", gateway.ErrNotFound, productID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalogGateway) AdjustStock(_ context.Context, productID string, delta int64, authToken string) error {
	f.tokens = append(f.tokens, authToken)
	f.calls = append(f.calls, stockCall{productID: productID, delta: delta})
	return f.adjustErr[productID]
}

func newTestStore(t *testing.T) *ordersqlite.Store {
	t.Helper()
	store, err := ordersqlite.Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func product(id, name string, priceCents, stock int64) *domain.ProductSnapshot {
	return &domain.ProductSnapshot{
		ID:            id,
		Name:          name,
		PriceCents:    priceCents,
		StockQuantity: stock,
		Active:        true,
		StoreID:       "store-1",
	}
}

func testCommand() CreateOrderCommand {
	return CreateOrderCommand{
		UserID: "user-1",
		ShippingAddress: domain.Address{
			Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		BillingAddress: domain.Address{
			Line1: "2 Oak Ave", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "credit_card",
		AuthToken:     testToken,
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items: []domain.CartLine{
			{ProductID: "prod-a", Quantity: 2},
			{ProductID: "prod-b", Quantity: 1},
		},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 10),
		"prod-b": product("prod-b", "Gadget", 5000, 5),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	order, err := orch.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, order.Status)
	assert.Equal(t, int64(25000), order.TotalCents)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Widget", order.Items[0].ProductName)
	assert.Equal(t, int64(10000), order.Items[0].PriceCents)
	assert.Equal(t, int64(20000), order.Items[0].Subtotal)
	assert.Equal(t, "Gadget", order.Items[1].ProductName)
	assert.Equal(t, int64(5000), order.Items[1].Subtotal)

	// Stock committed with the cart's quantities, in line order.
	assert.Equal(t, []stockCall{
		{productID: "prod-a", delta: -2},
		{productID: "prod-b", delta: -1},
	}, catalog.calls)
	assert.Equal(t, 1, carts.clearCalls)

	// The token travelled with every outbound call.
	for _, tok := range append(carts.tokens, catalog.tokens...) {
		assert.Equal(t, testToken, tok)
	}

	// Durable state matches the response.
	persisted, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, persisted.Status)
	assert.Equal(t, int64(25000), persisted.TotalCents)
	require.Len(t, persisted.Items, 2)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{UserID: "user-1"}}
	catalog := &fakeCatalogGateway{}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	orders, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, catalog.calls)
}

func TestCreateOrderCartUnreachable(t *testing.T) {
	carts := &fakeCartGateway{fetchErr: fmt.Errorf("%w: connection refused", gateway.ErrUnavailable)}
	orch := New(carts, &fakeCatalogGateway{}, newTestStore(t))

	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrCartUnreachable)
}

func TestCreateOrderProductNotFound(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items:  []domain.CartLine{{ProductID: "ghost", Quantity: 1}},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	orders, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderProductInactive(t *testing.T) {
	inactive := product("prod-a", "Widget", 10000, 10)
	inactive.Active = false

	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items:  []domain.CartLine{{ProductID: "prod-a", Quantity: 1}},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{"prod-a": inactive}}

	orch := New(carts, catalog, newTestStore(t))
	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items:  []domain.CartLine{{ProductID: "prod-a", Quantity: 5}},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 2),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Validation failed before any write: no order, no stock movement.
	orders, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, catalog.calls)
}

// TestCreateOrderPartialDecrementFailure documents the non-atomicity of the
// stock commit: the first line's decrement stands, the order row stays
// PENDING forever, and the caller sees an error.
func TestCreateOrderPartialDecrementFailure(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items: []domain.CartLine{
			{ProductID: "prod-a", Quantity: 1},
			{ProductID: "prod-b", Quantity: 1},
		},
	}}
	catalog := &fakeCatalogGateway{
		products: map[string]*domain.ProductSnapshot{
			"prod-a": product("prod-a", "Widget", 10000, 10),
			"prod-b": product("prod-b", "Gadget", 5000, 5),
		},
		adjustErr: map[string]error{
			"prod-b": fmt.Errorf("%w: prod-b", gateway.ErrInsufficientStock),
		},
	}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	_, err := orch.CreateOrder(context.Background(), testCommand())
	require.ErrorIs(t, err, domain.ErrStockConflict)

	// A's decrement was applied, B's was attempted and refused, and no
	// compensation ran for A.
	assert.Equal(t, []stockCall{
		{productID: "prod-a", delta: -1},
		{productID: "prod-b", delta: -1},
	}, catalog.calls)

	// The order row exists and is stranded in PENDING.
	orders, err := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusPending, orders[0].Status)

	// The cart was never cleared.
	assert.Equal(t, 0, carts.clearCalls)
}

func TestCreateOrderCartClearFailureStillConfirms(t *testing.T) {
	carts := &fakeCartGateway{
		snapshot: &domain.CartSnapshot{
			UserID: "user-1",
			Items:  []domain.CartLine{{ProductID: "prod-a", Quantity: 1}},
		},
		clearErr: fmt.Errorf("%w: cart service down", gateway.ErrUnavailable),
	}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 10),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	order, err := orch.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, order.Status)

	persisted, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, persisted.Status)
}

// failingConfirmStore delegates to the real store but refuses the status
// update, simulating a store outage between stock commit and confirmation.
type failingConfirmStore struct {
	*ordersqlite.Store
}

func (s *failingConfirmStore) UpdateStatus(context.Context, string, domain.OrderStatus) error {
	return errors.New("disk full")
}

func TestCreateOrderConfirmWriteFailureIsSwallowed(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items:  []domain.CartLine{{ProductID: "prod-a", Quantity: 1}},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 10),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, &failingConfirmStore{store})
	order, err := orch.CreateOrder(context.Background(), testCommand())

	// The caller still gets a CONFIRMED order...
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, order.Status)

	// ...while the store still says PENDING. Known inconsistency window.
	persisted, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, persisted.Status)
}

// TestCancelRestoreAbortsAtFirstFailure: restoring [A, B, C] with B failing
// restores A only — C is never attempted — and the cancellation itself
// still succeeds.
func TestCancelRestoreAbortsAtFirstFailure(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items: []domain.CartLine{
			{ProductID: "prod-a", Quantity: 1},
			{ProductID: "prod-b", Quantity: 2},
			{ProductID: "prod-c", Quantity: 3},
		},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 10),
		"prod-b": product("prod-b", "Gadget", 5000, 10),
		"prod-c": product("prod-c", "Doodad", 2000, 10),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	order, err := orch.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	catalog.calls = nil
	catalog.adjustErr = map[string]error{
		"prod-b": fmt.Errorf("%w: catalog down", gateway.ErrUnavailable),
	}

	cancelled, err := orch.UpdateOrderStatus(context.Background(), order.ID, domain.StatusCancelled, testToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// A restored, B attempted and failed, C never attempted.
	assert.Equal(t, []stockCall{
		{productID: "prod-a", delta: 1},
		{productID: "prod-b", delta: 2},
	}, catalog.calls)

	persisted, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, persisted.Status)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	orch := New(&fakeCartGateway{}, &fakeCatalogGateway{}, newTestStore(t))

	_, err := orch.UpdateOrderStatus(context.Background(), "nope", domain.StatusShipped, testToken)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusPlainTransitionSkipsCatalog(t *testing.T) {
	carts := &fakeCartGateway{snapshot: &domain.CartSnapshot{
		UserID: "user-1",
		Items:  []domain.CartLine{{ProductID: "prod-a", Quantity: 1}},
	}}
	catalog := &fakeCatalogGateway{products: map[string]*domain.ProductSnapshot{
		"prod-a": product("prod-a", "Widget", 10000, 10),
	}}
	store := newTestStore(t)

	orch := New(carts, catalog, store)
	order, err := orch.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	catalog.calls = nil
	shipped, err := orch.UpdateOrderStatus(context.Background(), order.ID, domain.StatusShipped, testToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, shipped.Status)

	// Only CANCELLED touches stock.
	assert.Empty(t, catalog.calls)
}
