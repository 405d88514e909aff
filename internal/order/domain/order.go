// Package domain holds the Order aggregate and the error taxonomy of the
// order workflow. Monetary values are integer cents throughout — the service
// never does floating-point money arithmetic.
package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the closed set of lifecycle states an order can be in.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var validStatuses = map[OrderStatus]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusShipped:   {},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus validates a raw status string against the enumeration.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := validStatuses[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Address is the postal address snapshot stored on the order.
// Line2 is optional; every other field is required at the API boundary.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItem is a line of an order. Name and price are snapshots taken at
// order-creation time and never refreshed from the catalog again; Subtotal
// is computed once from those snapshots.
type OrderItem struct {
	ID          int64  `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	PriceCents  int64  `json:"price"`
	Subtotal    int64  `json:"subtotal"`
	StoreID     string `json:"store_id"`
}

// NewOrderItem snapshots a catalog product into an order line.
func NewOrderItem(p *ProductSnapshot, quantity int64) OrderItem {
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		PriceCents:  p.PriceCents,
		Subtotal:    p.PriceCents * quantity,
		StoreID:     p.StoreID,
	}
}

// Order is the aggregate root. Items keep their insertion order, which is
// the line order of the cart the order was built from.
type Order struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	OrderDate            time.Time   `json:"order_date"`
	Status               OrderStatus `json:"status"`
	TotalCents           int64       `json:"total_amount"`
	Items                []OrderItem `json:"items"`
	ShippingAddress      Address     `json:"shipping_address"`
	BillingAddress       Address     `json:"billing_address"`
	PaymentMethod        string      `json:"payment_method"`
	PaymentTransactionID *string     `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// ComputeTotal sums price×quantity over all items.
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.PriceCents * it.Quantity
	}
	return total
}

// CartLine is one entry of a fetched cart: a product reference plus the
// requested quantity. The cart service owns the live cart; this is a
// read-only view of it.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// CartSnapshot is the cart state at the moment order creation started.
type CartSnapshot struct {
	UserID string     `json:"user_id"`
	Items  []CartLine `json:"items"`
}

// ProductSnapshot is the catalog's view of a product at validation time.
// It is never persisted by this service; the order items copy the fields
// they need out of it.
type ProductSnapshot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price"`
	StockQuantity int64  `json:"stock_quantity"`
	Active        bool   `json:"active"`
	Deleted       bool   `json:"deleted"`
	StoreID       string `json:"store_id"`
}

// Available reports whether the product can be ordered at all.
func (p *ProductSnapshot) Available() bool {
	return p.Active && !p.Deleted
}
