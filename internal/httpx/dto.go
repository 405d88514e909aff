package httpx

import (
	"time"

	"github.com/merchkit/order-service/internal/order/domain"
)

type AddressDTO struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// CreateOrderRequest is the body of POST /orders. The voucher code is
// accepted for the upstream checkout flow but not consumed here — voucher
// application belongs to the voucher service, not the order core.
type CreateOrderRequest struct {
	ShippingAddress AddressDTO `json:"shipping_address" validate:"required"`
	BillingAddress  AddressDTO `json:"billing_address" validate:"required"`
	PaymentMethod   string     `json:"payment_method" validate:"required"`
	VoucherCode     string     `json:"voucher_code,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	Subtotal    int64  `json:"subtotal"`
	StoreID     string `json:"store_id,omitempty"`
}

type OrderResponse struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"user_id"`
	OrderDate            string              `json:"order_date"`
	Status               string              `json:"status"`
	TotalAmount          int64               `json:"total_amount"`
	Items                []OrderItemResponse `json:"items"`
	ShippingAddress      AddressDTO          `json:"shipping_address"`
	BillingAddress       AddressDTO          `json:"billing_address"`
	PaymentMethod        string              `json:"payment_method"`
	PaymentTransactionID *string             `json:"payment_transaction_id,omitempty"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
}

type PurchasedResponse struct {
	Purchased bool `json:"purchased"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toAddressDTO(a domain.Address) AddressDTO {
	return AddressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toAddress(a AddressDTO) domain.Address {
	return domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.PriceCents,
			Subtotal:    it.Subtotal,
			StoreID:     it.StoreID,
		}
	}
	return OrderResponse{
		ID:                   o.ID,
		UserID:               o.UserID,
		OrderDate:            o.OrderDate.UTC().Format(time.RFC3339),
		Status:               string(o.Status),
		TotalAmount:          o.TotalCents,
		Items:                items,
		ShippingAddress:      toAddressDTO(o.ShippingAddress),
		BillingAddress:       toAddressDTO(o.BillingAddress),
		PaymentMethod:        o.PaymentMethod,
		PaymentTransactionID: o.PaymentTransactionID,
		CreatedAt:            o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
