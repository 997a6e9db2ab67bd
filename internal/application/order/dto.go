package order

import (
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CreateOrderRequest is the checkout input for CreateOrderFromCart
type CreateOrderRequest struct {
	// CartRef is the session id of the cart being checked out
	CartRef         string              `json:"cartRef" validate:"required,max=100"`
	CustomerEmail   string              `json:"customerEmail" validate:"required,email,max=255"`
	CustomerName    string              `json:"customerName" validate:"required,max=200"`
	ShippingAddress valueobject.Address `json:"shippingAddress" validate:"required"`
	PaymentMethod   string              `json:"paymentMethod" validate:"required,max=50"`
}
