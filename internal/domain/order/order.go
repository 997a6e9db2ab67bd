package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the fulfilment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ActiveStatuses are the non-terminal statuses. Orders in these states are
// still legally binding and block account erasure.
var ActiveStatuses = []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for DELIVERED and CANCELLED
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusCancelled
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	}
	return false
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Customer holds the buyer's contact details as captured at checkout
type Customer struct {
	Email string
	Name  string
}

// OrderItem represents a line item in an order
type OrderItem struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Name       string
	SKU        string
	Price      decimal.Decimal
	Quantity   int
	Attributes map[string]string
	Subtotal   decimal.Decimal // Price * Quantity
}

// NewOrderItem creates a line item and computes its subtotal
func NewOrderItem(productID uuid.UUID, name, sku string, price decimal.Decimal, quantity int, attributes map[string]string) (OrderItem, error) {
	if productID == uuid.Nil {
		return OrderItem{}, shared.NewValidationError("Product ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return OrderItem{}, shared.NewValidationError("Product name cannot be empty")
	}
	if quantity <= 0 {
		return OrderItem{}, shared.NewValidationError("Quantity must be positive")
	}
	if price.IsNegative() {
		return OrderItem{}, shared.NewValidationError("Price cannot be negative")
	}
	if attributes == nil {
		attributes = map[string]string{}
	}

	return OrderItem{
		ID:         uuid.New(),
		ProductID:  productID,
		Name:       name,
		SKU:        sku,
		Price:      price,
		Quantity:   quantity,
		Attributes: attributes,
		Subtotal:   valueobject.RoundMoney(price.Mul(decimal.NewFromInt(int64(quantity)))),
	}, nil
}

// Pricing holds the order totals. Total is always Subtotal + Shipping + Tax.
type Pricing struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// NewPricing builds a Pricing whose total is derived from its parts
func NewPricing(subtotal, shipping, tax decimal.Decimal) Pricing {
	return Pricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    valueobject.SumMoney(subtotal, shipping, tax),
	}
}

// IsConsistent reports whether Total equals Subtotal + Shipping + Tax
func (p Pricing) IsConsistent() bool {
	return p.Total.Equal(valueobject.SumMoney(p.Subtotal, p.Shipping, p.Tax))
}

// Payment holds payment details for an order
type Payment struct {
	Method        string
	Status        PaymentStatus
	TransactionID string
}

// StatusHistoryEntry records one status change
type StatusHistoryEntry struct {
	Status    OrderStatus
	Timestamp time.Time
	Note      string
}

// Order represents a storefront order aggregate root.
// It is never physically deleted; erasure requests anonymize it instead.
type Order struct {
	shared.TenantAggregateRoot
	OrderNumber     string
	UserID          *uuid.UUID // nil for guest checkouts
	Customer        Customer
	ShippingAddress valueobject.Address
	Items           []OrderItem
	Pricing         Pricing
	Payment         Payment
	Status          OrderStatus
	StatusHistory   []StatusHistoryEntry

	TrackingNumber        string
	Carrier               string
	TrackingURL           string
	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time

	Anonymized   bool
	AnonymizedAt *time.Time
}

// NewOrder creates a PENDING order with a single history entry.
// Items must be non-empty and the pricing must be consistent.
func NewOrder(tenantID uuid.UUID, orderNumber string, userID *uuid.UUID, customer Customer, address valueobject.Address, items []OrderItem, pricing Pricing, paymentMethod string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewValidationError("Order number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.ErrEmptyCart
	}
	if strings.TrimSpace(customer.Email) == "" {
		return nil, shared.NewValidationError("Customer email cannot be empty")
	}
	if !pricing.IsConsistent() {
		return nil, shared.NewValidationError("Order total must equal subtotal + shipping + tax")
	}

	order := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		UserID:              userID,
		Customer:            customer,
		ShippingAddress:     address,
		Items:               items,
		Pricing:             pricing,
		Payment: Payment{
			Method: paymentMethod,
			Status: PaymentStatusPending,
		},
		Status: OrderStatusPending,
	}
	order.appendHistory(OrderStatusPending, "Order created")

	return order, nil
}

// TransitionTo moves the order to newStatus, appending exactly one history entry.
// Returns changed=false without touching the order when the status is unchanged.
func (o *Order) TransitionTo(newStatus OrderStatus, note string) (bool, error) {
	if !newStatus.IsValid() {
		return false, shared.NewValidationError(fmt.Sprintf("Unknown order status %q", newStatus))
	}
	if newStatus == o.Status {
		return false, nil
	}
	if !o.Status.CanTransitionTo(newStatus) {
		return false, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot transition order from %s to %s", o.Status, newStatus))
	}

	o.Status = newStatus
	ts := o.appendHistory(newStatus, note)
	if newStatus == OrderStatusDelivered {
		o.ActualDeliveryDate = &ts
	}
	o.UpdatedAt = ts

	return true, nil
}

// Cancel cancels the order
func (o *Order) Cancel(reason string) (bool, error) {
	return o.TransitionTo(OrderStatusCancelled, reason)
}

// UpdatePayment sets the payment status. PAID on a PENDING order advances it
// to PROCESSING; no other payment status touches the order status.
func (o *Order) UpdatePayment(status PaymentStatus, transactionID string) (advanced bool, err error) {
	if !status.IsValid() {
		return false, shared.NewValidationError(fmt.Sprintf("Unknown payment status %q", status))
	}

	o.Payment.Status = status
	if transactionID != "" {
		o.Payment.TransactionID = transactionID
	}
	o.Touch()

	if status == PaymentStatusPaid && o.Status == OrderStatusPending {
		return o.TransitionTo(OrderStatusProcessing, "Payment received")
	}
	return false, nil
}

// AddTracking records shipment tracking data. A PROCESSING order advances to
// SHIPPED; SHIPPED and DELIVERED orders only get their tracking data refreshed.
func (o *Order) AddTracking(carrier, trackingNumber string) (shipped bool, err error) {
	carrier = NormalizeCarrier(carrier)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if carrier == "" {
		return false, shared.NewValidationError("Carrier cannot be empty")
	}
	if trackingNumber == "" {
		return false, shared.NewValidationError("Tracking number cannot be empty")
	}
	if o.Status == OrderStatusPending || o.Status == OrderStatusCancelled {
		return false, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot add tracking to an order in %s status", o.Status))
	}

	// the estimate follows the carrier; re-sending the same carrier keeps it
	carrierChanged := o.Carrier != carrier
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.TrackingURL = TrackingURL(carrier, trackingNumber)
	if o.EstimatedDeliveryDate == nil || carrierChanged {
		eta := time.Now().UTC().AddDate(0, 0, EstimatedTransitDays(carrier))
		o.EstimatedDeliveryDate = &eta
	}
	o.Touch()

	if o.Status == OrderStatusProcessing {
		return o.TransitionTo(OrderStatusShipped, fmt.Sprintf("Shipped via %s (%s)", carrier, trackingNumber))
	}
	return false, nil
}

// MarkDelivered moves a SHIPPED order to DELIVERED. Already delivered is a no-op.
func (o *Order) MarkDelivered() (bool, error) {
	if o.Status == OrderStatusDelivered {
		return false, nil
	}
	return o.TransitionTo(OrderStatusDelivered, "Order delivered")
}

// MatchesCustomerEmail compares emails case-insensitively
func (o *Order) MatchesCustomerEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(o.Customer.Email, email)
}

// IsActive reports whether the order is in a non-terminal status
func (o *Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// appendHistory adds a history entry whose timestamp never precedes the previous one
func (o *Order) appendHistory(status OrderStatus, note string) time.Time {
	ts := time.Now().UTC()
	if n := len(o.StatusHistory); n > 0 && ts.Before(o.StatusHistory[n-1].Timestamp) {
		ts = o.StatusHistory[n-1].Timestamp
	}
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		Status:    status,
		Timestamp: ts,
		Note:      note,
	})
	return ts
}

// TrackingInfo is the customer-facing shipment view of an order
type TrackingInfo struct {
	OrderNumber           string
	Status                OrderStatus
	Carrier               string
	TrackingNumber        string
	TrackingURL           string
	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time
	StatusHistory         []StatusHistoryEntry
}

// TrackingInfo returns the shipment view of the order
func (o *Order) TrackingInfo() *TrackingInfo {
	history := make([]StatusHistoryEntry, len(o.StatusHistory))
	copy(history, o.StatusHistory)
	return &TrackingInfo{
		OrderNumber:           o.OrderNumber,
		Status:                o.Status,
		Carrier:               o.Carrier,
		TrackingNumber:        o.TrackingNumber,
		TrackingURL:           o.TrackingURL,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		ActualDeliveryDate:    o.ActualDeliveryDate,
		StatusHistory:         history,
	}
}
