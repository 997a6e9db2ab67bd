package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CartItem is a product line in a shopping cart
type CartItem struct {
	ProductID  uuid.UUID         `json:"productId"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Price      decimal.Decimal   `json:"price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
}

// PersistedCart is a shopping cart stored between sessions
type PersistedCart struct {
	shared.TenantAggregateRoot
	SessionID string
	UserID    *uuid.UUID // nil for anonymous sessions
	Items     []CartItem
}

// NewPersistedCart creates an empty cart for a session
func NewPersistedCart(tenantID uuid.UUID, sessionID string, userID *uuid.UUID) (*PersistedCart, error) {
	if sessionID == "" {
		return nil, shared.NewValidationError("Session ID cannot be empty")
	}
	return &PersistedCart{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SessionID:           sessionID,
		UserID:              userID,
		Items:               make([]CartItem, 0),
	}, nil
}

// AddItem adds a product or increases the quantity of an existing line
func (c *PersistedCart) AddItem(productID uuid.UUID, name, sku string, price decimal.Decimal, quantity int, attributes map[string]string) error {
	if quantity <= 0 {
		return shared.NewValidationError("Quantity must be positive")
	}
	if price.IsNegative() {
		return shared.NewValidationError("Price cannot be negative")
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.Items[i].Subtotal = lineTotal(c.Items[i].Price, c.Items[i].Quantity)
			c.UpdatedAt = time.Now()
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{
		ProductID:  productID,
		Name:       name,
		SKU:        sku,
		Price:      price,
		Quantity:   quantity,
		Attributes: attributes,
		Subtotal:   lineTotal(price, quantity),
	})
	c.UpdatedAt = time.Now()
	return nil
}

// IsEmpty returns true when the cart has no items
func (c *PersistedCart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal sums the line subtotals
func (c *PersistedCart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// ItemCount sums quantities across lines
func (c *PersistedCart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return valueobject.RoundMoney(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	// FindBySession finds the cart of a session; shared.ErrNotFound when missing
	FindBySession(ctx context.Context, sessionID string) (*PersistedCart, error)

	// FindByUser finds every persisted cart of a user
	FindByUser(ctx context.Context, userID uuid.UUID) ([]PersistedCart, error)

	// Save creates or replaces a cart
	Save(ctx context.Context, cart *PersistedCart) error

	// DeleteBySession deletes the cart of a session
	DeleteBySession(ctx context.Context, sessionID string) error

	// DeleteByUser hard-deletes every cart of a user
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
