package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartSource supplies the cart an order is created from
type CartSource interface {
	// GetCart returns the cart of a session, or nil when the session has none
	GetCart(ctx context.Context, sessionID string) (*cart.PersistedCart, error)

	// DeleteCart removes a session's cart once it has been checked out
	DeleteCart(ctx context.Context, sessionID string) error
}

// NotificationType identifies the customer message being sent
type NotificationType string

const (
	NotificationOrderShipped   NotificationType = "ORDER_SHIPPED"
	NotificationOrderDelivered NotificationType = "ORDER_DELIVERED"
)

// NotificationChannel is the medium a notification is delivered through
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
)

// NotificationRequest asks the sink to render and dispatch a templated message
type NotificationRequest struct {
	TenantID uuid.UUID
	// TemplateID selects a registered template; empty uses the default for Type
	TemplateID     string
	RecipientEmail string
	Type           NotificationType
	Channel        NotificationChannel
	// Subject overrides the template subject when set
	Subject   string
	Variables map[string]string
}

// Notification is a rendered message accepted by the sink
type Notification struct {
	ID         uuid.UUID           `json:"id"`
	TenantID   uuid.UUID           `json:"tenantId"`
	TemplateID string              `json:"templateId,omitempty"`
	Type       NotificationType    `json:"type"`
	Channel    NotificationChannel `json:"channel"`
	Recipient  string              `json:"recipient"`
	Subject    string              `json:"subject"`
	Body       string              `json:"body"`
	Variables  map[string]string   `json:"variables,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// NotificationSink delivers customer notifications. Dispatch is best effort:
// OrderService never fails an operation because the sink did.
type NotificationSink interface {
	CreateNotificationFromTemplate(ctx context.Context, req NotificationRequest) (*Notification, error)
}
