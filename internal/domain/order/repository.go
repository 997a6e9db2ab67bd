package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence.
// Every method runs under the ambient tenant carried by ctx.
type OrderRepository interface {
	// FindByID finds an order by ID; shared.ErrNotFound when missing
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its tenant-unique number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByCustomerEmail finds orders placed with a customer email
	FindByCustomerEmail(ctx context.Context, email string, filter shared.Filter) ([]Order, error)

	// FindByStatus finds orders by status
	FindByStatus(ctx context.Context, status OrderStatus, filter shared.Filter) ([]Order, error)

	// FindByUser finds orders linked to a user id or placed with their email
	FindByUser(ctx context.Context, userID uuid.UUID, email string) ([]Order, error)

	// Save creates an order with its items and history
	Save(ctx context.Context, order *Order) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *Order) error

	// ExistsByOrderNumber checks if an order number is taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// CountActiveByUser counts PENDING, PROCESSING and SHIPPED orders of a user
	CountActiveByUser(ctx context.Context, userID uuid.UUID, email string) (int64, error)

	// LinkGuestOrders attaches orders placed with email and no account to the user
	LinkGuestOrders(ctx context.Context, userID uuid.UUID, email string) (int64, error)

	// AnonymizeByUser clears personal data on the user's not yet anonymized orders
	AnonymizeByUser(ctx context.Context, userID uuid.UUID, email string, at time.Time) (int64, error)

	// TenantOf returns the owning tenant of an order regardless of the ambient
	// tenant. Used only to tell a foreign order apart from a missing one.
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}
