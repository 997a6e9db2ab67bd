package gdpr

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/wishlist"
)

const auditEntityUser = "user"

// Stores groups the repositories holding personal data of a user
type Stores struct {
	Users     identity.UserRepository
	Orders    order.OrderRepository
	Carts     cart.CartRepository
	Reviews   review.ProductReviewRepository
	Wishlists wishlist.WishlistRepository
	Activity  activity.RecordRepository
}

// Auditor is the audit trail data-rights requests are recorded in
type Auditor interface {
	LogUserActionWithMetadata(ctx context.Context, eventType audit.EventType, action audit.Action, entityType, entityID, description string, metadata map[string]string)
	LogFailure(ctx context.Context, eventType audit.EventType, entityType, entityID, description, errorMessage string)
	LogSecurityEvent(ctx context.Context, eventType audit.EventType, description, ipAddress, userAgent string)
}

// loadUser resolves the subject of a request. A miss is ErrUserNotFound.
func (s Stores) loadUser(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.CodeUserNotFound, "User "+userID.String()+" not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
