package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// AnonymousReviewer replaces the reviewer name on anonymized reviews
const AnonymousReviewer = "Anonymous"

// ProductReview is a shopper's rating of a product. On erasure the content
// stays for other shoppers while the link to the reviewer is severed.
type ProductReview struct {
	shared.TenantAggregateRoot
	ProductID    uuid.UUID
	UserID       *uuid.UUID
	ReviewerName string
	Rating       int
	Title        string
	Body         string
	Anonymized   bool
}

// NewProductReview creates a review with a rating between 1 and 5
func NewProductReview(tenantID, productID uuid.UUID, userID *uuid.UUID, reviewerName string, rating int, title, body string) (*ProductReview, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if rating < 1 || rating > 5 {
		return nil, shared.NewValidationError("Rating must be between 1 and 5")
	}
	return &ProductReview{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		UserID:              userID,
		ReviewerName:        reviewerName,
		Rating:              rating,
		Title:               title,
		Body:                body,
	}, nil
}

// ProductReviewRepository defines the interface for review persistence
type ProductReviewRepository interface {
	// Save creates or updates a review
	Save(ctx context.Context, review *ProductReview) error

	// FindByUser finds the reviews written by a user
	FindByUser(ctx context.Context, userID uuid.UUID) ([]ProductReview, error)

	// AnonymizeByUser severs the user link on the user's not yet anonymized reviews
	AnonymizeByUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}
