package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductReviewRepository implements review.ProductReviewRepository using GORM
type GormProductReviewRepository struct {
	db *gorm.DB
}

// NewGormProductReviewRepository creates a new GormProductReviewRepository
func NewGormProductReviewRepository(db *gorm.DB) *GormProductReviewRepository {
	return &GormProductReviewRepository{db: db}
}

// Save creates or updates a review
func (r *GormProductReviewRepository) Save(ctx context.Context, pr *review.ProductReview) error {
	pr.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.ProductReviewModelFromDomain(pr)).Error
}

// FindByUser finds the reviews written by a user, oldest first
func (r *GormProductReviewRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]review.ProductReview, error) {
	var list []models.ProductReviewModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&list).Error; err != nil {
		return nil, err
	}

	reviews := make([]review.ProductReview, len(list))
	for i := range list {
		reviews[i] = *list[i].ToDomain()
	}
	return reviews, nil
}

// AnonymizeByUser severs the user link on the user's reviews that are not yet
// anonymized. Rating, title and body stay visible to other shoppers.
func (r *GormProductReviewRepository) AnonymizeByUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ProductReviewModel{}).
		Where("user_id = ? AND anonymized = ?", userID, false).
		Updates(map[string]interface{}{
			"user_id":       nil,
			"reviewer_name": review.AnonymousReviewer,
			"anonymized":    true,
			"anonymized_at": at,
			"updated_at":    at,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

var _ review.ProductReviewRepository = (*GormProductReviewRepository)(nil)
