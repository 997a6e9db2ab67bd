package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/wishlist"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWishlistRepository implements wishlist.WishlistRepository using GORM
type GormWishlistRepository struct {
	db *gorm.DB
}

// NewGormWishlistRepository creates a new GormWishlistRepository
func NewGormWishlistRepository(db *gorm.DB) *GormWishlistRepository {
	return &GormWishlistRepository{db: db}
}

// FindByUser finds the wishlist of a user
func (r *GormWishlistRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*wishlist.Wishlist, error) {
	model, err := first[models.WishlistModel](r.db.WithContext(ctx).Where("user_id = ?", userID))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or replaces a wishlist
func (r *GormWishlistRepository) Save(ctx context.Context, w *wishlist.Wishlist) error {
	w.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.WishlistModelFromDomain(w)).Error
}

// DeleteByUser hard-deletes the wishlist of a user
func (r *GormWishlistRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.WishlistModel{})
	return result.RowsAffected, result.Error
}

var _ wishlist.WishlistRepository = (*GormWishlistRepository)(nil)
