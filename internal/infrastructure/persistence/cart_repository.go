package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCartRepository implements cart.CartRepository using GORM.
// It also serves as the cart source for checkout.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindBySession finds the cart of a session
func (r *GormCartRepository) FindBySession(ctx context.Context, sessionID string) (*cart.PersistedCart, error) {
	model, err := first[models.CartModel](r.db.WithContext(ctx).Where("session_id = ?", sessionID))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser finds every persisted cart of a user
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]cart.PersistedCart, error) {
	var list []models.CartModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&list).Error; err != nil {
		return nil, err
	}

	carts := make([]cart.PersistedCart, len(list))
	for i := range list {
		carts[i] = *list[i].ToDomain()
	}
	return carts, nil
}

// Save creates or replaces a cart
func (r *GormCartRepository) Save(ctx context.Context, c *cart.PersistedCart) error {
	c.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.CartModelFromDomain(c)).Error
}

// DeleteBySession deletes the cart of a session
func (r *GormCartRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.CartModel{}).Error
}

// DeleteByUser hard-deletes every cart of a user
func (r *GormCartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartModel{})
	return result.RowsAffected, result.Error
}

// GetCart returns the cart of a session, or nil when the session has none
func (r *GormCartRepository) GetCart(ctx context.Context, sessionID string) (*cart.PersistedCart, error) {
	c, err := r.FindBySession(ctx, sessionID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// DeleteCart removes the cart of a session after checkout
func (r *GormCartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	return r.DeleteBySession(ctx, sessionID)
}

var _ cart.CartRepository = (*GormCartRepository)(nil)
