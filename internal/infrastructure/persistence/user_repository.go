package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
}

// Update updates an existing user and bumps its version
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	user.UpdatedAt = time.Now()
	model := models.UserModelFromDomain(user)

	result := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":              model.Email,
			"first_name":         model.FirstName,
			"last_name":          model.LastName,
			"phone":              model.Phone,
			"addresses":          model.Addresses,
			"oauth2_provider":    model.OAuth2Provider,
			"oauth2_provider_id": model.OAuth2ProviderID,
			"status":             model.Status,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	user.Version++
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	model, err := first[models.UserModel](r.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email within the tenant
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	model, err := first[models.UserModel](r.db.WithContext(ctx).Where("email = ?", normalized))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// TenantOf returns the tenant owning the user, ignoring the ambient tenant
func (r *GormUserRepository) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return tenant.OwnerOf(ctx, r.db, &models.UserModel{}, id)
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
