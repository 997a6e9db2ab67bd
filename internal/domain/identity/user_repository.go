package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository stores customer accounts of the tenant in ctx. Lookups
// return shared.ErrNotFound for unknown users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// Update overwrites the profile and bumps Version.
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByEmail matches the trimmed, lower-cased address.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// TenantOf returns the owning tenant regardless of the tenant in ctx.
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}
