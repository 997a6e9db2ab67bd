// Package tenant provides multi-tenant database scoping for GORM.
//
// The tenant travels on context.Context (see logger.WithTenantID). Callbacks
// registered by EnableAutoTenantFilter conjoin tenant_id = <ambient tenant> to
// every query, row scan, update and delete, and stamp or verify tenant_id on
// create. Repositories never add tenant conditions themselves.
//
// Usage:
//
//	_ = tenant.EnableAutoTenantFilter(gormDB, true)
//	ctx, _ = logger.WithTenantID(ctx, log, tenantID.String())
//	gormDB.WithContext(ctx).Find(&orders) // WHERE orders.tenant_id = '...' is auto-added
package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// DefaultTenantColumn is the tenant discriminator column on every table
const DefaultTenantColumn = "tenant_id"

// bypassKey marks statements issued by this package that must cross tenants
const bypassKey = "tenant:bypass"

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = shared.NewDomainError(shared.CodeTenantRequired, "tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = shared.NewDomainError(shared.CodeTenantRequired, "invalid tenant_id format")

// Current returns the ambient tenant of ctx
func Current(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil || tenantID == uuid.Nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return tenantID, nil
}

// Verify returns ErrTenantMismatch when owner is not the ambient tenant
func Verify(ctx context.Context, owner uuid.UUID) error {
	current, err := Current(ctx)
	if err != nil {
		return err
	}
	if owner != current {
		return shared.ErrTenantMismatch
	}
	return nil
}

// OwnerOf returns the tenant owning the row with the given id in model's table,
// ignoring the ambient tenant. It is the only sanctioned cross-tenant read and
// exists so mutation paths can tell a foreign row from a missing one.
// Returns shared.ErrNotFound when no tenant has such a row.
func OwnerOf(ctx context.Context, db *gorm.DB, model any, id uuid.UUID) (uuid.UUID, error) {
	var owners []string
	err := db.WithContext(ctx).
		Set(bypassKey, true).
		Model(model).
		Where("id = ?", id).
		Limit(1).
		Pluck(DefaultTenantColumn, &owners).Error
	if err != nil {
		return uuid.Nil, err
	}
	if len(owners) == 0 {
		return uuid.Nil, shared.ErrNotFound
	}
	return uuid.Parse(owners[0])
}

// SystemScope returns a session that is not tenant scoped. It is reserved for
// background jobs that act on every tenant, such as audit retention.
func SystemScope(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Set(bypassKey, true)
}

// bypassed reports whether the statement was issued through OwnerOf or SystemScope
func bypassed(db *gorm.DB) bool {
	v, ok := db.Get(bypassKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
