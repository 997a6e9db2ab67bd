package tenant

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TenantCallback provides GORM callback hooks for automatic tenant filtering
type TenantCallback struct {
	tenantColumn string
	required     bool
}

// NewTenantCallback creates a new tenant callback handler
func NewTenantCallback(tenantColumn string, required bool) *TenantCallback {
	if tenantColumn == "" {
		tenantColumn = DefaultTenantColumn
	}
	return &TenantCallback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// RegisterCallbacks registers tenant callbacks with GORM
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant:before_query", tc.addTenantFilter); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant:before_update", tc.addTenantFilter); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addTenantFilter); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant:before_row", tc.addTenantFilter); err != nil {
		return err
	}
	return db.Callback().Create().Before("gorm:create").Register("tenant:before_create", tc.stampTenant)
}

// addTenantFilter conjoins tenant_id = <ambient tenant> to the statement.
// A tenant condition already written by the caller does not replace it.
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	if db.Statement.Context == nil || bypassed(db) {
		return
	}

	tenantID, ok := tc.ambientTenant(db)
	if !ok {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID.String(),
			},
		},
	})
}

// stampTenant fills an empty tenant column with the ambient tenant and rejects
// rows that name a different tenant.
func (tc *TenantCallback) stampTenant(db *gorm.DB) {
	if db.Statement.Context == nil || bypassed(db) || db.Statement.Schema == nil {
		return
	}

	field := db.Statement.Schema.LookUpField(tc.tenantColumn)
	if field == nil {
		return
	}

	tenantID, ok := tc.ambientTenant(db)
	if !ok {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := tc.stampRow(db, field, reflect.Indirect(rv.Index(i)), tenantID); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := tc.stampRow(db, field, rv, tenantID); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (tc *TenantCallback) stampRow(db *gorm.DB, field *schema.Field, row reflect.Value, tenantID uuid.UUID) error {
	ctx := db.Statement.Context
	value, zero := field.ValueOf(ctx, row)
	if zero {
		return field.Set(ctx, row, tenantID)
	}
	if fmt.Sprint(value) != tenantID.String() {
		return shared.ErrTenantMismatch
	}
	return nil
}

// ambientTenant reads and validates the tenant on the statement context.
// Errors are attached to db; ok is false when the statement must not be scoped.
func (tc *TenantCallback) ambientTenant(db *gorm.DB) (uuid.UUID, bool) {
	raw := logger.GetTenantID(db.Statement.Context)
	if raw == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return uuid.Nil, false
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return uuid.Nil, false
	}
	return tenantID, true
}

// EnableAutoTenantFilter enables automatic tenant filtering on a GORM DB instance
// This registers callbacks that automatically add tenant_id filtering to all queries
func EnableAutoTenantFilter(db *gorm.DB, required bool) error {
	return NewTenantCallback(DefaultTenantColumn, required).RegisterCallbacks(db)
}

// DisableAutoTenantFilter removes the tenant callbacks (not recommended in production)
func DisableAutoTenantFilter(db *gorm.DB) {
	_ = db.Callback().Query().Remove("tenant:before_query")
	_ = db.Callback().Update().Remove("tenant:before_update")
	_ = db.Callback().Delete().Remove("tenant:before_delete")
	_ = db.Callback().Row().Remove("tenant:before_row")
	_ = db.Callback().Create().Remove("tenant:before_create")
}
