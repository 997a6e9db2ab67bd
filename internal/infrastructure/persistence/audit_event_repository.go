package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormAuditEventRepository implements audit.AuditEventRepository using GORM
type GormAuditEventRepository struct {
	db *gorm.DB
}

// NewGormAuditEventRepository creates a new GormAuditEventRepository
func NewGormAuditEventRepository(db *gorm.DB) *GormAuditEventRepository {
	return &GormAuditEventRepository{db: db}
}

// Save appends an audit event
func (r *GormAuditEventRepository) Save(ctx context.Context, event *audit.AuditEvent) error {
	return r.db.WithContext(ctx).Create(models.AuditEventModelFromDomain(event)).Error
}

// FindByTimeRange finds events with from <= timestamp < to
func (r *GormAuditEventRepository) FindByTimeRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]audit.AuditEvent, error) {
	return r.find(r.db.WithContext(ctx).Where("occurred_at >= ? AND occurred_at < ?", from, to), filter)
}

// FindByUser finds events recorded for a user
func (r *GormAuditEventRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]audit.AuditEvent, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID), filter)
}

// FindFailed finds events with success = false
func (r *GormAuditEventRepository) FindFailed(ctx context.Context, filter shared.Filter) ([]audit.AuditEvent, error) {
	return r.find(r.db.WithContext(ctx).Where("success = ?", false), filter)
}

// Count counts events of the ambient tenant
func (r *GormAuditEventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AuditEventModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan deletes the ambient tenant's events recorded before cutoff
func (r *GormAuditEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&models.AuditEventModel{})
	return result.RowsAffected, result.Error
}

// DeleteOlderThanAllTenants deletes every tenant's events recorded before cutoff
func (r *GormAuditEventRepository) DeleteOlderThanAllTenants(ctx context.Context, cutoff time.Time) (int64, error) {
	result := tenant.SystemScope(ctx, r.db).Where("occurred_at < ?", cutoff).Delete(&models.AuditEventModel{})
	return result.RowsAffected, result.Error
}

func (r *GormAuditEventRepository) find(query *gorm.DB, filter shared.Filter) ([]audit.AuditEvent, error) {
	if filter.OrderBy == "" || filter.OrderBy == "created_at" {
		filter.OrderBy = "occurred_at"
	}

	var list []models.AuditEventModel
	if err := applyFilter(query, filter, auditEventSortColumns).Find(&list).Error; err != nil {
		return nil, err
	}

	events := make([]audit.AuditEvent, len(list))
	for i := range list {
		events[i] = *list[i].ToDomain()
	}
	return events, nil
}

var _ audit.AuditEventRepository = (*GormAuditEventRepository)(nil)
