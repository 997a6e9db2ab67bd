package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormActivityRecordRepository implements activity.RecordRepository using GORM
type GormActivityRecordRepository struct {
	db *gorm.DB
}

// NewGormActivityRecordRepository creates a new GormActivityRecordRepository
func NewGormActivityRecordRepository(db *gorm.DB) *GormActivityRecordRepository {
	return &GormActivityRecordRepository{db: db}
}

// Save appends a record
func (r *GormActivityRecordRepository) Save(ctx context.Context, record *activity.Record) error {
	return r.db.WithContext(ctx).Create(models.ActivityRecordModelFromDomain(record)).Error
}

// FindByUser finds a user's records, oldest first
func (r *GormActivityRecordRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]activity.Record, error) {
	var list []models.ActivityRecordModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at").
		Find(&list).Error; err != nil {
		return nil, err
	}

	records := make([]activity.Record, len(list))
	for i := range list {
		records[i] = *list[i].ToDomain()
	}
	return records, nil
}

// DeleteByUser hard-deletes a user's records
func (r *GormActivityRecordRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ActivityRecordModel{})
	return result.RowsAffected, result.Error
}

var _ activity.RecordRepository = (*GormActivityRecordRepository)(nil)
