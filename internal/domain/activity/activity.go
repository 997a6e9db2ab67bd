package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a raw user activity entry (page views, logins, searches)
type Record struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Type       string
	Details    map[string]string
	IPAddress  string
	UserAgent  string
	OccurredAt time.Time
}

// NewRecord creates an activity record stamped now
func NewRecord(tenantID, userID uuid.UUID, activityType string, details map[string]string) *Record {
	if details == nil {
		details = map[string]string{}
	}
	return &Record{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UserID:     userID,
		Type:       activityType,
		Details:    details,
		OccurredAt: time.Now().UTC(),
	}
}

// RecordRepository defines the interface for activity persistence
type RecordRepository interface {
	// Save appends a record
	Save(ctx context.Context, record *Record) error

	// FindByUser finds a user's records, oldest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Record, error)

	// DeleteByUser hard-deletes a user's records
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
