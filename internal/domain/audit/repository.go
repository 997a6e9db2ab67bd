package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// AuditEventRepository persists audit events under the ambient tenant
type AuditEventRepository interface {
	// Save appends an event
	Save(ctx context.Context, event *AuditEvent) error

	// FindByTimeRange finds events with from <= timestamp < to, newest first
	FindByTimeRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]AuditEvent, error)

	// FindByUser finds events recorded for a user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]AuditEvent, error)

	// FindFailed finds events with success = false, newest first
	FindFailed(ctx context.Context, filter shared.Filter) ([]AuditEvent, error)

	// Count counts events of the ambient tenant
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan bulk-deletes the ambient tenant's events before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOlderThanAllTenants bulk-deletes every tenant's events before cutoff.
	// Only the retention job may call it.
	DeleteOlderThanAllTenants(ctx context.Context, cutoff time.Time) (int64, error)
}
