package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuditService records audit events for the ambient tenant and answers
// audit queries. Recording never fails the caller: persistence errors are
// logged and dropped.
type AuditService struct {
	repo    audit.AuditEventRepository
	logger  *zap.Logger
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(repo audit.AuditEventRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		repo:   repo,
		logger: logger.Named("audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics enables retention cleanup metrics
func (s *AuditService) SetMetrics(metrics *telemetry.BusinessMetrics) {
	s.metrics = metrics
}

// Log records a successful system event
func (s *AuditService) Log(ctx context.Context, eventType audit.EventType, description string) {
	s.record(ctx, func(tenantID uuid.UUID) *audit.AuditEvent {
		return audit.NewAuditEvent(tenantID, eventType, description)
	})
}

// LogUserAction records an action of the acting user on an entity
func (s *AuditService) LogUserAction(ctx context.Context, eventType audit.EventType, action audit.Action, entityType, entityID, description string) {
	s.LogUserActionWithMetadata(ctx, eventType, action, entityType, entityID, description, nil)
}

// LogUserActionWithMetadata records a user action with extra key/value detail
func (s *AuditService) LogUserActionWithMetadata(ctx context.Context, eventType audit.EventType, action audit.Action, entityType, entityID, description string, metadata map[string]string) {
	s.record(ctx, func(tenantID uuid.UUID) *audit.AuditEvent {
		return s.withActor(ctx, audit.NewAuditEvent(tenantID, eventType, description)).
			WithEntity(action, entityType, entityID).
			WithMetadata(metadata)
	})
}

// LogFailure records a failed operation with ERROR severity
func (s *AuditService) LogFailure(ctx context.Context, eventType audit.EventType, entityType, entityID, description, errorMessage string) {
	s.record(ctx, func(tenantID uuid.UUID) *audit.AuditEvent {
		e := s.withActor(ctx, audit.NewAuditEvent(tenantID, eventType, description)).Failed(errorMessage)
		e.EntityType = entityType
		e.EntityID = entityID
		return e
	})
}

// LogSecurityEvent records a WARNING event with the client fingerprint.
// Empty ipAddress or userAgent fall back to the values carried by ctx.
func (s *AuditService) LogSecurityEvent(ctx context.Context, eventType audit.EventType, description, ipAddress, userAgent string) {
	if ipAddress == "" {
		ipAddress = logger.GetClientIP(ctx)
	}
	if userAgent == "" {
		userAgent = logger.GetUserAgent(ctx)
	}
	s.record(ctx, func(tenantID uuid.UUID) *audit.AuditEvent {
		return s.withActor(ctx, audit.NewAuditEvent(tenantID, eventType, description)).
			FromClient(ipAddress, userAgent)
	})
}

func (s *AuditService) record(ctx context.Context, build func(tenantID uuid.UUID) *audit.AuditEvent) {
	tenantID, err := tenant.Current(ctx)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Audit event dropped: no tenant in context", zap.Error(err))
		return
	}

	event := build(tenantID)
	event.Timestamp = s.now()
	if err := s.repo.Save(ctx, event); err != nil {
		// Non-blocking: the audited operation has already happened
		logger.WithLogger(ctx, s.logger).Error("Failed to save audit event",
			zap.String("event_type", string(event.EventType)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

// withActor stamps the acting user carried by ctx, if any
func (s *AuditService) withActor(ctx context.Context, e *audit.AuditEvent) *audit.AuditEvent {
	var userID *uuid.UUID
	if raw := logger.GetUserID(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			userID = &id
		}
	}
	return e.WithUser(userID, logger.GetUsername(ctx))
}

// FindByTimeRange returns events with from <= timestamp < to, newest first
func (s *AuditService) FindByTimeRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]audit.AuditEvent, error) {
	if !from.Before(to) {
		return nil, shared.NewValidationError("Time range start must be before its end")
	}
	return s.repo.FindByTimeRange(ctx, from, to, filter)
}

// FindByUser returns the events recorded for a user, newest first
func (s *AuditService) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]audit.AuditEvent, error) {
	return s.repo.FindByUser(ctx, userID, filter)
}

// FindFailed returns failed events, newest first
func (s *AuditService) FindFailed(ctx context.Context, filter shared.Filter) ([]audit.AuditEvent, error) {
	return s.repo.FindFailed(ctx, filter)
}

// Count counts the ambient tenant's events
func (s *AuditService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// CleanupOldEvents deletes the ambient tenant's events older than
// retentionDays and records the cleanup itself as an event.
func (s *AuditService) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	cutoff, err := s.cutoff(retentionDays)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.record(ctx, func(tenantID uuid.UUID) *audit.AuditEvent {
		return audit.NewAuditEvent(tenantID, audit.EventRetentionCleanup,
			fmt.Sprintf("Deleted %d audit events older than %d days", deleted, retentionDays)).
			WithEntity(audit.ActionDelete, "audit_event", "").
			WithMetadata(map[string]string{
				"cutoff":  cutoff.Format(time.RFC3339),
				"deleted": strconv.FormatInt(deleted, 10),
			})
	})
	if s.metrics != nil {
		s.metrics.RecordAuditCleanup(ctx, deleted)
	}
	return deleted, nil
}

// CleanupOldEventsAllTenants deletes every tenant's events older than
// retentionDays. Only the retention scheduler calls it.
func (s *AuditService) CleanupOldEventsAllTenants(ctx context.Context, retentionDays int) (int64, error) {
	cutoff, err := s.cutoff(retentionDays)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteOlderThanAllTenants(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.logger.Info("Audit retention cleanup completed",
		zap.Int("retention_days", retentionDays),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)
	if s.metrics != nil {
		s.metrics.RecordAuditCleanup(ctx, deleted)
	}
	return deleted, nil
}

func (s *AuditService) cutoff(retentionDays int) (time.Time, error) {
	if retentionDays < 1 {
		return time.Time{}, shared.NewValidationError("Retention must be at least one day")
	}
	return s.now().AddDate(0, 0, -retentionDays), nil
}
