package gdpr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/gdpr"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DeletionService carries out right-to-erasure requests.
//
// Erasure runs six steps in a fixed order. Every step only touches data that
// has not been erased yet, so running the whole sequence again is safe and
// reports zero affected records. Orders and reviews are anonymized rather
// than deleted because they are kept for accounting.
type DeletionService struct {
	stores         Stores
	auditor        Auditor
	retentionYears int
	metrics        *telemetry.BusinessMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewDeletionService creates a new DeletionService
func NewDeletionService(stores Stores, auditor Auditor, logger *zap.Logger) *DeletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionService{
		stores:         stores,
		auditor:        auditor,
		retentionYears: gdpr.DefaultOrderRetentionYears,
		logger:         logger.Named("gdpr.deletion"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetRetentionYears sets the order retention period quoted to users
func (s *DeletionService) SetRetentionYears(years int) {
	if years > 0 {
		s.retentionYears = years
	}
}

// SetMetrics enables business metrics
func (s *DeletionService) SetMetrics(m *telemetry.BusinessMetrics) {
	s.metrics = m
}

// CheckDeletionEligibility reports whether open orders block erasure
func (s *DeletionService) CheckDeletionEligibility(ctx context.Context, userID uuid.UUID) (*gdpr.DeletionEligibility, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DeletionService", "CheckDeletionEligibility",
		telemetry.WithAttribute("user.id", userID.String()),
	)
	defer span.End()

	u, err := s.stores.loadUser(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordRequest(ctx, telemetry.GDPRRequestEligibility, false)
		return nil, err
	}
	active, err := s.stores.Orders.CountActiveByUser(ctx, userID, u.Email)
	if err != nil {
		err = fmt.Errorf("failed to count open orders: %w", err)
		telemetry.RecordError(span, err)
		s.recordRequest(ctx, telemetry.GDPRRequestEligibility, false)
		return nil, err
	}

	eligibility := gdpr.NewDeletionEligibility(userID, active, s.retentionYears)
	s.auditor.LogUserActionWithMetadata(ctx, audit.EventGDPREligibilityCheck, audit.ActionRead,
		auditEntityUser, userID.String(), "Erasure eligibility checked",
		map[string]string{
			"eligible":     strconv.FormatBool(eligibility.Eligible),
			"activeOrders": strconv.FormatInt(active, 10),
		})
	s.recordRequest(ctx, telemetry.GDPRRequestEligibility, true)
	telemetry.SetOK(span)
	return eligibility, nil
}

type deletionStep struct {
	aggregate string
	run       func(ctx context.Context) (gdpr.AggregateOutcome, error)
}

// DeleteUserData erases a user's personal data. A failing step stops the
// sequence; the returned result then has status FAILED and the error is
// returned alongside it. Eligibility is not enforced here.
func (s *DeletionService) DeleteUserData(ctx context.Context, userID uuid.UUID) (*gdpr.DeletionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DeletionService", "DeleteUserData",
		telemetry.WithAttribute("user.id", userID.String()),
	)
	defer span.End()

	u, err := s.loadSubject(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordRequest(ctx, telemetry.GDPRRequestDeletion, false)
		return nil, err
	}

	// Matches guest orders until the profile step pseudonymizes it
	email := u.Email
	at := s.now()
	result := gdpr.NewDeletionResult(userID)
	log := logger.WithLogger(ctx, s.logger).With(zap.String("user_id", userID.String()))

	for _, step := range s.steps(u, email, at) {
		outcome, err := step.run(ctx)
		if err != nil {
			result.Fail(step.aggregate, err, s.now())
			telemetry.RecordError(span, err)
			log.Error("Erasure step failed", zap.String("aggregate", step.aggregate), zap.Error(err))
			s.auditor.LogFailure(ctx, audit.EventGDPRDeletion, auditEntityUser, userID.String(),
				"Erasure stopped at "+step.aggregate, err.Error())
			s.recordRequest(ctx, telemetry.GDPRRequestDeletion, false)
			return result, fmt.Errorf("erasure of %s failed: %w", step.aggregate, err)
		}
		result.Record(outcome)
		s.recordAffected(ctx, outcome)
	}
	result.Complete(s.now())

	metadata := map[string]string{
		"gdprArticle": result.GDPRArticle,
		"affected":    strconv.FormatInt(result.TotalAffected(), 10),
	}
	for _, o := range result.Outcomes {
		metadata[o.Aggregate] = string(o.Kind) + ":" + strconv.FormatInt(o.Affected, 10)
	}
	s.auditor.LogUserActionWithMetadata(ctx, audit.EventGDPRDeletion, audit.ActionAnonymize,
		auditEntityUser, userID.String(), "Personal data erased", metadata)
	s.recordRequest(ctx, telemetry.GDPRRequestDeletion, true)

	log.Info("User data erased", zap.Int64("affected", result.TotalAffected()))
	telemetry.SetOK(span)
	return result, nil
}

// loadSubject resolves the user to erase. A user owned by another tenant is
// ErrTenantMismatch rather than USER_NOT_FOUND.
func (s *DeletionService) loadSubject(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	u, err := s.stores.loadUser(ctx, userID)
	if !errors.Is(err, shared.ErrUserNotFound) {
		return u, err
	}

	owner, ownerErr := s.stores.Users.TenantOf(ctx, userID)
	if errors.Is(ownerErr, shared.ErrNotFound) {
		return nil, err
	}
	if ownerErr != nil {
		return nil, ownerErr
	}
	if verr := tenant.Verify(ctx, owner); verr != nil {
		if errors.Is(verr, shared.ErrTenantMismatch) {
			s.auditor.LogSecurityEvent(ctx, audit.EventTenantAccessDenied,
				"Attempt to erase user "+userID.String()+" of another tenant", "", "")
		}
		return nil, verr
	}
	return nil, err
}

func (s *DeletionService) steps(u *identity.User, email string, at time.Time) []deletionStep {
	userID := u.ID
	return []deletionStep{
		{gdpr.AggregateProfile, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			// Guest orders are only reachable through the email until it is
			// pseudonymized, so they are tied to the user id first
			if _, err := s.stores.Orders.LinkGuestOrders(ctx, userID, email); err != nil {
				return gdpr.AggregateOutcome{}, fmt.Errorf("failed to link guest orders: %w", err)
			}
			if !u.Anonymize() {
				return gdpr.Anonymized(gdpr.AggregateProfile, 0), nil
			}
			if err := s.stores.Users.Update(ctx, u); err != nil {
				return gdpr.AggregateOutcome{}, err
			}
			return gdpr.Anonymized(gdpr.AggregateProfile, 1), nil
		}},
		{gdpr.AggregateWishlist, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			n, err := s.stores.Wishlists.DeleteByUser(ctx, userID)
			return gdpr.Deleted(gdpr.AggregateWishlist, n), err
		}},
		{gdpr.AggregateCarts, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			n, err := s.stores.Carts.DeleteByUser(ctx, userID)
			return gdpr.Deleted(gdpr.AggregateCarts, n), err
		}},
		{gdpr.AggregateReviews, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			n, err := s.stores.Reviews.AnonymizeByUser(ctx, userID, at)
			return gdpr.Anonymized(gdpr.AggregateReviews, n), err
		}},
		{gdpr.AggregateOrders, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			n, err := s.stores.Orders.AnonymizeByUser(ctx, userID, email, at)
			return gdpr.Anonymized(gdpr.AggregateOrders, n), err
		}},
		{gdpr.AggregateActivity, func(ctx context.Context) (gdpr.AggregateOutcome, error) {
			n, err := s.stores.Activity.DeleteByUser(ctx, userID)
			return gdpr.Deleted(gdpr.AggregateActivity, n), err
		}},
	}
}

func (s *DeletionService) recordRequest(ctx context.Context, kind telemetry.GDPRRequestType, success bool) {
	if s.metrics == nil {
		return
	}
	if tenantID, err := tenant.Current(ctx); err == nil {
		s.metrics.RecordGDPRRequest(ctx, tenantID, kind, success)
	}
}

func (s *DeletionService) recordAffected(ctx context.Context, o gdpr.AggregateOutcome) {
	if s.metrics == nil {
		return
	}
	if tenantID, err := tenant.Current(ctx); err == nil {
		s.metrics.RecordGDPRAffected(ctx, tenantID, o.Aggregate, string(o.Kind), o.Affected)
	}
}
