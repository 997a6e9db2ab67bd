package gdpr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/gdpr"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/wishlist"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExportService assembles the right-of-access export of a user
type ExportService struct {
	stores  Stores
	auditor Auditor
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(stores Stores, auditor Auditor, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		stores:  stores,
		auditor: auditor,
		logger:  logger.Named("gdpr.export"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics enables business metrics
func (s *ExportService) SetMetrics(m *telemetry.BusinessMetrics) {
	s.metrics = m
}

// ExportUserData gathers everything the ambient tenant stores about a user.
// The aggregates are read concurrently; an aggregate with no data exports empty.
func (s *ExportService) ExportUserData(ctx context.Context, userID uuid.UUID) (*gdpr.ExportSnapshot, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ExportService", "ExportUserData",
		telemetry.WithAttribute("user.id", userID.String()),
	)
	defer span.End()

	snapshot, err := s.export(ctx, userID)
	s.recordRequest(ctx, err == nil)
	if err != nil {
		telemetry.RecordError(span, err)
		if !shared.IsCode(err, shared.CodeUserNotFound) {
			s.auditor.LogFailure(ctx, audit.EventGDPRExport, auditEntityUser, userID.String(),
				"Data export failed", err.Error())
		}
		return nil, err
	}

	s.auditor.LogUserActionWithMetadata(ctx, audit.EventGDPRExport, audit.ActionExport,
		auditEntityUser, userID.String(), "Personal data exported",
		map[string]string{
			"gdprArticle": snapshot.GDPRArticle,
			"orders":      strconv.Itoa(len(snapshot.Orders)),
			"carts":       strconv.Itoa(len(snapshot.Carts)),
			"reviews":     strconv.Itoa(len(snapshot.Reviews)),
			"activity":    strconv.Itoa(len(snapshot.Activity)),
		})
	logger.WithLogger(ctx, s.logger).Info("User data exported",
		zap.String("user_id", userID.String()),
		zap.Int("orders", len(snapshot.Orders)),
	)
	telemetry.SetOK(span)
	return snapshot, nil
}

// ExportUserDataAsJSON renders the export as indented JSON. Decoding the
// output yields a snapshot equal to the exported one.
func (s *ExportService) ExportUserDataAsJSON(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	snapshot, err := s.ExportUserData(ctx, userID)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

func (s *ExportService) export(ctx context.Context, userID uuid.UUID) (*gdpr.ExportSnapshot, error) {
	u, err := s.stores.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		orders  []order.Order
		carts   []cart.PersistedCart
		reviews []review.ProductReview
		wl      *wishlist.Wishlist
		records []activity.Record
	)

	// Each goroutine writes only its own variable; the tenant rides on gctx.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.stores.Orders.FindByUser(gctx, userID, u.Email)
		return wrapExport("orders", err)
	})
	g.Go(func() error {
		var err error
		carts, err = s.stores.Carts.FindByUser(gctx, userID)
		return wrapExport("carts", err)
	})
	g.Go(func() error {
		var err error
		reviews, err = s.stores.Reviews.FindByUser(gctx, userID)
		return wrapExport("reviews", err)
	})
	g.Go(func() error {
		var err error
		wl, err = s.stores.Wishlists.FindByUser(gctx, userID)
		if errors.Is(err, shared.ErrNotFound) {
			wl, err = nil, nil
		}
		return wrapExport("wishlist", err)
	})
	g.Go(func() error {
		var err error
		records, err = s.stores.Activity.FindByUser(gctx, userID)
		return wrapExport("activity", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return gdpr.NewExportSnapshot(u, orders, carts, reviews, wl, records, s.now()), nil
}

func (s *ExportService) recordRequest(ctx context.Context, success bool) {
	if s.metrics == nil {
		return
	}
	tenantID, err := tenant.Current(ctx)
	if err != nil {
		return
	}
	s.metrics.RecordGDPRRequest(ctx, tenantID, telemetry.GDPRRequestExport, success)
}

func wrapExport(aggregate string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to export %s: %w", aggregate, err)
}
