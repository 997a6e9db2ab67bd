package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	auditapp "github.com/storefront/backend/internal/application/audit"
	gdprapp "github.com/storefront/backend/internal/application/gdpr"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/notification"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the wired worker: every service shares one database, one audit
// trail and one set of metrics.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *persistence.Database
	logs   *telemetry.LoggerProvider
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider

	audit     *auditapp.AuditService
	orders    *orderapp.OrderService
	export    *gdprapp.ExportService
	deletion  *gdprapp.DeletionService
	retention *scheduler.AuditRetentionScheduler

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger provider: %w", err)
	}
	a.logs = lp
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	a.log = lp.Bridge(a.log, cfg.Telemetry.ServiceName, level)
	log := a.log

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	a.tracer = tp

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	a.meter = mp

	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  mp.Meter("storefront"),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize business metrics: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		},
		TenantFilter: true,
	})
	if err != nil {
		return err
	}
	a.db = db
	log.Info("Database connected successfully")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	auditRepo := persistence.NewGormAuditEventRepository(db.DB)

	// Audit trail
	a.audit = auditapp.NewAuditService(auditRepo, log)
	a.audit.SetMetrics(metrics)

	// Order lifecycle
	numbers, err := a.orderNumbers(ctx)
	if err != nil {
		return err
	}
	sink, sinkCloser, err := notification.NewSink(cfg, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, sinkCloser)

	a.orders = orderapp.NewOrderService(orderRepo, cartRepo, numbers, sink, a.audit, log)
	a.orders.SetPricingPolicy(order.PricingPolicy{
		FlatShipping:          cfg.Order.ShippingFlat,
		TaxRate:               cfg.Order.TaxRate,
		FreeShippingThreshold: cfg.Order.FreeShippingThreshold,
	})
	a.orders.SetNumberRetries(cfg.Order.NumberRetries)
	a.orders.SetMetrics(metrics)

	// Data rights
	stores := gdprapp.Stores{
		Users:     persistence.NewGormUserRepository(db.DB),
		Orders:    orderRepo,
		Carts:     cartRepo,
		Reviews:   persistence.NewGormProductReviewRepository(db.DB),
		Wishlists: persistence.NewGormWishlistRepository(db.DB),
		Activity:  persistence.NewGormActivityRecordRepository(db.DB),
	}
	a.export = gdprapp.NewExportService(stores, a.audit, log)
	a.export.SetMetrics(metrics)
	a.deletion = gdprapp.NewDeletionService(stores, a.audit, log)
	a.deletion.SetRetentionYears(cfg.GDPR.OrderRetentionYears)
	a.deletion.SetMetrics(metrics)

	retention := scheduler.DefaultAuditRetentionConfig()
	retention.RetentionDays = cfg.Audit.RetentionDays
	retention.CleanupHour = cfg.Audit.CleanupHour
	a.retention, err = scheduler.NewAuditRetentionScheduler(retention, a.audit, log)
	if err != nil {
		return fmt.Errorf("invalid audit retention settings: %w", err)
	}
	return nil
}

// orderNumbers selects the order number backend
func (a *app) orderNumbers(ctx context.Context) (order.OrderNumberGenerator, error) {
	switch a.cfg.Order.NumberBackend {
	case config.OrderNumberBackendRedis:
		client, err := cache.NewRedisClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		a.log.Info("Using Redis order number sequence", zap.String("addr", a.cfg.Redis.Addr()))
		return cache.NewRedisOrderNumberGenerator(client), nil
	case config.OrderNumberBackendGorm, "":
		return persistence.NewGormOrderNumberGenerator(a.db.DB), nil
	default:
		return nil, fmt.Errorf("unknown order number backend %q", a.cfg.Order.NumberBackend)
	}
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
