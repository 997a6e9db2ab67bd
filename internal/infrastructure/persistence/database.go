package persistence

import (
	"fmt"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// Options tune how the connection is instrumented.
type Options struct {
	Logger       *zap.Logger
	LogLevel     string // silent, error, warn, info
	Tracing      telemetry.DBTracingConfig
	TenantFilter bool
}

// DefaultOptions enables the mandatory tenant filter and leaves tracing off.
func DefaultOptions(log *zap.Logger) Options {
	return Options{
		Logger:       log,
		LogLevel:     "warn",
		Tracing:      telemetry.DBTracingConfig{Enabled: false},
		TenantFilter: true,
	}
}

// NewDatabase opens a postgres connection and installs the tenant callbacks
// and tracing plugin on it.
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Instrument(db, opts); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Database{DB: db}, nil
}

func gormConfig(opts Options) *gorm.Config {
	var gl gormlogger.Interface = gormlogger.Discard
	if opts.Logger != nil {
		var lopts []logger.GormLoggerOption
		if opts.Tracing.SlowQueryThresh > 0 {
			lopts = append(lopts, logger.WithSlowThreshold(opts.Tracing.SlowQueryThresh))
		}
		gl = logger.NewGormLogger(opts.Logger, logger.MapGormLogLevel(opts.LogLevel), lopts...)
	}
	return &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
}

// Instrument installs the tenant filter and tracing callbacks on an open
// connection. Repository tests call it on in-memory databases.
func Instrument(db *gorm.DB, opts Options) error {
	if opts.TenantFilter {
		if err := tenant.EnableAutoTenantFilter(db, true); err != nil {
			return fmt.Errorf("failed to register tenant filter: %w", err)
		}
	}
	if opts.Tracing.Enabled {
		if err := telemetry.NewDBTracingPlugin(opts.Tracing, opts.Logger).RegisterOtelGorm(db); err != nil {
			return fmt.Errorf("failed to register db tracing: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
