package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// RetentionCleaner deletes audit events older than the retention period
type RetentionCleaner interface {
	CleanupOldEventsAllTenants(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRetentionConfig holds configuration for the audit retention job
type AuditRetentionConfig struct {
	RetentionDays int
	// CleanupHour is the UTC hour of day the job runs
	CleanupHour int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultAuditRetentionConfig keeps one year of audit history and cleans up at 3am UTC
func DefaultAuditRetentionConfig() AuditRetentionConfig {
	return AuditRetentionConfig{
		RetentionDays: 365,
		CleanupHour:   3,
		CheckInterval: time.Minute,
	}
}

// Validate checks the configuration
func (c AuditRetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.CleanupHour < 0 || c.CleanupHour > 23 || c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// AuditRetentionScheduler runs the audit retention cleanup once a day for
// every tenant
type AuditRetentionScheduler struct {
	config  AuditRetentionConfig
	cleaner RetentionCleaner
	logger  *zap.Logger
	now     func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewAuditRetentionScheduler creates a new audit retention scheduler
func NewAuditRetentionScheduler(config AuditRetentionConfig, cleaner RetentionCleaner, logger *zap.Logger) (*AuditRetentionScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRetentionScheduler{
		config:  config,
		cleaner: cleaner,
		logger:  logger.Named("audit-retention"),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start starts the scheduler loop
func (s *AuditRetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	// cancel and wg are set under mu so a concurrent Stop always sees them
	ctx, cancel := context.WithCancel(ctx)
	s.isRunning = true
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.Info("Audit retention scheduler started",
		zap.Int("retention_days", s.config.RetentionDays),
		zap.Int("cleanup_hour", s.config.CleanupHour),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish
func (s *AuditRetentionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Audit retention scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *AuditRetentionScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *AuditRetentionScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// checkAndRun runs the cleanup once per UTC day, at the configured hour
func (s *AuditRetentionScheduler) checkAndRun(ctx context.Context) bool {
	now := s.now().UTC()
	if now.Hour() != s.config.CleanupHour {
		return false
	}

	today := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastRunDate == today {
		s.mu.Unlock()
		return false
	}
	s.lastRunDate = today
	s.mu.Unlock()

	runCtx, _ := logger.WithCorrelationID(ctx, s.logger, uuid.NewString())
	_, _ = s.RunNow(runCtx)
	return true
}

// RunNow runs the cleanup immediately
func (s *AuditRetentionScheduler) RunNow(ctx context.Context) (int64, error) {
	if logger.GetCorrelationID(ctx) == "" {
		ctx, _ = logger.WithCorrelationID(ctx, s.logger, uuid.NewString())
	}
	log := logger.WithLogger(ctx, s.logger)

	start := s.now()
	deleted, err := s.cleaner.CleanupOldEventsAllTenants(ctx, s.config.RetentionDays)
	if err != nil {
		log.Error("Audit retention cleanup failed", zap.Error(err))
		return 0, err
	}
	log.Info("Audit retention cleanup finished",
		zap.Int64("deleted", deleted),
		zap.Duration("duration", s.now().Sub(start)),
	)
	return deleted, nil
}
