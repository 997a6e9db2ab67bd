//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway PostgreSQL container, applies the SQL
// migrations and installs the tenant callbacks.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrationsDir(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	require.NoError(t, Instrument(db, DefaultOptions(zaptest.NewLogger(t))))
	return db
}

func migrationsDir(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func TestPostgres_OrderTenantIsolation(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormOrderRepository(db)
	tenantA, tenantB := uuid.New(), uuid.New()
	ctxA, ctxB := tenantCtx(tenantA), tenantCtx(tenantB)

	placed := newTestOrder(t, tenantA, "ORD-20260301-00001", nil, "ada@example.com")
	require.NoError(t, repo.Save(ctxA, placed))

	t.Run("foreign tenant cannot read", func(t *testing.T) {
		_, err := repo.FindByID(ctxB, placed.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		list, err := repo.FindByCustomerEmail(ctxB, "ada@example.com", shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("order numbers are unique per tenant only", func(t *testing.T) {
		dup := newTestOrder(t, tenantA, placed.OrderNumber, nil, "bob@example.com")
		assert.Error(t, repo.Save(ctxA, dup))

		other := newTestOrder(t, tenantB, placed.OrderNumber, nil, "bob@example.com")
		assert.NoError(t, repo.Save(ctxB, other))
	})

	t.Run("foreign tenant cannot update", func(t *testing.T) {
		found, err := repo.FindByID(ctxA, placed.ID)
		require.NoError(t, err)
		_, err = found.TransitionTo(order.OrderStatusProcessing, "")
		require.NoError(t, err)

		assert.ErrorIs(t, repo.SaveWithLock(ctxB, found), shared.ErrConcurrentModification)
		require.NoError(t, repo.SaveWithLock(ctxA, found))

		reloaded, err := repo.FindByID(ctxA, placed.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusProcessing, reloaded.Status)
		assert.Len(t, reloaded.StatusHistory, 2)
	})
}

func TestPostgres_OrderNumberGeneratorConcurrent(t *testing.T) {
	db := setupPostgres(t)
	gen := NewGormOrderNumberGenerator(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	const callers = 20
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, callers)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			number, err := gen.Next(gctx, tenantID, day)
			if err != nil {
				return err
			}
			mu.Lock()
			seen[number] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, callers)
	assert.True(t, seen["ORD-20260301-00001"])
	assert.True(t, seen["ORD-20260301-00020"])
}
