package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T, opts Options) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, Instrument(gormDB, opts))

	return &Database{DB: gormDB}, mock, mockDB
}

type pooledRow struct {
	ID       uint
	TenantID uuid.UUID
	Name     string
}

func TestDatabase_Instrument(t *testing.T) {
	t.Run("tenant filter scopes queries to the ambient tenant", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t, DefaultOptions(zaptest.NewLogger(t)))
		defer mockDB.Close()

		tenantID := uuid.New()
		ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())

		mock.ExpectQuery(`SELECT \* FROM "pooled_rows" WHERE "pooled_rows"."tenant_id" = \$1`).
			WithArgs(tenantID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
				AddRow(1, tenantID, "a"))

		var rows []pooledRow
		require.NoError(t, db.DB.WithContext(ctx).Find(&rows).Error)
		assert.Len(t, rows, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tenant filter rejects queries without a tenant", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t, DefaultOptions(nil))
		defer mockDB.Close()

		var rows []pooledRow
		err := db.DB.WithContext(context.Background()).Find(&rows).Error
		assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter can be left off for maintenance connections", func(t *testing.T) {
		opts := DefaultOptions(nil)
		opts.TenantFilter = false
		db, mock, mockDB := newMockDatabase(t, opts)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "pooled_rows"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []pooledRow
		require.NoError(t, db.DB.Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(nil)
	assert.True(t, opts.TenantFilter)
	assert.False(t, opts.Tracing.Enabled)
	assert.Equal(t, "warn", opts.LogLevel)
}

func TestGormConfig(t *testing.T) {
	cfg := gormConfig(Options{Logger: zap.NewNop(), LogLevel: "info"})
	assert.True(t, cfg.SkipDefaultTransaction)
	assert.True(t, cfg.PrepareStmt)
	assert.IsType(t, &logger.GormLogger{}, cfg.Logger)

	cfg = gormConfig(Options{})
	assert.NotNil(t, cfg.Logger)
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t, Options{})

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
