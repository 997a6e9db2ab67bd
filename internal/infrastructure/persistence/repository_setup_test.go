package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupRepoDB opens an in-memory SQLite database with the storefront schema and
// the production tenant callbacks installed.
func setupRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	// One connection keeps every statement on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	// Schema first: the migrator's lookups carry no tenant
	require.NoError(t, db.AutoMigrate(
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.OrderStatusHistoryModel{},
		&models.OrderSequenceModel{},
		&models.AuditEventModel{},
		&models.UserModel{},
		&models.CartModel{},
		&models.WishlistModel{},
		&models.ProductReviewModel{},
		&models.ActivityRecordModel{},
	))
	require.NoError(t, Instrument(db, DefaultOptions(nil)))

	return db
}

// tenantCtx returns a context carrying tenantID as the ambient tenant
func tenantCtx(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

// newTestOrder builds a two-line PENDING order for tenantID
func newTestOrder(t *testing.T, tenantID uuid.UUID, number string, userID *uuid.UUID, email string) *order.Order {
	t.Helper()

	first, err := order.NewOrderItem(uuid.New(), "Espresso Beans", "ESP-1", decimal.RequireFromString("12.50"), 2,
		map[string]string{"grind": "fine"})
	require.NoError(t, err)
	second, err := order.NewOrderItem(uuid.New(), "Filter Papers", "FLT-9", decimal.RequireFromString("3.99"), 1, nil)
	require.NoError(t, err)

	items := []order.OrderItem{first, second}
	pricing := order.NewPricing(order.SubtotalOf(items), decimal.RequireFromString("5.99"), decimal.RequireFromString("2.32"))

	o, err := order.NewOrder(tenantID, number, userID,
		order.Customer{Email: email, Name: "Ada Lovelace"},
		valueobject.Address{
			Line1:      "12 Analytical Row",
			Line2:      "Flat 3",
			City:       "London",
			State:      "Greater London",
			PostalCode: "N1 9GU",
			Country:    "GB",
		},
		items, pricing, "card")
	require.NoError(t, err)
	return o
}
