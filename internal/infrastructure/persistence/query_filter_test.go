package persistence

import (
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestSortColumns(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"order_number", "order_number"},
		{"orderNumber", "order_number"},
		{" paymentStatus ", "payment_status"},
		{"", "created_at"},
		{"id; DROP TABLE orders", "created_at"},
		{"password_hash", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, orderSortColumns.column(tt.key))
		})
	}
}

func TestSortDirection(t *testing.T) {
	assert.Equal(t, "ASC", sortDirection(" asc "))
	assert.Equal(t, "ASC", sortDirection("ASC"))
	assert.Equal(t, "DESC", sortDirection("desc"))
	assert.Equal(t, "DESC", sortDirection(""))
	assert.Equal(t, "DESC", sortDirection("ASC; --"))
}

func TestApplyFilter_SQL(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DryRun: true,
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	type row struct{ ID int }
	toSQL := func(f shared.Filter) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var rows []row
			return applyFilter(tx.Table("orders"), f, orderSortColumns).Find(&rows)
		})
	}

	assert.Equal(t,
		"SELECT * FROM `orders` ORDER BY total ASC LIMIT 20 OFFSET 40",
		toSQL(shared.Filter{Page: 3, PageSize: 20, OrderBy: "total", OrderDir: "asc"}))
	assert.Equal(t,
		"SELECT * FROM `orders` ORDER BY created_at DESC",
		toSQL(shared.Filter{OrderBy: "nope"}))
}
