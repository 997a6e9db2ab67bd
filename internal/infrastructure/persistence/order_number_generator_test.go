package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOrderNumberGenerator_Next(t *testing.T) {
	db := setupRepoDB(t)
	gen := NewGormOrderNumberGenerator(db)
	tenantA, tenantB := uuid.New(), uuid.New()
	day := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)

	t.Run("sequence increments per tenant and day", func(t *testing.T) {
		ctx := tenantCtx(tenantA)

		first, err := gen.Next(ctx, tenantA, day)
		require.NoError(t, err)
		second, err := gen.Next(ctx, tenantA, day)
		require.NoError(t, err)

		assert.Equal(t, "ORD-20260301-00001", first)
		assert.Equal(t, "ORD-20260301-00002", second)
	})

	t.Run("tenants keep separate counters", func(t *testing.T) {
		number, err := gen.Next(tenantCtx(tenantB), tenantB, day)
		require.NoError(t, err)
		assert.Equal(t, "ORD-20260301-00001", number)
	})

	t.Run("a new day restarts the sequence", func(t *testing.T) {
		number, err := gen.Next(tenantCtx(tenantA), tenantA, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, "ORD-20260302-00001", number)
	})

	t.Run("the day is taken in UTC", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*3600)
		local := time.Date(2026, 3, 2, 1, 0, 0, 0, tokyo) // 2026-03-01 16:00 UTC

		number, err := gen.Next(tenantCtx(tenantA), tenantA, local)
		require.NoError(t, err)
		assert.Equal(t, "ORD-20260301-00003", number)
	})

	t.Run("issuing for another tenant is rejected", func(t *testing.T) {
		_, err := gen.Next(tenantCtx(tenantB), tenantA, day)
		assert.ErrorIs(t, err, shared.ErrTenantMismatch)
	})
}
