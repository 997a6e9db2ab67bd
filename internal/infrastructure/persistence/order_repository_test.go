package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)
	userID := uuid.New()

	o := newTestOrder(t, tenantID, "ORD-20260301-00001", &userID, "ada@example.com")
	require.NoError(t, repo.Save(ctx, o))

	t.Run("find by id loads items and history", func(t *testing.T) {
		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		assert.Equal(t, o.OrderNumber, found.OrderNumber)
		assert.Equal(t, tenantID, found.TenantID)
		assert.Equal(t, &userID, found.UserID)
		assert.Equal(t, order.OrderStatusPending, found.Status)
		assert.Equal(t, order.PaymentStatusPending, found.Payment.Status)
		require.Len(t, found.Items, 2)
		assert.Equal(t, "Espresso Beans", found.Items[0].Name)
		assert.Equal(t, "fine", found.Items[0].Attributes["grind"])
		assert.True(t, decimal.RequireFromString("25.00").Equal(found.Items[0].Subtotal))
		assert.Equal(t, "Filter Papers", found.Items[1].Name)
		require.Len(t, found.StatusHistory, 1)
		assert.Equal(t, order.OrderStatusPending, found.StatusHistory[0].Status)
		assert.True(t, found.Pricing.IsConsistent())
		assert.True(t, o.Pricing.Total.Equal(found.Pricing.Total))
		assert.Equal(t, "N1 9GU", found.ShippingAddress.PostalCode)
	})

	t.Run("find by order number", func(t *testing.T) {
		found, err := repo.FindByOrderNumber(ctx, "ORD-20260301-00001")
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("missing order is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByOrderNumber(ctx, "ORD-19990101-00001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by customer email ignores case", func(t *testing.T) {
		list, err := repo.FindByCustomerEmail(ctx, " ADA@example.com ", shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, o.ID, list[0].ID)
	})

	t.Run("find by status", func(t *testing.T) {
		list, err := repo.FindByStatus(ctx, order.OrderStatusPending, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = repo.FindByStatus(ctx, order.OrderStatusShipped, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("order number existence", func(t *testing.T) {
		exists, err := repo.ExistsByOrderNumber(ctx, "ORD-20260301-00001")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByOrderNumber(ctx, "ORD-20260301-00002")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormOrderRepository_TenantIsolation(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantA, tenantB := uuid.New(), uuid.New()
	ctxA, ctxB := tenantCtx(tenantA), tenantCtx(tenantB)

	o := newTestOrder(t, tenantA, "ORD-20260301-00001", nil, "ada@example.com")
	require.NoError(t, repo.Save(ctxA, o))

	t.Run("foreign tenant cannot read the order", func(t *testing.T) {
		_, err := repo.FindByID(ctxB, o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		list, err := repo.FindByCustomerEmail(ctxB, "ada@example.com", shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, list)

		exists, err := repo.ExistsByOrderNumber(ctxB, o.OrderNumber)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("same order number is free in another tenant", func(t *testing.T) {
		other := newTestOrder(t, tenantB, "ORD-20260301-00001", nil, "bob@example.com")
		require.NoError(t, repo.Save(ctxB, other))

		found, err := repo.FindByOrderNumber(ctxA, "ORD-20260301-00001")
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("saving an order of another tenant is rejected", func(t *testing.T) {
		foreign := newTestOrder(t, tenantA, "ORD-20260301-00009", nil, "eve@example.com")
		err := repo.Save(ctxB, foreign)
		assert.ErrorIs(t, err, shared.ErrTenantMismatch)
	})

	t.Run("foreign tenant cannot update the order", func(t *testing.T) {
		loaded, err := repo.FindByID(ctxA, o.ID)
		require.NoError(t, err)
		_, err = loaded.Cancel("not yours")
		require.NoError(t, err)

		err = repo.SaveWithLock(ctxB, loaded)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		fresh, err := repo.FindByID(ctxA, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPending, fresh.Status)
	})

	t.Run("tenant of resolves the owner across tenants", func(t *testing.T) {
		owner, err := repo.TenantOf(ctxB, o.ID)
		require.NoError(t, err)
		assert.Equal(t, tenantA, owner)

		_, err = repo.TenantOf(ctxB, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("a context without tenant is refused", func(t *testing.T) {
		_, err := repo.FindByID(t.Context(), o.ID)
		assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
	})
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)

	o := newTestOrder(t, tenantID, "ORD-20260301-00001", nil, "ada@example.com")
	require.NoError(t, repo.Save(ctx, o))

	t.Run("appends history and bumps version", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		advanced, err := loaded.UpdatePayment(order.PaymentStatusPaid, "txn-1")
		require.NoError(t, err)
		require.True(t, advanced)
		_, err = loaded.AddTracking("ups", "1Z999")
		require.NoError(t, err)

		require.NoError(t, repo.SaveWithLock(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		fresh, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusShipped, fresh.Status)
		assert.Equal(t, order.PaymentStatusPaid, fresh.Payment.Status)
		assert.Equal(t, "txn-1", fresh.Payment.TransactionID)
		assert.Equal(t, "UPS", fresh.Carrier)
		assert.NotEmpty(t, fresh.TrackingURL)
		assert.Equal(t, 2, fresh.Version)

		require.Len(t, fresh.StatusHistory, 3)
		assert.Equal(t, order.OrderStatusPending, fresh.StatusHistory[0].Status)
		assert.Equal(t, order.OrderStatusProcessing, fresh.StatusHistory[1].Status)
		assert.Equal(t, order.OrderStatusShipped, fresh.StatusHistory[2].Status)
		for i := 1; i < len(fresh.StatusHistory); i++ {
			assert.False(t, fresh.StatusHistory[i].Timestamp.Before(fresh.StatusHistory[i-1].Timestamp))
		}
	})

	t.Run("stale version is a concurrent modification", func(t *testing.T) {
		first, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		_, err = first.MarkDelivered()
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, first))

		_, err = second.Cancel("changed my mind")
		require.NoError(t, err)
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		fresh, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusDelivered, fresh.Status)
		assert.Len(t, fresh.StatusHistory, 4)
		assert.NotNil(t, fresh.ActualDeliveryDate)
	})
}

func TestGormOrderRepository_UserQueries(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)
	userID := uuid.New()

	linked := newTestOrder(t, tenantID, "ORD-20260301-00001", &userID, "ada@example.com")
	guest := newTestOrder(t, tenantID, "ORD-20260301-00002", nil, "Ada@Example.com")
	cancelled := newTestOrder(t, tenantID, "ORD-20260301-00003", &userID, "ada@example.com")
	stranger := newTestOrder(t, tenantID, "ORD-20260301-00004", nil, "someone@example.com")
	_, err := cancelled.TransitionTo(order.OrderStatusCancelled, "out of stock")
	require.NoError(t, err)
	for _, o := range []*order.Order{linked, guest, cancelled, stranger} {
		require.NoError(t, repo.Save(ctx, o))
	}

	t.Run("find by user matches link or email", func(t *testing.T) {
		list, err := repo.FindByUser(ctx, userID, "ada@example.com")
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("count active skips terminal orders", func(t *testing.T) {
		n, err := repo.CountActiveByUser(ctx, userID, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.CountActiveByUser(ctx, userID, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("anonymize is idempotent", func(t *testing.T) {
		at := time.Now().UTC()
		n, err := repo.AnonymizeByUser(ctx, userID, "ada@example.com", at)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = repo.AnonymizeByUser(ctx, userID, "ada@example.com", at)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		anon, err := repo.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		assert.True(t, anon.Anonymized)
		assert.NotNil(t, anon.AnonymizedAt)
		assert.Nil(t, anon.UserID)
		assert.Empty(t, anon.Customer.Email)
		assert.Empty(t, anon.Customer.Name)
		assert.Empty(t, anon.ShippingAddress.Line1)
		assert.Empty(t, anon.ShippingAddress.Line2)
		assert.Empty(t, anon.ShippingAddress.PostalCode)
		assert.Equal(t, "London", anon.ShippingAddress.City)
		assert.Equal(t, "GB", anon.ShippingAddress.Country)
		assert.Equal(t, 2, anon.Version)
		assert.Len(t, anon.Items, 2, "line items survive anonymization")

		untouched, err := repo.FindByID(ctx, stranger.ID)
		require.NoError(t, err)
		assert.False(t, untouched.Anonymized)
		assert.Equal(t, "someone@example.com", untouched.Customer.Email)
	})
}

func TestGormOrderRepository_LinkGuestOrders(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)
	userID := uuid.New()
	otherUser := uuid.New()

	guest := newTestOrder(t, tenantID, "ORD-20260302-00001", nil, "Ada@Example.com")
	owned := newTestOrder(t, tenantID, "ORD-20260302-00002", &otherUser, "ada@example.com")
	stranger := newTestOrder(t, tenantID, "ORD-20260302-00003", nil, "someone@example.com")
	for _, o := range []*order.Order{guest, owned, stranger} {
		require.NoError(t, repo.Save(ctx, o))
	}
	otherTenant := uuid.New()
	foreign := newTestOrder(t, otherTenant, "ORD-20260302-00001", nil, "ada@example.com")
	require.NoError(t, repo.Save(tenantCtx(otherTenant), foreign))

	n, err := repo.LinkGuestOrders(ctx, userID, " ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	linked, err := repo.FindByID(ctx, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.UserID)
	assert.Equal(t, userID, *linked.UserID)
	assert.Equal(t, "ada@example.com", linked.Customer.Email)

	kept, err := repo.FindByID(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, otherUser, *kept.UserID)

	untouched, err := repo.FindByID(tenantCtx(otherTenant), foreign.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.UserID)

	// once linked, the user id alone still finds the order
	list, err := repo.FindByUser(ctx, userID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, guest.ID, list[0].ID)

	n, err = repo.LinkGuestOrders(ctx, userID, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormOrderRepository_ChildRowsCarryTenant(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewGormOrderRepository(db)
	tenantID := uuid.New()
	ctx := tenantCtx(tenantID)

	o := newTestOrder(t, tenantID, "ORD-20260301-00001", nil, "ada@example.com")
	require.NoError(t, repo.Save(ctx, o))

	var items []models.OrderItemModel
	require.NoError(t, db.WithContext(ctx).Where("order_id = ?", o.ID).Find(&items).Error)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, tenantID, item.TenantID)
	}

	var foreign []models.OrderItemModel
	require.NoError(t, db.WithContext(tenantCtx(uuid.New())).Where("order_id = ?", o.ID).Find(&foreign).Error)
	assert.Empty(t, foreign)
}
