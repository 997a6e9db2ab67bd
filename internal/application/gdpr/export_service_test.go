package gdpr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/gdpr"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/wishlist"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tenantContext(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func newTestUser(t *testing.T, tenantID uuid.UUID) *identity.User {
	t.Helper()
	u, err := identity.NewUser(tenantID, "jane@example.com", "Jane", "Doe")
	require.NoError(t, err)
	return u
}

func TestExportService_ExportUserData(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(tenantID)

	t.Run("collects every aggregate", func(t *testing.T) {
		stores := newMockStores()
		auditor := new(MockAuditor)
		u := newTestUser(t, tenantID)

		item, err := order.NewOrderItem(uuid.New(), "Mug", "MUG", decimal.NewFromInt(12), 1, nil)
		require.NoError(t, err)
		items := []order.OrderItem{item}
		o, err := order.NewOrder(tenantID, "ORD-20260301-00001", &u.ID,
			order.Customer{Email: u.Email, Name: u.FullName()}, valueobject.Address{Line1: "1 Main St", City: "Springfield", Country: "US"},
			items, order.DefaultPricingPolicy().Price(order.SubtotalOf(items)), "card")
		require.NoError(t, err)
		c, err := cart.NewPersistedCart(tenantID, "sess", &u.ID)
		require.NoError(t, err)
		r, err := review.NewProductReview(tenantID, uuid.New(), &u.ID, "Jane", 5, "Great", "Love it")
		require.NoError(t, err)
		w := wishlist.NewWishlist(tenantID, u.ID)
		w.Add(uuid.New(), "Lamp")
		rec := activity.NewRecord(tenantID, u.ID, "LOGIN", nil)

		stores.users.On("FindByID", mock.Anything, u.ID).Return(u, nil)
		stores.orders.On("FindByUser", mock.Anything, u.ID, "jane@example.com").Return([]order.Order{*o}, nil)
		stores.carts.On("FindByUser", mock.Anything, u.ID).Return([]cart.PersistedCart{*c}, nil)
		stores.reviews.On("FindByUser", mock.Anything, u.ID).Return([]review.ProductReview{*r}, nil)
		stores.wishlists.On("FindByUser", mock.Anything, u.ID).Return(w, nil)
		stores.activity.On("FindByUser", mock.Anything, u.ID).Return([]activity.Record{*rec}, nil)
		auditor.On("LogUserActionWithMetadata", mock.Anything, audit.EventGDPRExport, audit.ActionExport,
			"user", u.ID.String(), mock.Anything, mock.MatchedBy(func(md map[string]string) bool {
				return md["orders"] == "1" && md["reviews"] == "1"
			})).Return()

		svc := NewExportService(stores.Stores(), auditor, zap.NewNop())
		snapshot, err := svc.ExportUserData(ctx, u.ID)
		require.NoError(t, err)

		assert.Equal(t, u.ID, snapshot.UserID)
		assert.Equal(t, gdpr.ArticleExport, snapshot.GDPRArticle)
		assert.Equal(t, "jane@example.com", snapshot.Profile.Email)
		assert.Len(t, snapshot.Orders, 1)
		assert.Len(t, snapshot.Carts, 1)
		assert.Len(t, snapshot.Reviews, 1)
		assert.Len(t, snapshot.Wishlist, 1)
		assert.Len(t, snapshot.Activity, 1)
		auditor.AssertExpectations(t)
	})

	t.Run("empty aggregates export empty", func(t *testing.T) {
		stores := newMockStores()
		auditor := new(MockAuditor)
		u := newTestUser(t, tenantID)

		stores.users.On("FindByID", mock.Anything, u.ID).Return(u, nil)
		stores.orders.On("FindByUser", mock.Anything, u.ID, u.Email).Return([]order.Order{}, nil)
		stores.carts.On("FindByUser", mock.Anything, u.ID).Return(nil, nil)
		stores.reviews.On("FindByUser", mock.Anything, u.ID).Return(nil, nil)
		stores.wishlists.On("FindByUser", mock.Anything, u.ID).Return(nil, shared.ErrNotFound)
		stores.activity.On("FindByUser", mock.Anything, u.ID).Return(nil, nil)
		auditor.On("LogUserActionWithMetadata", mock.Anything, audit.EventGDPRExport, audit.ActionExport,
			"user", u.ID.String(), mock.Anything, mock.Anything).Return()

		svc := NewExportService(stores.Stores(), auditor, zap.NewNop())
		data, err := svc.ExportUserDataAsJSON(ctx, u.ID)
		require.NoError(t, err)

		var decoded gdpr.ExportSnapshot
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, u.ID, decoded.UserID)
		assert.Empty(t, decoded.Orders)
		assert.Empty(t, decoded.Wishlist)
		assert.Contains(t, string(data), "\n  \"userId\"")
	})

	t.Run("unknown user", func(t *testing.T) {
		stores := newMockStores()
		auditor := new(MockAuditor)
		id := uuid.New()
		stores.missingUser(id)

		svc := NewExportService(stores.Stores(), auditor, zap.NewNop())
		_, err := svc.ExportUserData(ctx, id)
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
		auditor.AssertNotCalled(t, "LogFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("aggregate failure fails the export", func(t *testing.T) {
		stores := newMockStores()
		auditor := new(MockAuditor)
		u := newTestUser(t, tenantID)

		stores.users.On("FindByID", mock.Anything, u.ID).Return(u, nil)
		stores.orders.On("FindByUser", mock.Anything, u.ID, u.Email).Return([]order.Order{}, nil).Maybe()
		stores.carts.On("FindByUser", mock.Anything, u.ID).Return(nil, errors.New("db down"))
		stores.reviews.On("FindByUser", mock.Anything, u.ID).Return(nil, nil).Maybe()
		stores.wishlists.On("FindByUser", mock.Anything, u.ID).Return(nil, shared.ErrNotFound).Maybe()
		stores.activity.On("FindByUser", mock.Anything, u.ID).Return(nil, nil).Maybe()
		auditor.On("LogFailure", mock.Anything, audit.EventGDPRExport, "user", u.ID.String(),
			mock.Anything, mock.Anything).Return()

		svc := NewExportService(stores.Stores(), auditor, zap.NewNop())
		_, err := svc.ExportUserData(ctx, u.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "carts")
		auditor.AssertExpectations(t)
	})
}
