package gdpr

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/wishlist"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockOrderRepository only answers the calls data-rights requests make
type MockOrderRepository struct {
	mock.Mock
	order.OrderRepository
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, email string) ([]order.Order, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	args := m.Called(ctx, userID, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) LinkGuestOrders(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	args := m.Called(ctx, userID, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) AnonymizeByUser(ctx context.Context, userID uuid.UUID, email string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, email, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
	cart.CartRepository
}

func (m *MockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]cart.PersistedCart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.PersistedCart), args.Error(1)
}

func (m *MockCartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Save(ctx context.Context, r *review.ProductReview) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReviewRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]review.ProductReview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]review.ProductReview), args.Error(1)
}

func (m *MockReviewRepository) AnonymizeByUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockWishlistRepository struct {
	mock.Mock
}

func (m *MockWishlistRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*wishlist.Wishlist, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wishlist.Wishlist), args.Error(1)
}

func (m *MockWishlistRepository) Save(ctx context.Context, w *wishlist.Wishlist) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWishlistRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Save(ctx context.Context, r *activity.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockActivityRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]activity.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]activity.Record), args.Error(1)
}

func (m *MockActivityRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogUserActionWithMetadata(ctx context.Context, eventType audit.EventType, action audit.Action, entityType, entityID, description string, metadata map[string]string) {
	m.Called(ctx, eventType, action, entityType, entityID, description, metadata)
}

func (m *MockAuditor) LogFailure(ctx context.Context, eventType audit.EventType, entityType, entityID, description, errorMessage string) {
	m.Called(ctx, eventType, entityType, entityID, description, errorMessage)
}

func (m *MockAuditor) LogSecurityEvent(ctx context.Context, eventType audit.EventType, description, ipAddress, userAgent string) {
	m.Called(ctx, eventType, description, ipAddress, userAgent)
}

type mockStores struct {
	users     *MockUserRepository
	orders    *MockOrderRepository
	carts     *MockCartRepository
	reviews   *MockReviewRepository
	wishlists *MockWishlistRepository
	activity  *MockActivityRepository
}

func newMockStores() *mockStores {
	return &mockStores{
		users:     new(MockUserRepository),
		orders:    new(MockOrderRepository),
		carts:     new(MockCartRepository),
		reviews:   new(MockReviewRepository),
		wishlists: new(MockWishlistRepository),
		activity:  new(MockActivityRepository),
	}
}

func (m *mockStores) Stores() Stores {
	return Stores{
		Users:     m.users,
		Orders:    m.orders,
		Carts:     m.carts,
		Reviews:   m.reviews,
		Wishlists: m.wishlists,
		Activity:  m.activity,
	}
}

func (m *mockStores) missingUser(id uuid.UUID) {
	m.users.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)
	m.users.On("TenantOf", mock.Anything, id).Return(uuid.Nil, shared.ErrNotFound)
}
