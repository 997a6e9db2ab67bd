package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.OrderRepository using GORM.
// Tenant scoping comes from the callbacks registered by tenant.EnableAutoTenantFilter.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// withLines preloads items and history in their stored order
func (r *GormOrderRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq") })
}

// ownedBy matches orders linked to the user or placed with the user's email
func (r *GormOrderRepository) ownedBy(userID uuid.UUID, email string) *gorm.DB {
	cond := r.db.Where("user_id = ?", userID)
	if email = normalizeEmail(email); email != "" {
		cond = cond.Or("LOWER(customer_email) = ?", email)
	}
	return cond
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	model, err := first[models.OrderModel](r.withLines(ctx).Where("id = ?", id))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order by order number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	model, err := first[models.OrderModel](r.withLines(ctx).Where("order_number = ?", orderNumber))
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomerEmail finds orders placed with a customer email (case-insensitive)
func (r *GormOrderRepository) FindByCustomerEmail(ctx context.Context, email string, filter shared.Filter) ([]order.Order, error) {
	var list []models.OrderModel
	query := applyFilter(
		r.withLines(ctx).Where("LOWER(customer_email) = ?", normalizeEmail(email)),
		filter, orderSortColumns,
	)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(list), nil
}

// FindByStatus finds orders by status
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, error) {
	var list []models.OrderModel
	query := applyFilter(
		r.withLines(ctx).Where("status = ?", status),
		filter, orderSortColumns,
	)
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(list), nil
}

// FindByUser finds orders linked to a user id or placed with the user's email, newest first
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, email string) ([]order.Order, error) {
	var list []models.OrderModel
	if err := r.withLines(ctx).
		Where(r.ownedBy(userID, email)).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(list), nil
}

// Save creates an order together with its items and status history
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		if len(model.History) > 0 {
			if err := tx.Create(&model.History).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking (version check).
// Items are immutable after creation; history rows are appended, never rewritten.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	expected := o.Version
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, expected).
			Updates(map[string]interface{}{
				"user_id":                 model.UserID,
				"customer_email":          model.CustomerEmail,
				"customer_name":           model.CustomerName,
				"shipping_line1":          model.ShippingLine1,
				"shipping_line2":          model.ShippingLine2,
				"shipping_city":           model.ShippingCity,
				"shipping_state":          model.ShippingState,
				"shipping_postal_code":    model.ShippingPostalCode,
				"shipping_country":        model.ShippingCountry,
				"payment_status":          model.PaymentStatus,
				"transaction_id":          model.TransactionID,
				"status":                  model.Status,
				"tracking_number":         model.TrackingNumber,
				"carrier":                 model.Carrier,
				"tracking_url":            model.TrackingURL,
				"estimated_delivery_date": model.EstimatedDeliveryDate,
				"actual_delivery_date":    model.ActualDeliveryDate,
				"version":                 expected + 1,
				"updated_at":              now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrentModification
		}

		var persisted int64
		if err := tx.Model(&models.OrderStatusHistoryModel{}).
			Where("order_id = ?", o.ID).
			Count(&persisted).Error; err != nil {
			return err
		}
		if int(persisted) < len(model.History) {
			appended := model.History[persisted:]
			if err := tx.Create(&appended).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.Version = expected + 1
	o.UpdatedAt = now
	return nil
}

// ExistsByOrderNumber checks if an order number is taken
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveByUser counts PENDING, PROCESSING and SHIPPED orders of a user
func (r *GormOrderRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("status IN ?", order.ActiveStatuses).
		Where(r.ownedBy(userID, email)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LinkGuestOrders sets user_id on guest orders placed with email
func (r *GormOrderRepository) LinkGuestOrders(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("user_id IS NULL AND anonymized = ?", false).
		Where("LOWER(customer_email) = ?", email).
		Updates(map[string]interface{}{
			"user_id": userID,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AnonymizeByUser clears personal data on the user's orders that are not yet anonymized.
// City, state and country stay for reporting; the link to the user is severed.
func (r *GormOrderRepository) AnonymizeByUser(ctx context.Context, userID uuid.UUID, email string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("anonymized = ?", false).
		Where(r.ownedBy(userID, email)).
		Updates(map[string]interface{}{
			"user_id":              nil,
			"customer_email":       "",
			"customer_name":        "",
			"shipping_line1":       "",
			"shipping_line2":       "",
			"shipping_postal_code": "",
			"anonymized":           true,
			"anonymized_at":        at,
			"updated_at":           at,
			"version":              gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// TenantOf returns the tenant owning the order, ignoring the ambient tenant
func (r *GormOrderRepository) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return tenant.OwnerOf(ctx, r.db, &models.OrderModel{}, id)
}

func toDomainOrders(list []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(list))
	for i := range list {
		orders[i] = *list[i].ToDomain()
	}
	return orders
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ensure GormOrderRepository implements OrderRepository
var _ order.OrderRepository = (*GormOrderRepository)(nil)
