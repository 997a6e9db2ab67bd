package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/wishlist"
	"gorm.io/datatypes"
)

// CartModel is the persistence model for a persisted shopping cart.
// Lines are stored as one JSON document; carts are replaced wholesale.
type CartModel struct {
	TenantAggregateModel
	SessionID string                              `gorm:"type:varchar(100);not null;index"`
	UserID    *uuid.UUID                          `gorm:"type:uuid;index"`
	Items     datatypes.JSONType[[]cart.CartItem] `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain PersistedCart.
func (m *CartModel) ToDomain() *cart.PersistedCart {
	items := m.Items.Data()
	if items == nil {
		items = make([]cart.CartItem, 0)
	}
	return &cart.PersistedCart{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		SessionID:           m.SessionID,
		UserID:              m.UserID,
		Items:               items,
	}
}

// CartModelFromDomain creates a new persistence model from a domain PersistedCart.
func CartModelFromDomain(c *cart.PersistedCart) *CartModel {
	m := &CartModel{
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Items:     datatypes.NewJSONType(c.Items),
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// WishlistModel is the persistence model for a user's wishlist.
type WishlistModel struct {
	TenantAggregateModel
	UserID uuid.UUID                                   `gorm:"type:uuid;not null;index"`
	Items  datatypes.JSONType[[]wishlist.WishlistItem] `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (WishlistModel) TableName() string {
	return "wishlists"
}

// ToDomain converts the persistence model to a domain Wishlist.
func (m *WishlistModel) ToDomain() *wishlist.Wishlist {
	items := m.Items.Data()
	if items == nil {
		items = make([]wishlist.WishlistItem, 0)
	}
	return &wishlist.Wishlist{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		UserID:              m.UserID,
		Items:               items,
	}
}

// WishlistModelFromDomain creates a new persistence model from a domain Wishlist.
func WishlistModelFromDomain(w *wishlist.Wishlist) *WishlistModel {
	m := &WishlistModel{
		UserID: w.UserID,
		Items:  datatypes.NewJSONType(w.Items),
	}
	m.FromDomainTenantAggregateRoot(w.TenantAggregateRoot)
	return m
}

// ProductReviewModel is the persistence model for a product review.
type ProductReviewModel struct {
	TenantAggregateModel
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID       *uuid.UUID `gorm:"type:uuid;index"`
	ReviewerName string     `gorm:"type:varchar(200)"`
	Rating       int        `gorm:"not null"`
	Title        string     `gorm:"type:varchar(200)"`
	Body         string     `gorm:"type:text"`
	Anonymized   bool       `gorm:"not null;default:false"`
	AnonymizedAt *time.Time `gorm:"column:anonymized_at"`
}

// TableName returns the table name for GORM
func (ProductReviewModel) TableName() string {
	return "product_reviews"
}

// ToDomain converts the persistence model to a domain ProductReview.
func (m *ProductReviewModel) ToDomain() *review.ProductReview {
	return &review.ProductReview{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ProductID:           m.ProductID,
		UserID:              m.UserID,
		ReviewerName:        m.ReviewerName,
		Rating:              m.Rating,
		Title:               m.Title,
		Body:                m.Body,
		Anonymized:          m.Anonymized,
	}
}

// ProductReviewModelFromDomain creates a new persistence model from a domain ProductReview.
func ProductReviewModelFromDomain(r *review.ProductReview) *ProductReviewModel {
	m := &ProductReviewModel{
		ProductID:    r.ProductID,
		UserID:       r.UserID,
		ReviewerName: r.ReviewerName,
		Rating:       r.Rating,
		Title:        r.Title,
		Body:         r.Body,
		Anonymized:   r.Anonymized,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}

// ActivityRecordModel is the persistence model for a raw activity record.
type ActivityRecordModel struct {
	ID         uuid.UUID                             `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID                             `gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID                             `gorm:"type:uuid;not null;index"`
	Type       string                                `gorm:"type:varchar(50);not null"`
	Details    datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	IPAddress  string                                `gorm:"type:varchar(64)"`
	UserAgent  string                                `gorm:"type:varchar(500)"`
	OccurredAt time.Time                             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityRecordModel) TableName() string {
	return "activity_records"
}

// ToDomain converts the persistence model to a domain activity Record.
func (m *ActivityRecordModel) ToDomain() *activity.Record {
	details := m.Details.Data()
	if details == nil {
		details = map[string]string{}
	}
	return &activity.Record{
		ID:         m.ID,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		Type:       m.Type,
		Details:    details,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		OccurredAt: m.OccurredAt,
	}
}

// ActivityRecordModelFromDomain creates a new persistence model from a domain activity Record.
func ActivityRecordModelFromDomain(r *activity.Record) *ActivityRecordModel {
	return &ActivityRecordModel{
		ID:         r.ID,
		TenantID:   r.TenantID,
		UserID:     r.UserID,
		Type:       r.Type,
		Details:    datatypes.NewJSONType(r.Details),
		IPAddress:  r.IPAddress,
		UserAgent:  r.UserAgent,
		OccurredAt: r.OccurredAt,
	}
}
