package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the Order aggregate root.
// The order number is unique per tenant (see migrations).
type OrderModel struct {
	TenantAggregateModel
	OrderNumber           string                    `gorm:"type:varchar(50);not null;index"`
	UserID                *uuid.UUID                `gorm:"type:uuid;index"`
	CustomerEmail         string                    `gorm:"type:varchar(255);not null;index"`
	CustomerName          string                    `gorm:"type:varchar(200);not null"`
	ShippingLine1         string                    `gorm:"type:varchar(200)"`
	ShippingLine2         string                    `gorm:"type:varchar(200)"`
	ShippingCity          string                    `gorm:"type:varchar(100)"`
	ShippingState         string                    `gorm:"type:varchar(100)"`
	ShippingPostalCode    string                    `gorm:"type:varchar(20)"`
	ShippingCountry       string                    `gorm:"type:varchar(100)"`
	Subtotal              decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	Shipping              decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	Tax                   decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	Total                 decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentMethod         string                    `gorm:"type:varchar(50)"`
	PaymentStatus         order.PaymentStatus       `gorm:"type:varchar(20);not null;default:'PENDING'"`
	TransactionID         string                    `gorm:"type:varchar(100)"`
	Status                order.OrderStatus         `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TrackingNumber        string                    `gorm:"type:varchar(100)"`
	Carrier               string                    `gorm:"type:varchar(20)"`
	TrackingURL           string                    `gorm:"type:varchar(500)"`
	EstimatedDeliveryDate *time.Time                `gorm:"column:estimated_delivery_date"`
	ActualDeliveryDate    *time.Time                `gorm:"column:actual_delivery_date"`
	Anonymized            bool                      `gorm:"not null;default:false;index"`
	AnonymizedAt          *time.Time                `gorm:"column:anonymized_at"`
	Items                 []OrderItemModel          `gorm:"foreignKey:OrderID;references:ID"`
	History               []OrderStatusHistoryModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		UserID:              m.UserID,
		Customer: order.Customer{
			Email: m.CustomerEmail,
			Name:  m.CustomerName,
		},
		ShippingAddress: valueobject.Address{
			Line1:      m.ShippingLine1,
			Line2:      m.ShippingLine2,
			City:       m.ShippingCity,
			State:      m.ShippingState,
			PostalCode: m.ShippingPostalCode,
			Country:    m.ShippingCountry,
		},
		Pricing: order.Pricing{
			Subtotal: m.Subtotal,
			Shipping: m.Shipping,
			Tax:      m.Tax,
			Total:    m.Total,
		},
		Payment: order.Payment{
			Method:        m.PaymentMethod,
			Status:        m.PaymentStatus,
			TransactionID: m.TransactionID,
		},
		Status:                m.Status,
		TrackingNumber:        m.TrackingNumber,
		Carrier:               m.Carrier,
		TrackingURL:           m.TrackingURL,
		EstimatedDeliveryDate: m.EstimatedDeliveryDate,
		ActualDeliveryDate:    m.ActualDeliveryDate,
		Anonymized:            m.Anonymized,
		AnonymizedAt:          m.AnonymizedAt,
		Items:                 make([]order.OrderItem, len(m.Items)),
		StatusHistory:         make([]order.StatusHistoryEntry, len(m.History)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.History {
		o.StatusHistory[i] = m.History[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.CustomerEmail = o.Customer.Email
	m.CustomerName = o.Customer.Name
	m.ShippingLine1 = o.ShippingAddress.Line1
	m.ShippingLine2 = o.ShippingAddress.Line2
	m.ShippingCity = o.ShippingAddress.City
	m.ShippingState = o.ShippingAddress.State
	m.ShippingPostalCode = o.ShippingAddress.PostalCode
	m.ShippingCountry = o.ShippingAddress.Country
	m.Subtotal = o.Pricing.Subtotal
	m.Shipping = o.Pricing.Shipping
	m.Tax = o.Pricing.Tax
	m.Total = o.Pricing.Total
	m.PaymentMethod = o.Payment.Method
	m.PaymentStatus = o.Payment.Status
	m.TransactionID = o.Payment.TransactionID
	m.Status = o.Status
	m.TrackingNumber = o.TrackingNumber
	m.Carrier = o.Carrier
	m.TrackingURL = o.TrackingURL
	m.EstimatedDeliveryDate = o.EstimatedDeliveryDate
	m.ActualDeliveryDate = o.ActualDeliveryDate
	m.Anonymized = o.Anonymized
	m.AnonymizedAt = o.AnonymizedAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o, i)
	}
	m.History = make([]OrderStatusHistoryModel, len(o.StatusHistory))
	for i := range o.StatusHistory {
		m.History[i] = OrderStatusHistoryModelFromDomain(o, i)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID         uuid.UUID                             `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID                             `gorm:"type:uuid;not null;index"`
	OrderID    uuid.UUID                             `gorm:"type:uuid;not null;index"`
	Position   int                                   `gorm:"not null"`
	ProductID  uuid.UUID                             `gorm:"type:uuid;not null"`
	Name       string                                `gorm:"type:varchar(200);not null"`
	SKU        string                                `gorm:"column:sku;type:varchar(100)"`
	Price      decimal.Decimal                       `gorm:"type:decimal(18,2);not null"`
	Quantity   int                                   `gorm:"not null"`
	Attributes datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	Subtotal   decimal.Decimal                       `gorm:"type:decimal(18,2);not null"`
	CreatedAt  time.Time                             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() order.OrderItem {
	attrs := m.Attributes.Data()
	if attrs == nil {
		attrs = map[string]string{}
	}
	return order.OrderItem{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Name:       m.Name,
		SKU:        m.SKU,
		Price:      m.Price,
		Quantity:   m.Quantity,
		Attributes: attrs,
		Subtotal:   m.Subtotal,
	}
}

// OrderItemModelFromDomain maps the i-th line of o.
func OrderItemModelFromDomain(o *order.Order, i int) OrderItemModel {
	item := o.Items[i]
	return OrderItemModel{
		ID:         item.ID,
		TenantID:   o.TenantID,
		OrderID:    o.ID,
		Position:   i,
		ProductID:  item.ProductID,
		Name:       item.Name,
		SKU:        item.SKU,
		Price:      item.Price,
		Quantity:   item.Quantity,
		Attributes: datatypes.NewJSONType(item.Attributes),
		Subtotal:   item.Subtotal,
		CreatedAt:  o.CreatedAt,
	}
}

// OrderStatusHistoryModel is one append-only status history row.
type OrderStatusHistoryModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Seq       int               `gorm:"not null"`
	Status    order.OrderStatus `gorm:"type:varchar(20);not null"`
	Note      string            `gorm:"type:varchar(500)"`
	ChangedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStatusHistoryModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain StatusHistoryEntry.
func (m *OrderStatusHistoryModel) ToDomain() order.StatusHistoryEntry {
	return order.StatusHistoryEntry{
		Status:    m.Status,
		Timestamp: m.ChangedAt,
		Note:      m.Note,
	}
}

// OrderStatusHistoryModelFromDomain maps the i-th history entry of o.
func OrderStatusHistoryModelFromDomain(o *order.Order, i int) OrderStatusHistoryModel {
	entry := o.StatusHistory[i]
	return OrderStatusHistoryModel{
		ID:        uuid.New(),
		TenantID:  o.TenantID,
		OrderID:   o.ID,
		Seq:       i,
		Status:    entry.Status,
		Note:      entry.Note,
		ChangedAt: entry.Timestamp,
	}
}

// OrderSequenceModel is the per tenant per day order number counter.
type OrderSequenceModel struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Day      string    `gorm:"type:varchar(8);primaryKey"`
	Value    int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderSequenceModel) TableName() string {
	return "order_number_sequences"
}
