package gdpr

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/activity"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/review"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/wishlist"
)

// Labels stamped on export and erasure results
const (
	DataFormatJSON = "JSON"
	ArticleExport  = "Article 15 / Article 20"
	ArticleErasure = "Article 17"
)

// ExportSnapshot is everything stored about one user in one tenant.
// Money is rendered as fixed two-decimal strings and times are UTC, so the
// JSON form decodes back into an identical value.
type ExportSnapshot struct {
	UserID      uuid.UUID      `json:"userId"`
	ExportedAt  time.Time      `json:"exportedAt"`
	DataFormat  string         `json:"dataFormat"`
	GDPRArticle string         `json:"gdprArticle"`
	Profile     ProfileData    `json:"profile"`
	Orders      []OrderData    `json:"orders"`
	Carts       []CartData     `json:"carts"`
	Reviews     []ReviewData   `json:"reviews"`
	Wishlist    []WishlistData `json:"wishlist"`
	Activity    []ActivityData `json:"activity"`
}

// ProfileData is the account section of an export
type ProfileData struct {
	Email        string                `json:"email"`
	FirstName    string                `json:"firstName"`
	LastName     string                `json:"lastName"`
	Phone        string                `json:"phone"`
	Addresses    []valueobject.Address `json:"addresses"`
	AuthProvider string                `json:"authProvider"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// OrderData is one order with its lines, pricing, delivery and status history
type OrderData struct {
	ID                    uuid.UUID           `json:"id"`
	OrderNumber           string              `json:"orderNumber"`
	Status                string              `json:"status"`
	CustomerEmail         string              `json:"customerEmail"`
	CustomerName          string              `json:"customerName"`
	ShippingAddress       valueobject.Address `json:"shippingAddress"`
	Items                 []LineItemData      `json:"items"`
	Subtotal              string              `json:"subtotal"`
	Shipping              string              `json:"shipping"`
	Tax                   string              `json:"tax"`
	Total                 string              `json:"total"`
	PaymentMethod         string              `json:"paymentMethod"`
	PaymentStatus         string              `json:"paymentStatus"`
	TrackingNumber        string              `json:"trackingNumber"`
	Carrier               string              `json:"carrier"`
	EstimatedDeliveryDate *time.Time          `json:"estimatedDeliveryDate"`
	ActualDeliveryDate    *time.Time          `json:"actualDeliveryDate"`
	StatusHistory         []StatusEntryData   `json:"statusHistory"`
	CreatedAt             time.Time           `json:"createdAt"`
}

// LineItemData is a product line of an order or a cart
type LineItemData struct {
	ProductID  uuid.UUID         `json:"productId"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Price      string            `json:"price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes"`
	Subtotal   string            `json:"subtotal"`
}

// StatusEntryData is one entry of an order's status history
type StatusEntryData struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// CartData is a saved cart of the user
type CartData struct {
	ID        uuid.UUID      `json:"id"`
	SessionID string         `json:"sessionId"`
	Items     []LineItemData `json:"items"`
	Subtotal  string         `json:"subtotal"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ReviewData is a product review written by the user
type ReviewData struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// WishlistData is the user's wishlist
type WishlistData struct {
	ID    uuid.UUID          `json:"id"`
	Items []WishlistItemData `json:"items"`
}

// WishlistItemData is a product saved on the wishlist
type WishlistItemData struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	AddedAt   time.Time `json:"addedAt"`
}

// ActivityData is a recorded user activity with its client fingerprint
type ActivityData struct {
	Type       string            `json:"type"`
	Details    map[string]string `json:"details"`
	IPAddress  string            `json:"ipAddress"`
	UserAgent  string            `json:"userAgent"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// NewExportSnapshot assembles a snapshot. Every collection is non-nil.
func NewExportSnapshot(user *identity.User, orders []order.Order, carts []cart.PersistedCart, reviews []review.ProductReview, wl *wishlist.Wishlist, records []activity.Record, exportedAt time.Time) *ExportSnapshot {
	s := &ExportSnapshot{
		UserID:      user.ID,
		ExportedAt:  utc(exportedAt),
		DataFormat:  DataFormatJSON,
		GDPRArticle: ArticleExport,
		Profile:     ProfileFromUser(user),
		Orders:      make([]OrderData, 0, len(orders)),
		Carts:       make([]CartData, 0, len(carts)),
		Reviews:     make([]ReviewData, 0, len(reviews)),
		Wishlist:    make([]WishlistData, 0, 1),
		Activity:    make([]ActivityData, 0, len(records)),
	}
	for i := range orders {
		s.Orders = append(s.Orders, OrderFromDomain(&orders[i]))
	}
	for i := range carts {
		s.Carts = append(s.Carts, CartFromDomain(&carts[i]))
	}
	for i := range reviews {
		s.Reviews = append(s.Reviews, ReviewFromDomain(&reviews[i]))
	}
	if wl != nil {
		s.Wishlist = append(s.Wishlist, WishlistFromDomain(wl))
	}
	for i := range records {
		s.Activity = append(s.Activity, ActivityFromDomain(&records[i]))
	}
	return s
}

// ProfileFromUser maps the user record into the profile section
func ProfileFromUser(u *identity.User) ProfileData {
	addresses := make([]valueobject.Address, len(u.Addresses))
	copy(addresses, u.Addresses)
	return ProfileData{
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		Addresses:    addresses,
		AuthProvider: u.AuthProvider(),
		CreatedAt:    utc(u.CreatedAt),
	}
}

// OrderFromDomain maps an order into the export form, money as two-decimal strings
func OrderFromDomain(o *order.Order) OrderData {
	items := make([]LineItemData, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItemData{
			ProductID:  item.ProductID,
			Name:       item.Name,
			SKU:        item.SKU,
			Price:      valueobject.FormatMoney(item.Price),
			Quantity:   item.Quantity,
			Attributes: copyMap(item.Attributes),
			Subtotal:   valueobject.FormatMoney(item.Subtotal),
		})
	}
	history := make([]StatusEntryData, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, StatusEntryData{
			Status:    h.Status.String(),
			Timestamp: utc(h.Timestamp),
			Note:      h.Note,
		})
	}
	return OrderData{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		Status:                o.Status.String(),
		CustomerEmail:         o.Customer.Email,
		CustomerName:          o.Customer.Name,
		ShippingAddress:       o.ShippingAddress,
		Items:                 items,
		Subtotal:              valueobject.FormatMoney(o.Pricing.Subtotal),
		Shipping:              valueobject.FormatMoney(o.Pricing.Shipping),
		Tax:                   valueobject.FormatMoney(o.Pricing.Tax),
		Total:                 valueobject.FormatMoney(o.Pricing.Total),
		PaymentMethod:         o.Payment.Method,
		PaymentStatus:         string(o.Payment.Status),
		TrackingNumber:        o.TrackingNumber,
		Carrier:               o.Carrier,
		EstimatedDeliveryDate: utcPtr(o.EstimatedDeliveryDate),
		ActualDeliveryDate:    utcPtr(o.ActualDeliveryDate),
		StatusHistory:         history,
		CreatedAt:             utc(o.CreatedAt),
	}
}

// CartFromDomain maps a saved cart; the subtotal is recomputed from its lines
func CartFromDomain(c *cart.PersistedCart) CartData {
	items := make([]LineItemData, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, LineItemData{
			ProductID:  item.ProductID,
			Name:       item.Name,
			SKU:        item.SKU,
			Price:      valueobject.FormatMoney(item.Price),
			Quantity:   item.Quantity,
			Attributes: copyMap(item.Attributes),
			Subtotal:   valueobject.FormatMoney(item.Subtotal),
		})
	}
	return CartData{
		ID:        c.ID,
		SessionID: c.SessionID,
		Items:     items,
		Subtotal:  valueobject.FormatMoney(c.Subtotal()),
		UpdatedAt: utc(c.UpdatedAt),
	}
}

// ReviewFromDomain maps a product review
func ReviewFromDomain(r *review.ProductReview) ReviewData {
	return ReviewData{
		ID:        r.ID,
		ProductID: r.ProductID,
		Rating:    r.Rating,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: utc(r.CreatedAt),
	}
}

// WishlistFromDomain maps a wishlist and its items
func WishlistFromDomain(w *wishlist.Wishlist) WishlistData {
	items := make([]WishlistItemData, 0, len(w.Items))
	for _, item := range w.Items {
		items = append(items, WishlistItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			AddedAt:   utc(item.AddedAt),
		})
	}
	return WishlistData{ID: w.ID, Items: items}
}

// ActivityFromDomain maps an activity record
func ActivityFromDomain(r *activity.Record) ActivityData {
	return ActivityData{
		Type:       r.Type,
		Details:    copyMap(r.Details),
		IPAddress:  r.IPAddress,
		UserAgent:  r.UserAgent,
		OccurredAt: utc(r.OccurredAt),
	}
}

// utc drops the location and monotonic reading so values survive a JSON round trip unchanged
func utc(t time.Time) time.Time {
	return t.UTC().Round(0)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := utc(*t)
	return &v
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
