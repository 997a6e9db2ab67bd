package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// WishlistItem is a saved product
type WishlistItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	AddedAt   time.Time `json:"addedAt"`
}

// Wishlist holds the products a user saved for later. A user has at most one.
type Wishlist struct {
	shared.TenantAggregateRoot
	UserID uuid.UUID
	Items  []WishlistItem
}

// NewWishlist creates an empty wishlist for a user
func NewWishlist(tenantID, userID uuid.UUID) *Wishlist {
	return &Wishlist{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		Items:               make([]WishlistItem, 0),
	}
}

// Add saves a product; adding the same product twice keeps one entry
func (w *Wishlist) Add(productID uuid.UUID, name string) {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return
		}
	}
	w.Items = append(w.Items, WishlistItem{ProductID: productID, Name: name, AddedAt: time.Now().UTC()})
	w.Touch()
}

// Remove drops a product from the wishlist
func (w *Wishlist) Remove(productID uuid.UUID) bool {
	for i, item := range w.Items {
		if item.ProductID == productID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			w.Touch()
			return true
		}
	}
	return false
}

// WishlistRepository defines the interface for wishlist persistence
type WishlistRepository interface {
	// FindByUser finds the wishlist of a user; shared.ErrNotFound when none
	FindByUser(ctx context.Context, userID uuid.UUID) (*Wishlist, error)

	// Save creates or replaces a wishlist
	Save(ctx context.Context, wishlist *Wishlist) error

	// DeleteByUser hard-deletes the wishlist of a user
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
