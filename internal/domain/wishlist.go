package domain

import "time"

// WishlistItem wraps a product snapshot. The wishlist has set semantics keyed
// by product id; adding a product already present is a no-op.
type WishlistItem struct {
	ID      string    `json:"id"`
	Product Product   `json:"product"`
	AddedAt time.Time `json:"addedAt"`
}

// FindWishlistItem returns the item holding the given product id, or nil.
func FindWishlistItem(items []WishlistItem, productID string) *WishlistItem {
	for i := range items {
		if items[i].Product.ID == productID {
			return &items[i]
		}
	}
	return nil
}
