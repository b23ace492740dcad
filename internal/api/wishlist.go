package api

import (
	"context"
	"fmt"

	"github.com/ecomapp/storefront/internal/domain"
)

// WishlistAPI wraps the /wishlist endpoints.
type WishlistAPI struct {
	client *Client
}

func NewWishlistAPI(client *Client) *WishlistAPI {
	return &WishlistAPI{client: client}
}

func (w *WishlistAPI) Get(ctx context.Context) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	if err := w.client.Get(ctx, "/wishlist", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (w *WishlistAPI) AddItem(ctx context.Context, productID string) (*domain.WishlistItem, error) {
	var item domain.WishlistItem
	if err := w.client.Post(ctx, "/wishlist/items", map[string]string{"productId": productID}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (w *WishlistAPI) RemoveItem(ctx context.Context, itemID string) error {
	return w.client.Delete(ctx, fmt.Sprintf("/wishlist/items/%s", itemID), nil)
}

func (w *WishlistAPI) MoveToCart(ctx context.Context, itemID string) error {
	return w.client.Post(ctx, fmt.Sprintf("/wishlist/items/%s/move-to-cart", itemID), nil, nil)
}

func (w *WishlistAPI) Clear(ctx context.Context) error {
	return w.client.Delete(ctx, "/wishlist", nil)
}
