package api

import (
	"context"
	"fmt"

	"github.com/ecomapp/storefront/internal/domain"
)

// CartAPI wraps the /cart endpoints. Mutations return the server's
// authoritative cart, which replaces the optimistic local state wholesale.
type CartAPI struct {
	client *Client
}

func NewCartAPI(client *Client) *CartAPI {
	return &CartAPI{client: client}
}

func (c *CartAPI) Get(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.client.Get(ctx, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartAPI) AddItem(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	if variantID != "" {
		body["variantId"] = variantID
	}
	var cart domain.Cart
	if err := c.client.Post(ctx, "/cart/items", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartAPI) UpdateQuantity(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	body := map[string]int{"quantity": quantity}
	var cart domain.Cart
	if err := c.client.Put(ctx, fmt.Sprintf("/cart/items/%s", itemID), body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartAPI) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.client.Delete(ctx, fmt.Sprintf("/cart/items/%s", itemID), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartAPI) Clear(ctx context.Context) error {
	return c.client.Delete(ctx, "/cart", nil)
}

func (c *CartAPI) ApplyCoupon(ctx context.Context, code string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.client.Post(ctx, "/cart/coupon", map[string]string{"code": code}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartAPI) RemoveCoupon(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.client.Delete(ctx, "/cart/coupon", &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Sync pushes a locally accumulated cart (e.g. built while offline or before
// login) and returns the server's merged view.
func (c *CartAPI) Sync(ctx context.Context, items []domain.CartItem) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.client.Post(ctx, "/cart/sync", map[string]any{"items": items}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}
