package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func item(price float64, qty int) CartItem {
	return CartItem{
		ID:       "item-1",
		Product:  Product{ID: "p1", Name: "Shirt", Price: price},
		Quantity: qty,
		AddedAt:  time.Now(),
	}
}

func TestCartFromItems_DerivedTotals(t *testing.T) {
	cart := CartFromItems([]CartItem{item(1000, 2)}, 0)

	assert.Equal(t, 2000.0, cart.Subtotal)
	assert.Equal(t, 360.0, cart.Tax)
	assert.Equal(t, 2360.0, cart.Total)
	assert.Equal(t, 2, cart.ItemCount)
}

func TestCartFromItems_Empty(t *testing.T) {
	cart := EmptyCart()

	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Subtotal)
	assert.Zero(t, cart.Tax)
	assert.Zero(t, cart.Total)
	assert.Zero(t, cart.ItemCount)
	assert.Zero(t, cart.Discount)
}

func TestCartFromItems_Invariants(t *testing.T) {
	items := []CartItem{
		{ID: "a", Product: Product{ID: "p1", Price: 499.5}, Quantity: 3},
		{ID: "b", Product: Product{ID: "p2", Price: 120}, Quantity: 1},
		{ID: "c", Product: Product{ID: "p3", Price: 75.25}, Quantity: 4},
	}
	cart := CartFromItems(items, 100)

	wantSubtotal := 499.5*3 + 120 + 75.25*4
	wantCount := 3 + 1 + 4

	assert.InDelta(t, wantSubtotal, cart.Subtotal, 1e-9)
	assert.InDelta(t, wantSubtotal*TaxRate, cart.Tax, 1e-9)
	assert.InDelta(t, cart.Subtotal-cart.Discount+cart.Tax, cart.Total, 1e-9)
	assert.Equal(t, wantCount, cart.ItemCount)
	assert.Equal(t, 100.0, cart.Discount)
}

func TestCart_FindItem(t *testing.T) {
	cart := CartFromItems([]CartItem{
		{ID: "a", Product: Product{Price: 10}, Quantity: 1},
		{ID: "b", Product: Product{Price: 20}, Quantity: 1},
	}, 0)

	assert.Equal(t, 1, cart.FindItem("b"))
	assert.Equal(t, -1, cart.FindItem("missing"))
}

func TestFindWishlistItem(t *testing.T) {
	items := []WishlistItem{
		{ID: "w1", Product: Product{ID: "p1"}},
		{ID: "w2", Product: Product{ID: "p2"}},
	}

	found := FindWishlistItem(items, "p2")
	assert.NotNil(t, found)
	assert.Equal(t, "w2", found.ID)

	assert.Nil(t, FindWishlistItem(items, "p9"))
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, Session{}.Expired(now), "unknown expiry means assumed live")
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}
