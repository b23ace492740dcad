package domain

import "time"

// TaxRate is the current tax policy applied to the cart subtotal.
const TaxRate = 0.18

type Cart struct {
	Items     []CartItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Discount  float64    `json:"discount"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

type CartItem struct {
	ID       string          `json:"id"`
	Product  Product         `json:"product"`
	Variant  *ProductVariant `json:"variant,omitempty"`
	Quantity int             `json:"quantity"`
	AddedAt  time.Time       `json:"addedAt"`
}

// CartFromItems builds a cart whose derived fields (subtotal, tax, total,
// itemCount) are recomputed from the item list. Derived fields are never set
// independently; every local mutation goes through here.
func CartFromItems(items []CartItem, discount float64) Cart {
	var subtotal float64
	var count int
	for _, item := range items {
		subtotal += item.Product.Price * float64(item.Quantity)
		count += item.Quantity
	}
	tax := subtotal * TaxRate
	return Cart{
		Items:     items,
		Subtotal:  subtotal,
		Discount:  discount,
		Tax:       tax,
		Total:     subtotal - discount + tax,
		ItemCount: count,
	}
}

// EmptyCart returns a cart with no items and all derived fields at zero.
func EmptyCart() Cart {
	return CartFromItems(nil, 0)
}

// FindItem returns the index of the item with the given id, or -1.
func (c Cart) FindItem(itemID string) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
