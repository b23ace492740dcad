package stubapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

// Coupons honoured by the stub: code -> flat discount amount.
var coupons = map[string]float64{
	"SAVE100":  100,
	"WELCOME5": 5,
}

func (s *Server) cartLocked(email string) domain.Cart {
	return domain.CartFromItems(s.carts[email], s.discounts[email])
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.cartLocked(emailFrom(r.Context())))
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Quantity must be at least 1.",
			map[string]string{"quantity": "Quantity must be at least 1."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product := s.productByIDLocked(body.ProductID)
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found.", nil)
		return
	}
	if !product.InStock {
		writeError(w, http.StatusConflict, "OUT_OF_STOCK", "This product is out of stock.", nil)
		return
	}
	var variant *domain.ProductVariant
	if body.VariantID != "" {
		for i := range product.Variants {
			if product.Variants[i].ID == body.VariantID {
				variant = &product.Variants[i]
			}
		}
		if variant == nil {
			writeError(w, http.StatusNotFound, "VARIANT_NOT_FOUND", "Product variant not found.", nil)
			return
		}
	}

	email := emailFrom(r.Context())
	items := s.carts[email]

	// Same product and variant merge into one line.
	merged := false
	for i := range items {
		if items[i].Product.ID != product.ID {
			continue
		}
		sameVariant := items[i].Variant == nil && variant == nil ||
			items[i].Variant != nil && variant != nil && items[i].Variant.ID == variant.ID
		if sameVariant {
			items[i].Quantity += body.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, domain.CartItem{
			ID:       uuid.NewString(),
			Product:  *product,
			Variant:  variant,
			Quantity: body.Quantity,
			AddedAt:  now(),
		})
	}
	s.carts[email] = items
	writeData(w, s.cartLocked(email))
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Quantity must be at least 1.",
			map[string]string{"quantity": "Quantity must be at least 1."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	itemID := chi.URLParam(r, "itemID")
	items := s.carts[email]
	found := false
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = body.Quantity
			found = true
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Cart item not found.", nil)
		return
	}
	writeData(w, s.cartLocked(email))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	itemID := chi.URLParam(r, "itemID")
	items := s.carts[email]
	kept := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Cart item not found.", nil)
		return
	}
	s.carts[email] = kept
	writeData(w, s.cartLocked(email))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	delete(s.carts, email)
	delete(s.discounts, email)
	writeData(w, nil)
}

func (s *Server) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	discount, ok := coupons[body.Code]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_COUPON", "This coupon code is not valid.",
			map[string]string{"code": "This coupon code is not valid."})
		return
	}
	s.discounts[email] = discount
	writeData(w, s.cartLocked(email))
}

func (s *Server) handleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	delete(s.discounts, email)
	writeData(w, s.cartLocked(email))
}

// handleSyncCart merges offline items into the server cart: quantities add up
// per product+variant, and items the server has never seen are adopted under
// fresh ids.
func (s *Server) handleSyncCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []domain.CartItem `json:"items"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	items := s.carts[email]
	for _, incoming := range body.Items {
		merged := false
		for i := range items {
			if items[i].Product.ID != incoming.Product.ID {
				continue
			}
			sameVariant := items[i].Variant == nil && incoming.Variant == nil ||
				items[i].Variant != nil && incoming.Variant != nil && items[i].Variant.ID == incoming.Variant.ID
			if sameVariant {
				items[i].Quantity += incoming.Quantity
				merged = true
				break
			}
		}
		if !merged {
			incoming.ID = uuid.NewString()
			if incoming.AddedAt.IsZero() {
				incoming.AddedAt = now()
			}
			items = append(items, incoming)
		}
	}
	s.carts[email] = items
	writeData(w, s.cartLocked(email))
}
