package stubapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.wishlists[emailFrom(r.Context())]
	if items == nil {
		items = []domain.WishlistItem{}
	}
	writeData(w, items)
}

// handleAddWishlistItem has set semantics: re-adding a product returns the
// existing item unchanged.
func (s *Server) handleAddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	if existing := domain.FindWishlistItem(s.wishlists[email], body.ProductID); existing != nil {
		writeData(w, existing)
		return
	}
	product := s.productByIDLocked(body.ProductID)
	if product == nil {
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found.", nil)
		return
	}
	item := domain.WishlistItem{
		ID:      uuid.NewString(),
		Product: *product,
		AddedAt: now(),
	}
	s.wishlists[email] = append(s.wishlists[email], item)
	writeData(w, item)
}

func (s *Server) handleRemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	itemID := chi.URLParam(r, "itemID")
	items := s.wishlists[email]
	kept := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Wishlist item not found.", nil)
		return
	}
	s.wishlists[email] = kept
	writeData(w, nil)
}

// handleMoveToCart transfers one wishlist item into the cart with quantity 1,
// merging with an existing line for the same product.
func (s *Server) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	itemID := chi.URLParam(r, "itemID")

	items := s.wishlists[email]
	var moved *domain.WishlistItem
	kept := items[:0]
	for i := range items {
		if items[i].ID == itemID {
			moved = &items[i]
		} else {
			kept = append(kept, items[i])
		}
	}
	if moved == nil {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Wishlist item not found.", nil)
		return
	}
	s.wishlists[email] = kept

	cartItems := s.carts[email]
	merged := false
	for i := range cartItems {
		if cartItems[i].Product.ID == moved.Product.ID && cartItems[i].Variant == nil {
			cartItems[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		cartItems = append(cartItems, domain.CartItem{
			ID:       uuid.NewString(),
			Product:  moved.Product,
			Quantity: 1,
			AddedAt:  now(),
		})
	}
	s.carts[email] = cartItems
	writeData(w, nil)
}

func (s *Server) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wishlists, emailFrom(r.Context()))
	writeData(w, nil)
}
