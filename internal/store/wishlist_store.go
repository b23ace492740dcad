package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/domain"
)

// WishlistAPI is the slice of the remote gateway the wishlist store drives.
type WishlistAPI interface {
	Get(ctx context.Context) ([]domain.WishlistItem, error)
	AddItem(ctx context.Context, productID string) (*domain.WishlistItem, error)
	RemoveItem(ctx context.Context, itemID string) error
	MoveToCart(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
}

// WishlistStore holds the wishlist with set semantics keyed by product id.
type WishlistStore struct {
	api   WishlistAPI
	cache cache.Store
	log   *slog.Logger

	mu      sync.RWMutex
	items   []domain.WishlistItem
	lastErr error

	mutationMu sync.Mutex
}

func NewWishlistStore(api WishlistAPI, cacheStore cache.Store, log *slog.Logger) *WishlistStore {
	if log == nil {
		log = slog.Default()
	}
	return &WishlistStore{
		api:   api,
		cache: cacheStore,
		log:   log,
	}
}

func (s *WishlistStore) Items() []domain.WishlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WishlistItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *WishlistStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Contains reports membership by product id.
func (s *WishlistStore) Contains(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FindWishlistItem(s.items, productID) != nil
}

// Load seeds from cache, then fetches the authoritative list. A failed fetch
// keeps the cached seed.
func (s *WishlistStore) Load(ctx context.Context) error {
	var cached []domain.WishlistItem
	if err := cache.GetJSON(ctx, s.cache, cache.KeyWishlist, &cached); err == nil {
		s.setItems(cached)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("wishlist cache read failed", "error", err)
	}

	fresh, err := s.api.Get(ctx)
	if err != nil {
		s.setError(err)
		return err
	}
	s.setItems(fresh)
	s.persist(ctx, fresh)
	s.setError(nil)
	return nil
}

// Add is idempotent at the store level: re-adding a product already present
// short-circuits without a network call.
func (s *WishlistStore) Add(ctx context.Context, product domain.Product) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	prev := s.Items()
	if domain.FindWishlistItem(prev, product.ID) != nil {
		return nil
	}

	placeholder := domain.WishlistItem{
		ID:      tempID(),
		Product: product,
		AddedAt: time.Now(),
	}
	tentative := append(copyWishlist(prev), placeholder)
	s.setItems(tentative)
	s.persist(ctx, tentative)

	confirmed, err := s.api.AddItem(ctx, product.ID)
	if err != nil {
		s.rollback(ctx, prev)
		s.setError(err)
		return err
	}

	// Swap the placeholder for the server-issued item.
	final := copyWishlist(tentative)
	for i := range final {
		if final[i].ID == placeholder.ID {
			final[i] = *confirmed
		}
	}
	s.setItems(final)
	s.persist(ctx, final)
	s.setError(nil)
	return nil
}

func (s *WishlistStore) Remove(ctx context.Context, itemID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	prev := s.Items()
	tentative := make([]domain.WishlistItem, 0, len(prev))
	for _, item := range prev {
		if item.ID != itemID {
			tentative = append(tentative, item)
		}
	}
	s.setItems(tentative)
	s.persist(ctx, tentative)

	if err := s.api.RemoveItem(ctx, itemID); err != nil {
		s.rollback(ctx, prev)
		s.setError(err)
		return err
	}
	s.setError(nil)
	return nil
}

// Toggle is a composite: membership lookup first, then the remove-by-id or
// add-by-product path. There is no dedicated toggle endpoint.
func (s *WishlistStore) Toggle(ctx context.Context, product domain.Product) error {
	if existing := domain.FindWishlistItem(s.Items(), product.ID); existing != nil {
		return s.Remove(ctx, existing.ID)
	}
	return s.Add(ctx, product)
}

// MoveToCart asks the server to move one item into the cart, then drops it
// locally. The caller is expected to reload the cart store afterwards.
func (s *WishlistStore) MoveToCart(ctx context.Context, itemID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	if err := s.api.MoveToCart(ctx, itemID); err != nil {
		s.setError(err)
		return err
	}

	remaining := make([]domain.WishlistItem, 0)
	for _, item := range s.Items() {
		if item.ID != itemID {
			remaining = append(remaining, item)
		}
	}
	s.setItems(remaining)
	s.persist(ctx, remaining)
	s.setError(nil)
	return nil
}

// Clear empties the wishlist locally and best-effort remotely.
func (s *WishlistStore) Clear(ctx context.Context) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.setItems(nil)
	if err := s.cache.Delete(ctx, cache.KeyWishlist); err != nil {
		s.log.Warn("wishlist cache delete failed", "error", err)
	}
	if err := s.api.Clear(ctx); err != nil {
		s.setError(err)
		return err
	}
	s.setError(nil)
	return nil
}

// Reset drops all local wishlist state and its cache entry. Used on logout.
func (s *WishlistStore) Reset(ctx context.Context) {
	s.setItems(nil)
	s.setError(nil)
	if err := s.cache.Delete(ctx, cache.KeyWishlist); err != nil {
		s.log.Warn("wishlist cache delete failed", "error", err)
	}
}

func (s *WishlistStore) rollback(ctx context.Context, prev []domain.WishlistItem) {
	s.setItems(prev)
	s.persist(ctx, prev)

	fresh, err := s.api.Get(ctx)
	if err != nil {
		s.log.Warn("wishlist reload after rollback failed, keeping last known-good state", "error", err)
		return
	}
	s.setItems(fresh)
	s.persist(ctx, fresh)
}

func (s *WishlistStore) persist(ctx context.Context, items []domain.WishlistItem) {
	if err := cache.SetJSON(ctx, s.cache, cache.KeyWishlist, items); err != nil {
		s.log.Warn("wishlist cache write failed", "error", err)
	}
}

func (s *WishlistStore) setItems(items []domain.WishlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *WishlistStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func copyWishlist(items []domain.WishlistItem) []domain.WishlistItem {
	out := make([]domain.WishlistItem, len(items))
	copy(out, items)
	return out
}
