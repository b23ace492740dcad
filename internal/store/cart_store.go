// Package store holds the reactive state containers behind the storefront
// screens. Each store hydrates from the snapshot cache on startup, applies
// mutations optimistically, reconciles against the server's authoritative
// state, and persists every accepted transition back to the cache.
//
// Stores are constructed explicitly and injected, never package globals.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartAPI is the slice of the remote gateway the cart store drives.
type CartAPI interface {
	Get(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error)
	Clear(ctx context.Context) error
	ApplyCoupon(ctx context.Context, code string) (*domain.Cart, error)
	RemoveCoupon(ctx context.Context) (*domain.Cart, error)
	Sync(ctx context.Context, items []domain.CartItem) (*domain.Cart, error)
}

type CartStore struct {
	api   CartAPI
	cache cache.Store
	log   *slog.Logger

	mu      sync.RWMutex
	cart    domain.Cart
	syncing bool
	lastErr error

	// mutationMu serializes the whole optimistic → network → reconcile
	// cycle, so a second mutation always starts from a reconciled base and
	// never keys off another mutation's temporary id. Readers are not
	// blocked; they observe the optimistic state.
	mutationMu sync.Mutex
}

// reconcileResult is the outcome of a pending mutation: the server's
// authoritative cart, or the failure that triggers rollback.
type reconcileResult struct {
	cart *domain.Cart
	err  error
}

func NewCartStore(api CartAPI, cacheStore cache.Store, log *slog.Logger) *CartStore {
	if log == nil {
		log = slog.Default()
	}
	return &CartStore{
		api:   api,
		cache: cacheStore,
		log:   log,
		cart:  domain.EmptyCart(),
	}
}

// Cart returns the current state. During a pending mutation this is the
// optimistic view.
func (s *CartStore) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// Err returns the error recorded by the most recent failed operation, if any.
func (s *CartStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *CartStore) Syncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// Load seeds state from the snapshot cache for instant startup, then fetches
// the authoritative cart. A failed fetch keeps the cached seed.
func (s *CartStore) Load(ctx context.Context) error {
	var cached domain.Cart
	if err := cache.GetJSON(ctx, s.cache, cache.KeyCart, &cached); err == nil {
		s.setCart(cached)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("cart cache read failed", "error", err)
	}

	fresh, err := s.api.Get(ctx)
	if err != nil {
		s.setError(err)
		return err
	}
	s.setCart(*fresh)
	s.persist(ctx, *fresh)
	s.setError(nil)
	return nil
}

// AddItem optimistically appends the product under a temporary id, then
// reconciles with the server's cart.
func (s *CartStore) AddItem(ctx context.Context, product domain.Product, variant *domain.ProductVariant, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	variantID := ""
	if variant != nil {
		variantID = variant.ID
	}
	return s.mutate(ctx,
		func(cur domain.Cart) domain.Cart {
			items := append(copyItems(cur.Items), domain.CartItem{
				ID:       tempID(),
				Product:  product,
				Variant:  variant,
				Quantity: quantity,
				AddedAt:  time.Now(),
			})
			return domain.CartFromItems(items, cur.Discount)
		},
		func(ctx context.Context) (*domain.Cart, error) {
			return s.api.AddItem(ctx, product.ID, variantID, quantity)
		},
	)
}

func (s *CartStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx,
		func(cur domain.Cart) domain.Cart {
			items := copyItems(cur.Items)
			for i := range items {
				if items[i].ID == itemID {
					items[i].Quantity = quantity
				}
			}
			return domain.CartFromItems(items, cur.Discount)
		},
		func(ctx context.Context) (*domain.Cart, error) {
			return s.api.UpdateQuantity(ctx, itemID, quantity)
		},
	)
}

func (s *CartStore) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx,
		func(cur domain.Cart) domain.Cart {
			items := make([]domain.CartItem, 0, len(cur.Items))
			for _, item := range cur.Items {
				if item.ID != itemID {
					items = append(items, item)
				}
			}
			return domain.CartFromItems(items, cur.Discount)
		},
		func(ctx context.Context) (*domain.Cart, error) {
			return s.api.RemoveItem(ctx, itemID)
		},
	)
}

// Clear empties the cart locally and best-effort remotely. There is no
// rollback path: an empty cart is always a valid state to land on.
func (s *CartStore) Clear(ctx context.Context) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.setCart(domain.EmptyCart())
	if err := s.cache.Delete(ctx, cache.KeyCart); err != nil {
		s.log.Warn("cart cache delete failed", "error", err)
	}
	if err := s.api.Clear(ctx); err != nil {
		s.setError(err)
		return err
	}
	s.setError(nil)
	return nil
}

// ApplyCoupon has no optimistic step: only the server can price a coupon.
func (s *CartStore) ApplyCoupon(ctx context.Context, code string) error {
	return s.adopt(ctx, func(ctx context.Context) (*domain.Cart, error) {
		return s.api.ApplyCoupon(ctx, code)
	})
}

func (s *CartStore) RemoveCoupon(ctx context.Context) error {
	return s.adopt(ctx, func(ctx context.Context) (*domain.Cart, error) {
		return s.api.RemoveCoupon(ctx)
	})
}

// Sync pushes the locally held items and adopts the server's merged cart.
// A no-op when the cart is empty.
func (s *CartStore) Sync(ctx context.Context) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	current := s.Cart()
	if len(current.Items) == 0 {
		return nil
	}

	s.setSyncing(true)
	defer s.setSyncing(false)

	merged, err := s.api.Sync(ctx, current.Items)
	if err != nil {
		s.setError(err)
		return err
	}
	s.setCart(*merged)
	s.persist(ctx, *merged)
	s.setError(nil)
	return nil
}

// Reset drops all local cart state and its cache entry. Used on logout.
func (s *CartStore) Reset(ctx context.Context) {
	s.setCart(domain.EmptyCart())
	s.setError(nil)
	if err := s.cache.Delete(ctx, cache.KeyCart); err != nil {
		s.log.Warn("cart cache delete failed", "error", err)
	}
}

// mutate runs one full optimistic-mutation cycle:
//
//	Idle    — apply the local transition and snapshot it to cache
//	Pending — issue the network call
//	        — success: adopt the server cart wholesale, snapshot, Idle
//	        — failure: restore the pre-mutation state, then try to reconcile
//	          against the server (cache keeps the known-good state if that
//	          re-fetch fails too), record the error, Idle
func (s *CartStore) mutate(ctx context.Context, optimistic func(domain.Cart) domain.Cart, call func(context.Context) (*domain.Cart, error)) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	prev := s.Cart()
	tentative := optimistic(prev)
	s.setCart(tentative)
	s.persist(ctx, tentative)

	res := reconcileResult{}
	res.cart, res.err = call(ctx)

	if res.err != nil {
		s.rollback(ctx, prev)
		s.setError(res.err)
		return res.err
	}

	s.setCart(*res.cart)
	s.persist(ctx, *res.cart)
	s.setError(nil)
	return nil
}

// adopt wraps server-authoritative operations that have no optimistic step.
func (s *CartStore) adopt(ctx context.Context, call func(context.Context) (*domain.Cart, error)) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	updated, err := call(ctx)
	if err != nil {
		s.setError(err)
		return err
	}
	s.setCart(*updated)
	s.persist(ctx, *updated)
	s.setError(nil)
	return nil
}

// rollback discards the tentative state. The pre-mutation snapshot is
// restored first (memory and cache) so temporary ids never survive, then a
// re-fetch reconciles with the server when it is reachable.
func (s *CartStore) rollback(ctx context.Context, prev domain.Cart) {
	s.setCart(prev)
	s.persist(ctx, prev)

	fresh, err := s.api.Get(ctx)
	if err != nil {
		s.log.Warn("cart reload after rollback failed, keeping last known-good state", "error", err)
		return
	}
	s.setCart(*fresh)
	s.persist(ctx, *fresh)
}

func (s *CartStore) persist(ctx context.Context, cart domain.Cart) {
	if err := cache.SetJSON(ctx, s.cache, cache.KeyCart, cart); err != nil {
		s.log.Warn("cart cache write failed", "error", err)
	}
}

func (s *CartStore) setCart(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
}

func (s *CartStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *CartStore) setSyncing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = v
}

func copyItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}

// tempID issues a client-side identifier that lives only while the mutation
// that created it is pending.
func tempID() string {
	return fmt.Sprintf("temp-%s", uuid.NewString())
}
