package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/domain"
)

// MockCartAPI plays the remote cart endpoints. Server behaviour is modelled
// as a cart held in the mock that every successful call recomputes and
// returns, the way the real gateway answers with the authoritative cart.
type MockCartAPI struct {
	ServerItems    []domain.CartItem
	Discount       float64
	FailAddItem    error
	FailUpdate     error
	FailGet        error
	GetCallCount   int
	AddCallCount   int
	ClearCallCount int
	SyncCallCount  int
}

func (m *MockCartAPI) serverCart() *domain.Cart {
	cart := domain.CartFromItems(m.ServerItems, m.Discount)
	return &cart
}

func (m *MockCartAPI) Get(_ context.Context) (*domain.Cart, error) {
	m.GetCallCount++
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	return m.serverCart(), nil
}

func (m *MockCartAPI) AddItem(_ context.Context, productID, variantID string, quantity int) (*domain.Cart, error) {
	m.AddCallCount++
	if m.FailAddItem != nil {
		return nil, m.FailAddItem
	}
	m.ServerItems = append(m.ServerItems, domain.CartItem{
		ID:       "srv-" + productID,
		Product:  domain.Product{ID: productID, Price: 1000},
		Quantity: quantity,
		AddedAt:  time.Now(),
	})
	return m.serverCart(), nil
}

func (m *MockCartAPI) UpdateQuantity(_ context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if m.FailUpdate != nil {
		return nil, m.FailUpdate
	}
	for i := range m.ServerItems {
		if m.ServerItems[i].ID == itemID {
			m.ServerItems[i].Quantity = quantity
		}
	}
	return m.serverCart(), nil
}

func (m *MockCartAPI) RemoveItem(_ context.Context, itemID string) (*domain.Cart, error) {
	kept := m.ServerItems[:0]
	for _, item := range m.ServerItems {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	m.ServerItems = kept
	return m.serverCart(), nil
}

func (m *MockCartAPI) Clear(_ context.Context) error {
	m.ClearCallCount++
	m.ServerItems = nil
	m.Discount = 0
	return nil
}

func (m *MockCartAPI) ApplyCoupon(_ context.Context, code string) (*domain.Cart, error) {
	if code != "SAVE10" {
		return nil, errors.New("invalid coupon")
	}
	m.Discount = 100
	return m.serverCart(), nil
}

func (m *MockCartAPI) RemoveCoupon(_ context.Context) (*domain.Cart, error) {
	m.Discount = 0
	return m.serverCart(), nil
}

func (m *MockCartAPI) Sync(_ context.Context, items []domain.CartItem) (*domain.Cart, error) {
	m.SyncCallCount++
	m.ServerItems = items
	return m.serverCart(), nil
}

func TestCartStoreAddItemAdoptsServerCart(t *testing.T) {
	api := &MockCartAPI{}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)

	err := store.AddItem(context.Background(), domain.Product{ID: "p1", Price: 1000}, nil, 2)
	require.NoError(t, err)

	cart := store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "srv-p1", cart.Items[0].ID)
	assert.Equal(t, 2000.0, cart.Subtotal)
	assert.Equal(t, 360.0, cart.Tax)
	assert.Equal(t, 2360.0, cart.Total)
	assert.Equal(t, 2, cart.ItemCount)
}

func TestCartStoreAddItemRejectsBadQuantity(t *testing.T) {
	api := &MockCartAPI{}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)

	err := store.AddItem(context.Background(), domain.Product{ID: "p1"}, nil, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, api.AddCallCount)
}

func TestCartStoreRollbackLeavesNoTemporaryID(t *testing.T) {
	api := &MockCartAPI{
		ServerItems: []domain.CartItem{
			{ID: "srv-existing", Product: domain.Product{ID: "p0", Price: 500}, Quantity: 1},
		},
		FailAddItem: errors.New("boom"),
	}
	mem := cache.NewMemoryStore()
	store := NewCartStore(api, mem, nil)
	require.NoError(t, store.Load(context.Background()))

	err := store.AddItem(context.Background(), domain.Product{ID: "p1", Price: 1000}, nil, 1)
	require.Error(t, err)
	require.ErrorIs(t, store.Err(), err)

	cart := store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "srv-existing", cart.Items[0].ID)
	for _, item := range cart.Items {
		assert.False(t, strings.HasPrefix(item.ID, "temp-"))
	}

	// Rollback must also leave the snapshot cache clean of temporary ids.
	var cached domain.Cart
	require.NoError(t, cache.GetJSON(context.Background(), mem, cache.KeyCart, &cached))
	require.Len(t, cached.Items, 1)
	assert.Equal(t, "srv-existing", cached.Items[0].ID)
}

func TestCartStoreRollbackKeepsSnapshotWhenRefetchFails(t *testing.T) {
	api := &MockCartAPI{
		ServerItems: []domain.CartItem{
			{ID: "srv-existing", Product: domain.Product{ID: "p0", Price: 500}, Quantity: 1},
		},
	}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.Load(context.Background()))

	netErr := errors.New("offline")
	api.FailAddItem = netErr
	api.FailGet = netErr

	err := store.AddItem(context.Background(), domain.Product{ID: "p1", Price: 1000}, nil, 1)
	require.ErrorIs(t, err, netErr)

	cart := store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "srv-existing", cart.Items[0].ID)
	assert.Equal(t, 500.0, cart.Subtotal)
}

func TestCartStoreLoadKeepsCachedSeedWhenFetchFails(t *testing.T) {
	mem := cache.NewMemoryStore()
	seed := domain.CartFromItems([]domain.CartItem{
		{ID: "cached-1", Product: domain.Product{ID: "p9", Price: 750}, Quantity: 2},
	}, 0)
	require.NoError(t, cache.SetJSON(context.Background(), mem, cache.KeyCart, seed))

	api := &MockCartAPI{FailGet: errors.New("offline")}
	store := NewCartStore(api, mem, nil)

	err := store.Load(context.Background())
	require.Error(t, err)

	cart := store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "cached-1", cart.Items[0].ID)
	assert.Equal(t, 1500.0, cart.Subtotal)
}

func TestCartStoreUpdateQuantityRecomputesTotals(t *testing.T) {
	api := &MockCartAPI{
		ServerItems: []domain.CartItem{
			{ID: "srv-a", Product: domain.Product{ID: "pa", Price: 1000}, Quantity: 1},
		},
	}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.Load(context.Background()))

	require.NoError(t, store.UpdateQuantity(context.Background(), "srv-a", 3))

	cart := store.Cart()
	assert.Equal(t, 3000.0, cart.Subtotal)
	assert.Equal(t, 540.0, cart.Tax)
	assert.Equal(t, 3540.0, cart.Total)
	assert.Equal(t, 3, cart.ItemCount)
}

func TestCartStoreCouponRoundTrip(t *testing.T) {
	api := &MockCartAPI{
		ServerItems: []domain.CartItem{
			{ID: "srv-a", Product: domain.Product{ID: "pa", Price: 1000}, Quantity: 1},
		},
	}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.Load(context.Background()))

	require.NoError(t, store.ApplyCoupon(context.Background(), "SAVE10"))
	cart := store.Cart()
	assert.Equal(t, 100.0, cart.Discount)
	assert.Equal(t, 1000.0-100.0+180.0, cart.Total)

	require.Error(t, store.ApplyCoupon(context.Background(), "NOPE"))
	// State unchanged on a rejected coupon.
	assert.Equal(t, 100.0, store.Cart().Discount)

	require.NoError(t, store.RemoveCoupon(context.Background()))
	assert.Equal(t, 0.0, store.Cart().Discount)
}

func TestCartStoreClearHasNoRollback(t *testing.T) {
	api := &MockCartAPI{
		ServerItems: []domain.CartItem{
			{ID: "srv-a", Product: domain.Product{ID: "pa", Price: 1000}, Quantity: 1},
		},
	}
	mem := cache.NewMemoryStore()
	store := NewCartStore(api, mem, nil)
	require.NoError(t, store.Load(context.Background()))

	require.NoError(t, store.Clear(context.Background()))
	assert.Empty(t, store.Cart().Items)
	assert.Equal(t, 1, api.ClearCallCount)

	_, err := mem.Get(context.Background(), cache.KeyCart)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCartStoreSyncSkipsEmptyCart(t *testing.T) {
	api := &MockCartAPI{}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)

	require.NoError(t, store.Sync(context.Background()))
	assert.Equal(t, 0, api.SyncCallCount)
}

func TestCartStoreSyncAdoptsMergedCart(t *testing.T) {
	api := &MockCartAPI{}
	store := NewCartStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.AddItem(context.Background(), domain.Product{ID: "p1", Price: 1000}, nil, 1))

	require.NoError(t, store.Sync(context.Background()))
	assert.Equal(t, 1, api.SyncCallCount)
	assert.Equal(t, 1, store.Cart().ItemCount)
	assert.False(t, store.Syncing())
}

func TestCartStoreResetDropsStateAndCache(t *testing.T) {
	api := &MockCartAPI{}
	mem := cache.NewMemoryStore()
	store := NewCartStore(api, mem, nil)
	require.NoError(t, store.AddItem(context.Background(), domain.Product{ID: "p1", Price: 1000}, nil, 1))

	store.Reset(context.Background())

	assert.Empty(t, store.Cart().Items)
	_, err := mem.Get(context.Background(), cache.KeyCart)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
