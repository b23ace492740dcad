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

type MockWishlistAPI struct {
	ServerItems     []domain.WishlistItem
	FailAddItem     error
	FailRemove      error
	FailGet         error
	AddCallCount    int
	RemoveCallCount int
	MovedItemIDs    []string
}

func (m *MockWishlistAPI) Get(_ context.Context) ([]domain.WishlistItem, error) {
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	out := make([]domain.WishlistItem, len(m.ServerItems))
	copy(out, m.ServerItems)
	return out, nil
}

func (m *MockWishlistAPI) AddItem(_ context.Context, productID string) (*domain.WishlistItem, error) {
	m.AddCallCount++
	if m.FailAddItem != nil {
		return nil, m.FailAddItem
	}
	item := domain.WishlistItem{
		ID:      "srv-" + productID,
		Product: domain.Product{ID: productID},
		AddedAt: time.Now(),
	}
	m.ServerItems = append(m.ServerItems, item)
	return &item, nil
}

func (m *MockWishlistAPI) RemoveItem(_ context.Context, itemID string) error {
	m.RemoveCallCount++
	if m.FailRemove != nil {
		return m.FailRemove
	}
	kept := m.ServerItems[:0]
	for _, item := range m.ServerItems {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	m.ServerItems = kept
	return nil
}

func (m *MockWishlistAPI) MoveToCart(_ context.Context, itemID string) error {
	m.MovedItemIDs = append(m.MovedItemIDs, itemID)
	return nil
}

func (m *MockWishlistAPI) Clear(_ context.Context) error {
	m.ServerItems = nil
	return nil
}

func TestWishlistStoreAddSwapsPlaceholderForServerItem(t *testing.T) {
	api := &MockWishlistAPI{}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)

	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "srv-p1", items[0].ID)
	assert.False(t, strings.HasPrefix(items[0].ID, "temp-"))
}

func TestWishlistStoreAddIsIdempotent(t *testing.T) {
	api := &MockWishlistAPI{}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)

	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))
	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))

	// The second add never reaches the network.
	assert.Equal(t, 1, api.AddCallCount)
	assert.Len(t, store.Items(), 1)
}

func TestWishlistStoreAddRollsBackOnFailure(t *testing.T) {
	api := &MockWishlistAPI{FailAddItem: errors.New("boom")}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)

	err := store.Add(context.Background(), domain.Product{ID: "p1"})
	require.Error(t, err)
	assert.Empty(t, store.Items())
	assert.False(t, store.Contains("p1"))
}

func TestWishlistStoreRemoveRollsBackOnFailure(t *testing.T) {
	api := &MockWishlistAPI{}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))

	api.FailRemove = errors.New("boom")
	err := store.Remove(context.Background(), "srv-p1")
	require.Error(t, err)

	// Rollback re-fetches from the server, which still holds the item.
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "srv-p1", store.Items()[0].ID)
}

func TestWishlistStoreToggle(t *testing.T) {
	api := &MockWishlistAPI{}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)

	require.NoError(t, store.Toggle(context.Background(), domain.Product{ID: "p1"}))
	assert.True(t, store.Contains("p1"))

	require.NoError(t, store.Toggle(context.Background(), domain.Product{ID: "p1"}))
	assert.False(t, store.Contains("p1"))
	assert.Equal(t, 1, api.AddCallCount)
	assert.Equal(t, 1, api.RemoveCallCount)
}

func TestWishlistStoreMoveToCartDropsItemLocally(t *testing.T) {
	api := &MockWishlistAPI{}
	store := NewWishlistStore(api, cache.NewMemoryStore(), nil)
	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))

	require.NoError(t, store.MoveToCart(context.Background(), "srv-p1"))
	assert.Empty(t, store.Items())
	assert.Equal(t, []string{"srv-p1"}, api.MovedItemIDs)
}

func TestWishlistStoreLoadKeepsCachedSeedWhenFetchFails(t *testing.T) {
	mem := cache.NewMemoryStore()
	seed := []domain.WishlistItem{{ID: "cached-1", Product: domain.Product{ID: "p9"}}}
	require.NoError(t, cache.SetJSON(context.Background(), mem, cache.KeyWishlist, seed))

	api := &MockWishlistAPI{FailGet: errors.New("offline")}
	store := NewWishlistStore(api, mem, nil)

	require.Error(t, store.Load(context.Background()))
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "cached-1", store.Items()[0].ID)
}

func TestWishlistStoreResetDropsStateAndCache(t *testing.T) {
	api := &MockWishlistAPI{}
	mem := cache.NewMemoryStore()
	store := NewWishlistStore(api, mem, nil)
	require.NoError(t, store.Add(context.Background(), domain.Product{ID: "p1"}))

	store.Reset(context.Background())

	assert.Empty(t, store.Items())
	_, err := mem.Get(context.Background(), cache.KeyWishlist)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
