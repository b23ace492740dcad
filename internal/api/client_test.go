package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomapp/storefront/internal/domain"
	"github.com/ecomapp/storefront/internal/securestore"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *securestore.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := securestore.NewMemoryStore()
	client := NewClient(Config{
		BaseURL:        server.URL,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, creds)
	return client, creds
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))
	require.NoError(t, creds.SetTokens(context.Background(), "tok-1", "ref-1"))

	require.NoError(t, client.Get(context.Background(), "/ping", nil, nil))
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_NoTokenIsNotAnError(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, nil)
	}))

	require.NoError(t, client.Get(context.Background(), "/public", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestClient_GetRetriesWithBackoff(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			writeEnvelope(w, http.StatusInternalServerError, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))

	var out map[string]string
	err := client.Get(context.Background(), "/flaky", nil, &out)
	require.NoError(t, err, "3 failures within a 3-retry budget must not surface")
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, "yes", out["ok"])
}

func TestClient_GetRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusServiceUnavailable, nil)
	}))

	err := client.Get(context.Background(), "/down", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load(), "initial attempt plus 3 retries")

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestClient_WritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, nil)
	}))

	err := client.Post(context.Background(), "/cart/items", map[string]int{"quantity": 1}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "non-idempotent writes must not auto-retry")
}

func TestClient_SingleFlightRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body["refreshToken"])

		// Hold the refresh open long enough for every concurrent 401 to
		// join the in-flight call instead of issuing its own.
		time.Sleep(150 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, domain.Tokens{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		})
	})

	client, creds := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, creds.SetTokens(ctx, "stale-access", "old-refresh"))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Get(ctx, "/protected", nil, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), refreshCalls.Load(), "concurrent 401s must share one refresh")

	access, refresh, err := creds.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", access)
	assert.Equal(t, "new-refresh", refresh)
}

func TestClient_RefreshFailureTearsDownSession(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})

	client, creds := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, creds.SetTokens(ctx, "stale-access", "dead-refresh"))

	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	err := client.Get(ctx, "/protected", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Terminal: no backoff retries after a failed refresh.
	assert.Equal(t, int32(1), protectedCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(1), expired.Load())

	access, refresh, readErr := creds.Tokens(ctx)
	require.NoError(t, readErr)
	assert.Empty(t, access, "tokens cleared on refresh failure")
	assert.Empty(t, refresh)
}

func TestClient_RetriesOriginalRequestOnceAfterRefresh(t *testing.T) {
	var protectedCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, domain.Tokens{AccessToken: "fresh"})
	})

	client, creds := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, creds.SetTokens(ctx, "stale", "refresh-token"))

	require.NoError(t, client.Post(ctx, "/protected", nil, nil))
	assert.Equal(t, int32(2), protectedCalls.Load(), "original call plus exactly one post-refresh retry")

	// Refresh response without a rotated refresh token keeps the old one.
	_, refresh, err := creds.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", refresh)
}

func TestClient_ServerErrorNormalization(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Validation failed",
			"code":    "VALIDATION_ERROR",
			"errors":  map[string]string{"email": "already taken"},
		})
	}))

	err := client.Post(context.Background(), "/auth/signup", map[string]string{}, nil)
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "already taken", apiErr.Fields["email"])
}

func TestClient_NetworkErrorNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	client := NewClient(Config{
		BaseURL:        server.URL,
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
	}, securestore.NewMemoryStore())

	err := client.Get(context.Background(), "/anything", nil, nil)
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, apiErr.Kind)
}

func TestClient_UndecodableSuccessBodyIsUnknown(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html>not json</html>")
	}))

	err := client.Post(context.Background(), "/weird", nil, nil)
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnknown, apiErr.Kind)
}

func TestClient_GetPage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "p1", "name": "Shirt"}},
			"pagination": map[string]any{
				"page": 2, "limit": 20, "total": 45, "totalPages": 3, "hasMore": true,
			},
		})
	}))

	var products []domain.Product
	pagination, err := client.GetPage(context.Background(), "/products", pageQuery(2, 20), &products)
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, pagination.HasMore)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}
