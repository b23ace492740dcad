// Command storefront assembles the client data layer against the configured
// gateway, restores the persisted session and snapshots, and reports the
// hydrated state. It doubles as a smoke check for a deployment.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecomapp/storefront/internal/api"
	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/config"
	"github.com/ecomapp/storefront/internal/securestore"
	"github.com/ecomapp/storefront/internal/store"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	defer cancel()

	snapshots, cleanup, err := openCache(ctx, cfg.Cache)
	if err != nil {
		log.Error("cache backend failed", "error", err, "backend", cfg.Cache.Backend)
		os.Exit(1)
	}
	defer cleanup()
	log.Info("snapshot cache ready", "backend", cfg.Cache.Backend)

	creds, err := openCredentials(cfg.Creds)
	if err != nil {
		log.Error("credential store failed", "error", err)
		os.Exit(1)
	}

	client := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RetryAttempts:  cfg.API.RetryAttempts,
		RetryBaseDelay: cfg.API.RetryBaseDelay,
		Logger:         log,
	}, creds)

	authStore := store.NewAuthStore(api.NewAuthAPI(client), creds, snapshots, log)
	cartStore := store.NewCartStore(api.NewCartAPI(client), snapshots, log)
	wishlistStore := store.NewWishlistStore(api.NewWishlistAPI(client), snapshots, log)
	uiStore := store.NewUIStore(snapshots, log)

	authStore.OnLogout(cartStore.Reset)
	authStore.OnLogout(wishlistStore.Reset)
	client.OnSessionExpired(authStore.HandleSessionExpired)

	uiStore.Load(ctx)
	if err := authStore.LoadUser(ctx); err != nil {
		log.Error("session restore failed", "error", err)
		os.Exit(1)
	}

	if authStore.Authenticated() {
		if err := cartStore.Load(ctx); err != nil {
			log.Warn("cart hydration degraded to cached snapshot", "error", err)
		}
		if err := wishlistStore.Load(ctx); err != nil {
			log.Warn("wishlist hydration degraded to cached snapshot", "error", err)
		}
	}

	cart := cartStore.Cart()
	log.Info("hydrated",
		"status", authStore.Status(),
		"cartItems", cart.ItemCount,
		"cartTotal", cart.Total,
		"wishlistItems", len(wishlistStore.Items()),
		"theme", uiStore.Theme(),
	)
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, nil, err
		}
		return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
	case "sqlite":
		sqliteStore, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqliteStore, func() { _ = sqliteStore.Close() }, nil
	default:
		return cache.NewMemoryStore(), func() {}, nil
	}
}

func openCredentials(cfg config.CredsConfig) (securestore.Store, error) {
	if cfg.Secret == "" {
		return securestore.NewMemoryStore(), nil
	}
	return securestore.NewFileStore(cfg.Path, []byte(cfg.Secret))
}
