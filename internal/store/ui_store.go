package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/domain"
)

// ThemeMode selects the rendering theme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

const maxSearchHistory = 10

// UIStore holds UI preferences. Theme, onboarding, and search history are
// persisted; the active product filters are session-only.
type UIStore struct {
	cache cache.Store
	log   *slog.Logger

	mu            sync.RWMutex
	theme         ThemeMode
	onboarded     bool
	filters       domain.ProductFilter
	searchHistory []string
}

func NewUIStore(cacheStore cache.Store, log *slog.Logger) *UIStore {
	if log == nil {
		log = slog.Default()
	}
	return &UIStore{
		cache: cacheStore,
		log:   log,
		theme: ThemeSystem,
	}
}

// Load restores persisted preferences. Cache misses leave the defaults.
func (s *UIStore) Load(ctx context.Context) {
	var theme ThemeMode
	if err := cache.GetJSON(ctx, s.cache, cache.KeyTheme, &theme); err == nil {
		switch theme {
		case ThemeLight, ThemeDark, ThemeSystem:
			s.mu.Lock()
			s.theme = theme
			s.mu.Unlock()
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("theme cache read failed", "error", err)
	}

	var onboarded bool
	if err := cache.GetJSON(ctx, s.cache, cache.KeyOnboarding, &onboarded); err == nil {
		s.mu.Lock()
		s.onboarded = onboarded
		s.mu.Unlock()
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("onboarding cache read failed", "error", err)
	}

	var history []string
	if err := cache.GetJSON(ctx, s.cache, cache.KeySearchHistory, &history); err == nil {
		if len(history) > maxSearchHistory {
			history = history[:maxSearchHistory]
		}
		s.mu.Lock()
		s.searchHistory = history
		s.mu.Unlock()
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("search history cache read failed", "error", err)
	}
}

func (s *UIStore) Theme() ThemeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *UIStore) SetTheme(ctx context.Context, theme ThemeMode) {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()

	if err := cache.SetJSON(ctx, s.cache, cache.KeyTheme, theme); err != nil {
		s.log.Warn("theme cache write failed", "error", err)
	}
}

func (s *UIStore) Onboarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarded
}

func (s *UIStore) CompleteOnboarding(ctx context.Context) {
	s.mu.Lock()
	s.onboarded = true
	s.mu.Unlock()

	if err := cache.SetJSON(ctx, s.cache, cache.KeyOnboarding, true); err != nil {
		s.log.Warn("onboarding cache write failed", "error", err)
	}
}

func (s *UIStore) Filters() domain.ProductFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *UIStore) SetFilters(filters domain.ProductFilter) {
	s.mu.Lock()
	s.filters = filters
	s.mu.Unlock()
}

func (s *UIStore) ClearFilters() {
	s.mu.Lock()
	s.filters = domain.ProductFilter{}
	s.mu.Unlock()
}

func (s *UIStore) SearchHistory() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.searchHistory))
	copy(out, s.searchHistory)
	return out
}

// RecordSearch moves the query to the front of the history, dropping any
// earlier occurrence and trimming to the cap. Empty queries are ignored.
func (s *UIStore) RecordSearch(ctx context.Context, query string) {
	if query == "" {
		return
	}

	s.mu.Lock()
	next := make([]string, 0, len(s.searchHistory)+1)
	next = append(next, query)
	for _, q := range s.searchHistory {
		if q != query {
			next = append(next, q)
		}
	}
	if len(next) > maxSearchHistory {
		next = next[:maxSearchHistory]
	}
	s.searchHistory = next
	snapshot := make([]string, len(next))
	copy(snapshot, next)
	s.mu.Unlock()

	if err := cache.SetJSON(ctx, s.cache, cache.KeySearchHistory, snapshot); err != nil {
		s.log.Warn("search history cache write failed", "error", err)
	}
}

func (s *UIStore) ClearSearchHistory(ctx context.Context) {
	s.mu.Lock()
	s.searchHistory = nil
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, cache.KeySearchHistory); err != nil {
		s.log.Warn("search history cache delete failed", "error", err)
	}
}
