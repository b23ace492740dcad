package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecomapp/storefront/internal/cache"
	"github.com/ecomapp/storefront/internal/domain"
	"github.com/ecomapp/storefront/internal/securestore"
)

// Status is the auth session lifecycle state.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusExpiring       Status = "expiring" // mid token refresh
	StatusLoggedOut      Status = "logged_out"
)

// AuthAPI is the slice of the remote gateway the auth store drives.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, *domain.Tokens, error)
	Signup(ctx context.Context, data domain.SignupData) (*domain.User, *domain.Tokens, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update map[string]any) (*domain.User, error)
	Refresh(ctx context.Context) (string, error)
}

// AuthStore owns the session and the user profile. It is the only writer of
// the credential slots; every auth transition goes through here.
type AuthStore struct {
	api   AuthAPI
	creds securestore.Store
	cache cache.Store
	log   *slog.Logger

	mu      sync.RWMutex
	user    *domain.User
	session domain.Session
	status  Status
	lastErr error

	// teardown hooks reset the other stores on logout without this package
	// knowing about them.
	hooks []func(context.Context)

	bg sync.WaitGroup // background profile re-fetch, waited on in tests
}

func NewAuthStore(api AuthAPI, creds securestore.Store, cacheStore cache.Store, log *slog.Logger) *AuthStore {
	if log == nil {
		log = slog.Default()
	}
	return &AuthStore{
		api:    api,
		creds:  creds,
		cache:  cacheStore,
		log:    log,
		status: StatusAnonymous,
	}
}

// OnLogout registers a hook run during session teardown (logout or forced
// expiry). Register before the store is shared.
func (s *AuthStore) OnLogout(hook func(context.Context)) {
	s.hooks = append(s.hooks, hook)
}

func (s *AuthStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *AuthStore) Authenticated() bool {
	return s.Status() == StatusAuthenticated || s.Status() == StatusExpiring
}

func (s *AuthStore) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthStore) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *AuthStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *AuthStore) Login(ctx context.Context, creds domain.LoginCredentials) error {
	s.setStatus(StatusAuthenticating)

	user, tokens, err := s.api.Login(ctx, creds)
	if err != nil {
		s.setStatus(StatusAnonymous)
		s.setError(err)
		return err
	}
	return s.establishSession(ctx, user, tokens)
}

func (s *AuthStore) Signup(ctx context.Context, data domain.SignupData) error {
	s.setStatus(StatusAuthenticating)

	user, tokens, err := s.api.Signup(ctx, data)
	if err != nil {
		s.setStatus(StatusAnonymous)
		s.setError(err)
		return err
	}
	return s.establishSession(ctx, user, tokens)
}

// LoadUser restores the session at startup. When both a stored token and a
// cached profile exist, the cached profile is presented as authenticated
// immediately and a background re-fetch reconciles it; a failed re-fetch
// keeps the cached profile. Only a failed token refresh forces logout.
func (s *AuthStore) LoadUser(ctx context.Context) error {
	access, refresh, err := s.creds.Tokens(ctx)
	if err != nil {
		s.setError(err)
		return err
	}

	var cachedUser domain.User
	cacheErr := cache.GetJSON(ctx, s.cache, cache.KeyUser, &cachedUser)
	if access == "" || cacheErr != nil {
		if cacheErr != nil && !errors.Is(cacheErr, cache.ErrCacheMiss) {
			s.log.Warn("user cache read failed", "error", cacheErr)
		}
		s.setStatus(StatusAnonymous)
		return nil
	}

	s.mu.Lock()
	s.user = &cachedUser
	s.session = domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    tokenExpiry(access, 0, time.Now()),
	}
	s.status = StatusAuthenticated
	s.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.refreshProfile(context.WithoutCancel(ctx))
	}()
	return nil
}

// refreshProfile re-fetches the authoritative profile. Failure is tolerated:
// the cached profile stays, and only the gateway's refresh-failure teardown
// can force a logout from here.
func (s *AuthStore) refreshProfile(ctx context.Context) {
	user, err := s.api.Profile(ctx)
	if err != nil {
		s.log.Warn("profile re-fetch failed, keeping cached profile", "error", err)
		return
	}
	s.adoptUser(ctx, user)
}

// UpdateProfile sends a partial profile update and adopts the server's copy.
func (s *AuthStore) UpdateProfile(ctx context.Context, update map[string]any) error {
	user, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		s.setError(err)
		return err
	}
	s.adoptUser(ctx, user)
	s.setError(nil)
	return nil
}

// EnsureFresh proactively refreshes the access token when the session is at
// or past its expiry, instead of waiting for the next 401.
func (s *AuthStore) EnsureFresh(ctx context.Context) error {
	session := s.Session()
	if session.AccessToken == "" || !session.Expired(time.Now()) {
		return nil
	}

	s.setStatus(StatusExpiring)
	access, err := s.api.Refresh(ctx)
	if err != nil {
		// The gateway has already torn the session down via the logout hook.
		return err
	}

	_, refresh, readErr := s.creds.Tokens(ctx)
	if readErr != nil {
		s.log.Warn("credential read after refresh failed", "error", readErr)
	}
	s.mu.Lock()
	s.session = domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    tokenExpiry(access, 0, time.Now()),
	}
	s.status = StatusAuthenticated
	s.mu.Unlock()
	return nil
}

// Logout calls the remote endpoint best-effort, then unconditionally tears
// down local state: tokens, user, and the registered store resets.
func (s *AuthStore) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn("remote logout failed, proceeding with local teardown", "error", err)
	}
	s.setStatus(StatusLoggedOut)

	if err := s.creds.Clear(ctx); err != nil {
		s.log.Warn("credential clear failed", "error", err)
	}
	s.teardownLocal(ctx)
}

// HandleSessionExpired is wired to the gateway's refresh-failure hook. The
// gateway has already cleared the credentials; only local state remains.
func (s *AuthStore) HandleSessionExpired() {
	ctx := context.Background()
	s.setStatus(StatusLoggedOut)
	s.teardownLocal(ctx)
}

func (s *AuthStore) teardownLocal(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyUser); err != nil {
		s.log.Warn("user cache delete failed", "error", err)
	}
	for _, hook := range s.hooks {
		hook(ctx)
	}

	s.mu.Lock()
	s.user = nil
	s.session = domain.Session{}
	s.lastErr = nil
	s.status = StatusAnonymous
	s.mu.Unlock()
}

func (s *AuthStore) establishSession(ctx context.Context, user *domain.User, tokens *domain.Tokens) error {
	if err := s.creds.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		s.setStatus(StatusAnonymous)
		s.setError(err)
		return err
	}
	s.adoptUser(ctx, user)

	s.mu.Lock()
	s.session = domain.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokenExpiry(tokens.AccessToken, tokens.ExpiresIn, time.Now()),
	}
	s.status = StatusAuthenticated
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

func (s *AuthStore) adoptUser(ctx context.Context, user *domain.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if err := cache.SetJSON(ctx, s.cache, cache.KeyUser, user); err != nil {
		s.log.Warn("user cache write failed", "error", err)
	}
}

func (s *AuthStore) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *AuthStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// tokenExpiry derives the session expiry from the server-provided lifetime,
// falling back to the access token's own exp claim. A zero time means the
// expiry is unknown.
func tokenExpiry(accessToken string, expiresIn int64, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
