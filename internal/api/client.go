// Package api is the remote gateway: a JSON HTTP client that attaches the
// bearer credential to every request, de-duplicates token refreshes, retries
// idempotent reads with exponential backoff, and normalizes every failure into
// the server/network/unknown taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ecomapp/storefront/internal/domain"
	"github.com/ecomapp/storefront/internal/securestore"
)

const refreshPath = "/auth/refresh"

// Config holds gateway configuration. Zero values fall back to the defaults
// the mobile app ships with.
type Config struct {
	BaseURL        string
	Timeout        time.Duration // transport-level timeout applied to every call
	RetryAttempts  int           // extra attempts for idempotent reads
	RetryBaseDelay time.Duration // first backoff delay; doubles each attempt
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	creds          securestore.Store
	retryAttempts  int
	retryBaseDelay time.Duration
	log            *slog.Logger

	refreshGroup     singleflight.Group
	onSessionExpired func()
}

// envelope is the response shape every endpoint uses: {success, data,
// message?} for single resources, plus {pagination} on list endpoints and
// {code, errors} on error responses.
type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message,omitempty"`
	Code       string             `json:"code,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

func NewClient(cfg Config, creds securestore.Store) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 3
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		creds:          creds,
		retryAttempts:  attempts,
		retryBaseDelay: baseDelay,
		log:            log,
	}
}

// OnSessionExpired registers the hook fired when a token refresh fails and the
// session is torn down. Must be set before the client is shared.
func (c *Client) OnSessionExpired(fn func()) {
	c.onSessionExpired = fn
}

// Refresh forces a token refresh ahead of the 401 path, e.g. when the access
// token is known to be near expiry. Shares the same single flight.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refreshAccessToken(ctx)
}

// Get performs an idempotent read with backoff retry.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	env, err := c.withRetry(ctx, func() (*envelope, error) {
		return c.do(ctx, http.MethodGet, path, query, nil)
	})
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

// GetPage is Get for paginated list endpoints.
func (c *Client) GetPage(ctx context.Context, path string, query url.Values, out any) (*domain.Pagination, error) {
	env, err := c.withRetry(ctx, func() (*envelope, error) {
		return c.do(ctx, http.MethodGet, path, query, nil)
	})
	if err != nil {
		return nil, err
	}
	if err := decodeData(env, out); err != nil {
		return nil, err
	}
	return env.Pagination, nil
}

// Post performs a write. Writes are never auto-retried; a duplicate side
// effect is worse than a surfaced error.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	env, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	env, err := c.do(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	env, err := c.do(ctx, http.MethodPatch, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	env, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

// withRetry retries fn with doubling delay on any failure except the terminal
// session teardown. Only reads go through here.
func (c *Client) withRetry(ctx context.Context, fn func() (*envelope, error)) (*envelope, error) {
	delay := c.retryBaseDelay
	var env *envelope
	var err error
	for attempt := 0; ; attempt++ {
		env, err = fn()
		if err == nil || attempt >= c.retryAttempts || errors.Is(err, ErrSessionExpired) {
			return env, err
		}
		c.log.Debug("retrying request", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, networkError(ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}

// do executes one request, handling the 401 → refresh → retry-once cycle.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, unknownError(fmt.Errorf("marshal request body: %w", err))
		}
	}

	token := c.currentAccessToken(ctx)
	resp, err := c.send(ctx, method, path, query, bodyBytes, token)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		newToken, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		resp, err = c.send(ctx, method, path, query, bodyBytes, newToken)
		if err != nil {
			return nil, networkError(err)
		}
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(fmt.Errorf("read response body: %w", err))
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode >= 400 {
		if decodeErr != nil {
			return nil, serverError(resp.StatusCode, nil)
		}
		return nil, serverError(resp.StatusCode, &env)
	}
	if decodeErr != nil {
		return nil, unknownError(fmt.Errorf("decode response: %w", decodeErr))
	}
	return &env, nil
}

// send builds and issues one HTTP request with the given bearer token, if any.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

// currentAccessToken reads the stored credential. Absence is not an error;
// the endpoint may be public.
func (c *Client) currentAccessToken(ctx context.Context) string {
	access, _, err := c.creds.Tokens(ctx)
	if err != nil {
		c.log.Warn("credential read failed, sending unauthenticated", "error", err)
		return ""
	}
	return access
}

// refreshAccessToken exchanges the refresh token for a new access token.
// Concurrent callers share a single in-flight refresh; each then retries its
// original request with the returned token. A failed refresh tears the
// session down and is terminal.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		token, err := c.runRefresh(ctx)
		if err != nil {
			// Teardown happens here, inside the single flight, so it runs
			// exactly once no matter how many callers are waiting.
			c.teardownSession(ctx, err)
			return nil, err
		}
		return token, nil
	})
	if err != nil {
		return "", &Error{Kind: KindServer, Status: http.StatusUnauthorized,
			Message: "Session expired. Please login again.", cause: errors.Join(ErrSessionExpired, err)}
	}
	return v.(string), nil
}

func (c *Client) runRefresh(ctx context.Context) (string, error) {
	_, refresh, err := c.creds.Tokens(ctx)
	if err != nil {
		return "", unknownError(fmt.Errorf("read refresh token: %w", err))
	}
	if refresh == "" {
		return "", serverError(http.StatusUnauthorized, &envelope{Message: "no refresh token"})
	}

	tokens, err := c.callRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	newRefresh := tokens.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}
	if err := c.creds.SetTokens(ctx, tokens.AccessToken, newRefresh); err != nil {
		return "", unknownError(fmt.Errorf("store refreshed tokens: %w", err))
	}
	return tokens.AccessToken, nil
}

// callRefresh posts directly to the refresh endpoint, outside the interceptor
// cycle: no bearer header, no retry, no recursive 401 handling.
func (c *Client) callRefresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, unknownError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return nil, unknownError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, serverError(resp.StatusCode, nil)
		}
		return nil, unknownError(err)
	}
	if resp.StatusCode >= 400 {
		return nil, serverError(resp.StatusCode, &env)
	}

	var tokens domain.Tokens
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return nil, unknownError(fmt.Errorf("decode tokens: %w", err))
	}
	if tokens.AccessToken == "" {
		return nil, unknownError(errors.New("refresh response missing access token"))
	}
	return &tokens, nil
}

func (c *Client) teardownSession(ctx context.Context, cause error) {
	c.log.Warn("token refresh failed, tearing down session", "error", cause)
	if err := c.creds.Clear(ctx); err != nil {
		c.log.Error("credential clear failed", "error", err)
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

func decodeData(env *envelope, out any) error {
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return unknownError(fmt.Errorf("decode response data: %w", err))
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}
