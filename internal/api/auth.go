package api

import (
	"context"

	"github.com/ecomapp/storefront/internal/domain"
)

// AuthAPI wraps the /auth endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

type authPayload struct {
	User   domain.User   `json:"user"`
	Tokens domain.Tokens `json:"tokens"`
}

func (a *AuthAPI) Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, *domain.Tokens, error) {
	var payload authPayload
	if err := a.client.Post(ctx, "/auth/login", creds, &payload); err != nil {
		return nil, nil, err
	}
	return &payload.User, &payload.Tokens, nil
}

func (a *AuthAPI) Signup(ctx context.Context, data domain.SignupData) (*domain.User, *domain.Tokens, error) {
	var payload authPayload
	if err := a.client.Post(ctx, "/auth/signup", data, &payload); err != nil {
		return nil, nil, err
	}
	return &payload.User, &payload.Tokens, nil
}

// Refresh exchanges the stored refresh token for a new access token through
// the client's single-flight refresh path.
func (a *AuthAPI) Refresh(ctx context.Context) (string, error) {
	return a.client.Refresh(ctx)
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.client.Post(ctx, "/auth/logout", nil, nil)
}

func (a *AuthAPI) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := a.client.Get(ctx, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, update map[string]any) (*domain.User, error) {
	var user domain.User
	if err := a.client.Put(ctx, "/auth/profile", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthAPI) ChangePassword(ctx context.Context, current, new string) error {
	body := map[string]string{"currentPassword": current, "newPassword": new}
	return a.client.Post(ctx, "/auth/change-password", body, nil)
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) error {
	return a.client.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (a *AuthAPI) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return a.client.Post(ctx, "/auth/reset-password", body, nil)
}
