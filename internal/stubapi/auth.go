package stubapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body domain.SignupData
	if !decodeBody(w, r, &body) {
		return
	}
	fields := map[string]string{}
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		fields["email"] = "A valid email is required."
	}
	if len(body.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters."
	}
	if body.Name == "" {
		fields["name"] = "Name is required."
	}
	if len(fields) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Signup details are invalid.", fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[body.Email]; exists {
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists.", nil)
		return
	}
	acc := &account{
		user: domain.User{
			ID:        uuid.NewString(),
			Email:     body.Email,
			Name:      body.Name,
			Phone:     body.Phone,
			CreatedAt: now(),
			UpdatedAt: now(),
		},
		password: body.Password,
	}
	s.accounts[body.Email] = acc
	tokens := s.issueTokensLocked(acc, body.Email)
	writeData(w, map[string]any{"user": acc.user, "tokens": tokens})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body domain.LoginCredentials
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[body.Email]
	if !ok || acc.password != body.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect.", nil)
		return
	}
	tokens := s.issueTokensLocked(acc, body.Email)
	writeData(w, map[string]any{"user": acc.user, "tokens": tokens})
}

// handleRefresh rotates both tokens: the presented refresh token is consumed
// and a fresh pair is issued.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[body.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired.", nil)
		return
	}
	acc := s.accounts[email]
	delete(s.refresh, body.RefreshToken)
	tokens := s.issueTokensLocked(acc, email)
	writeData(w, tokens)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		delete(s.refresh, sess.refreshToken)
		delete(s.sessions, token)
	}
	writeData(w, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[emailFrom(r.Context())]
	writeData(w, acc.user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update map[string]any
	if !decodeBody(w, r, &update) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[emailFrom(r.Context())]
	if name, ok := update["name"].(string); ok && name != "" {
		acc.user.Name = name
	}
	if phone, ok := update["phone"].(string); ok {
		acc.user.Phone = phone
	}
	if avatar, ok := update["avatar"].(string); ok {
		acc.user.Avatar = avatar
	}
	acc.user.UpdatedAt = now()
	writeData(w, acc.user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[emailFrom(r.Context())]
	if acc.password != body.CurrentPassword {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Current password is incorrect.",
			map[string]string{"currentPassword": "Current password is incorrect."})
		return
	}
	if len(body.NewPassword) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Password must be at least 8 characters.",
			map[string]string{"newPassword": "Password must be at least 8 characters."})
		return
	}
	acc.password = body.NewPassword
	writeData(w, nil)
}

// Password recovery is acknowledged without sending anything; there is no
// mail transport behind the stub.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.log.Info("password reset requested", "email", body.Email)
	writeData(w, nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Token == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Reset token is required.",
			map[string]string{"token": "Reset token is required."})
		return
	}
	writeData(w, nil)
}
