package domain

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tokens is the credential pair as issued by the auth endpoints.
// ExpiresIn is the access token lifetime in seconds; some deployments omit it,
// in which case the expiry is read from the token's own claims.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// Session is the in-memory view of an authenticated session. Both tokens are
// always present while authenticated and are cleared together on logout.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token lifetime has elapsed. A zero
// ExpiresAt means the lifetime is unknown and the session is assumed live.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}
