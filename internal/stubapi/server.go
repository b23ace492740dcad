// Package stubapi is an in-memory stand-in for the remote gateway. It serves
// the same endpoints and response envelope, backed by process-local state, so
// the client and stores can be exercised without a real backend.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

type account struct {
	user     domain.User
	password string
}

type session struct {
	userID       string
	refreshToken string
}

// Server holds all gateway state behind one mutex. Handlers are short and
// state transitions are single map writes, so one lock is enough.
type Server struct {
	log *slog.Logger

	mu        sync.Mutex
	accounts  map[string]*account // keyed by email
	sessions  map[string]*session // keyed by access token
	refresh   map[string]string   // refresh token -> email
	carts     map[string][]domain.CartItem
	discounts map[string]float64
	wishlists map[string][]domain.WishlistItem
	addresses map[string][]domain.Address
	orders    map[string][]domain.Order
	reviews   map[string][]domain.Review
	catalog   []domain.Product
}

func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:       log,
		accounts:  make(map[string]*account),
		sessions:  make(map[string]*session),
		refresh:   make(map[string]string),
		carts:     make(map[string][]domain.CartItem),
		discounts: make(map[string]float64),
		wishlists: make(map[string][]domain.WishlistItem),
		addresses: make(map[string][]domain.Address),
		orders:    make(map[string][]domain.Order),
		reviews:   make(map[string][]domain.Review),
		catalog:   seedCatalog(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.handleLogout)
			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Post("/change-password", s.handleChangePassword)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListProducts)
		r.Get("/search", s.handleSearchProducts)
		r.Get("/trending", s.handleCollection)
		r.Get("/best-sellers", s.handleCollection)
		r.Get("/new-arrivals", s.handleCollection)
		r.Get("/{id}", s.handleProductByID)
		r.Get("/{id}/similar", s.handleSimilar)
		r.Get("/{id}/reviews", s.handleListReviews)
		r.With(s.requireAuth).Post("/{id}/reviews", s.handleAddReview)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Delete("/", s.handleClearCart)
			r.Post("/items", s.handleAddCartItem)
			r.Put("/items/{itemID}", s.handleUpdateCartItem)
			r.Delete("/items/{itemID}", s.handleRemoveCartItem)
			r.Post("/coupon", s.handleApplyCoupon)
			r.Delete("/coupon", s.handleRemoveCoupon)
			r.Post("/sync", s.handleSyncCart)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", s.handleGetWishlist)
			r.Delete("/", s.handleClearWishlist)
			r.Post("/items", s.handleAddWishlistItem)
			r.Delete("/items/{itemID}", s.handleRemoveWishlistItem)
			r.Post("/items/{itemID}/move-to-cart", s.handleMoveToCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Get("/{id}", s.handleOrderByID)
			r.Post("/{id}/cancel", s.handleCancelOrder)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", s.handleListAddresses)
			r.Post("/", s.handleAddAddress)
			r.Put("/{id}", s.handleUpdateAddress)
			r.Delete("/{id}", s.handleDeleteAddress)
		})
	})

	return r
}

// ctxKey carries the authenticated email through the request context.
type ctxKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		sess, ok := s.sessions[token]
		var email string
		if ok {
			email = s.emailForUserLocked(sess.userID)
		}
		s.mu.Unlock()
		if !ok || email == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

func (s *Server) emailForUserLocked(userID string) string {
	for email, acc := range s.accounts {
		if acc.user.ID == userID {
			return email
		}
	}
	return ""
}

// issueTokensLocked mints a fresh token pair for the account, invalidating
// nothing: old access tokens expire naturally when the client rotates.
func (s *Server) issueTokensLocked(acc *account, email string) domain.Tokens {
	access := "acc-" + uuid.NewString()
	refreshTok := "ref-" + uuid.NewString()
	s.sessions[access] = &session{userID: acc.user.ID, refreshToken: refreshTok}
	s.refresh[refreshTok] = email
	return domain.Tokens{AccessToken: access, RefreshToken: refreshTok, ExpiresIn: 900}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writePage(w http.ResponseWriter, data any, p domain.Pagination) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data, "pagination": p})
}

func writeError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	body := map[string]any{"success": false, "message": message, "code": code}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed request body.", nil)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func paginate[T any](items []T, page, limit int) ([]T, domain.Pagination) {
	total := len(items)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], domain.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

func now() time.Time { return time.Now().UTC() }
