package stubapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecomapp/storefront/internal/domain"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	orders := make([]domain.Order, len(s.orders[emailFrom(r.Context())]))
	copy(orders, s.orders[emailFrom(r.Context())])
	s.mu.Unlock()

	page, limit := queryInt(r, "page", 1), queryInt(r, "limit", 10)
	items, pagination := paginate(orders, page, limit)
	writePage(w, items, pagination)
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	for _, order := range s.orders[emailFrom(r.Context())] {
		if order.ID == id {
			writeData(w, order)
			return
		}
	}
	writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found.", nil)
}

// handleCancelOrder only allows cancellation before shipment.
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	id := chi.URLParam(r, "id")
	orders := s.orders[email]
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		switch orders[i].Status {
		case domain.OrderPending, domain.OrderConfirmed:
			orders[i].Status = domain.OrderCancelled
			orders[i].UpdatedAt = now()
			writeData(w, orders[i])
		default:
			writeError(w, http.StatusConflict, "CANNOT_CANCEL", "This order can no longer be cancelled.", nil)
		}
		return
	}
	writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found.", nil)
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addresses := s.addresses[emailFrom(r.Context())]
	if addresses == nil {
		addresses = []domain.Address{}
	}
	writeData(w, addresses)
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	var address domain.Address
	if !decodeBody(w, r, &address) {
		return
	}
	if address.AddressLine1 == "" || address.City == "" || address.Pincode == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Address is incomplete.", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	address.ID = uuid.NewString()
	if address.IsDefault {
		s.clearDefaultLocked(email)
	}
	s.addresses[email] = append(s.addresses[email], address)
	writeData(w, address)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var address domain.Address
	if !decodeBody(w, r, &address) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	id := chi.URLParam(r, "id")
	addresses := s.addresses[email]
	for i := range addresses {
		if addresses[i].ID != id {
			continue
		}
		address.ID = id
		if address.IsDefault {
			s.clearDefaultLocked(email)
		}
		addresses[i] = address
		writeData(w, address)
		return
	}
	writeError(w, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found.", nil)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r.Context())
	id := chi.URLParam(r, "id")
	addresses := s.addresses[email]
	kept := addresses[:0]
	for _, a := range addresses {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(addresses) {
		writeError(w, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found.", nil)
		return
	}
	s.addresses[email] = kept
	writeData(w, nil)
}

func (s *Server) clearDefaultLocked(email string) {
	addresses := s.addresses[email]
	for i := range addresses {
		addresses[i].IsDefault = false
	}
}

// SeedOrder installs an order for the given account, for demos and tests.
func (s *Server) SeedOrder(email string, order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	s.orders[email] = append(s.orders[email], order)
}
