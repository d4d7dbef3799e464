package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/cookcart/internal/address"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/logger"
	"github.com/fjod/cookcart/internal/session"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	sessions Sessions
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions Sessions, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, logger: l}
}

type CheckoutResponseDTO struct {
	Checkout session.CheckoutView `json:"checkout"`
	Notice   string               `json:"notice,omitempty"`
	Address  *d.Address           `json:"address,omitempty"`
	Order    *d.Order             `json:"order,omitempty"`
}

type ConfirmAddressRequestDTO struct {
	AddressID string `json:"address_id"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{Checkout: s.StartCheckout()})
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).Checkout)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).CancelCheckout)
}

// POST /api/v1/checkout/proceed
func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).Proceed)
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).Back)
}

// POST /api/v1/checkout/change-address
func (h *CheckoutHandler) ChangeAddress(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).ChangeAddress)
}

// POST /api/v1/checkout/continue
func (h *CheckoutHandler) ContinueShopping(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*session.UserSession).ContinueShopping)
}

// POST /api/v1/checkout/address
func (h *CheckoutHandler) ConfirmAddress(w http.ResponseWriter, r *http.Request) {
	var req ConfirmAddressRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	h.transition(w, r, func(s *session.UserSession) (session.CheckoutView, error) {
		return s.ConfirmAddress(req.AddressID)
	})
}

// GET /api/v1/checkout/addresses
// An unreachable address service is reported as a notice; the checkout then
// asks for a new address.
func (h *CheckoutHandler) LoadAddresses(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.LoadAddresses(r.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, CheckoutResponseDTO{Checkout: view})
	case errors.Is(err, address.ErrFetch):
		h.log(r).Warn("saved addresses unavailable", zap.String("user_id", s.UserID()), zap.Error(err))
		respondJSON(w, http.StatusOK, CheckoutResponseDTO{
			Checkout: view,
			Notice:   "saved addresses could not be loaded, please enter an address",
		})
	default:
		handleError(w, h.log(r), err)
	}
}

// POST /api/v1/checkout/addresses
func (h *CheckoutHandler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var input d.AddressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saved, view, err := s.SaveAddress(r.Context(), input)
	if err != nil {
		handleError(w, h.log(r), err)
		return
	}
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{Checkout: view, Address: saved})
}

// POST /api/v1/checkout/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	placed, view, err := s.PlaceOrder(r.Context())
	if err != nil {
		handleError(w, h.log(r), err)
		return
	}
	h.log(r).Info("order placed", zap.String("user_id", s.UserID()), zap.String("order_id", placed.ID))
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{Checkout: view, Order: placed})
}

func (h *CheckoutHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*session.UserSession) (session.CheckoutView, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := fn(s)
	if err != nil {
		handleError(w, h.log(r), err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{Checkout: view})
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*session.UserSession, bool) {
	return loadSession(w, r, h.sessions, h.log(r))
}

func (h *CheckoutHandler) log(r *http.Request) *zap.Logger {
	return logger.WithTrace(r.Context(), h.logger)
}
