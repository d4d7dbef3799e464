package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/logger"
	"github.com/fjod/cookcart/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sessions hands out the session of a user.
type Sessions interface {
	Get(ctx context.Context, userID string) (*session.UserSession, error)
	End(userID string)
}

type CartHandler struct {
	sessions Sessions
	logger   *zap.Logger
}

func NewCartHandler(sessions Sessions, l *zap.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, logger: l}
}

// Price accepts a JSON number, a numeric string or the "₹120" display form.
type Price struct {
	decimal.Decimal
}

func (p *Price) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	v, err := d.ParsePrice(raw)
	if err != nil {
		return err
	}
	p.Decimal = v
	return nil
}

type AddItemRequestDTO struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Price      Price  `json:"price"`
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type AddItemResponseDTO struct {
	Outcome string           `json:"outcome"`
	Cart    session.CartView `json:"cart"`
}

type VendorSwitchResponseDTO struct {
	ErrorResponse
	Cart session.CartView `json:"cart"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Cart())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	outcome, view, err := s.AddItem(r.Context(), d.LineItem{
		ItemID:      req.ItemID,
		DisplayName: req.Name,
		UnitPrice:   req.Price.Decimal,
		VendorID:    req.VendorID,
		VendorName:  req.VendorName,
	})
	if err != nil {
		handleError(w, h.log(r), err)
		return
	}

	if outcome == d.NeedsVendorSwitchConfirmation {
		respondJSON(w, http.StatusConflict, VendorSwitchResponseDTO{
			ErrorResponse: ErrorResponse{
				Error:   "cart holds items from another cook",
				Code:    "vendor_switch_required",
				Details: fmt.Sprintf("replace the %s cart to add from %s", view.VendorName, req.VendorName),
			},
			Cart: view,
		})
		return
	}

	respondJSON(w, http.StatusCreated, AddItemResponseDTO{Outcome: outcome.String(), Cart: view})
}

// PUT /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	respondJSON(w, http.StatusOK, s.SetQuantity(r.Context(), chi.URLParam(r, "item_id"), req.Quantity))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.RemoveItem(r.Context(), chi.URLParam(r, "item_id")))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.ClearCart(r.Context()))
}

// POST /api/v1/cart/switch/confirm
func (h *CartHandler) ConfirmSwitch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.ConfirmSwitch(r.Context())
	if err != nil {
		handleError(w, h.log(r), err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/cart/switch/cancel
func (h *CartHandler) CancelSwitch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.CancelSwitch())
}

// DELETE /api/v1/session
func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	h.sessions.End(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*session.UserSession, bool) {
	return loadSession(w, r, h.sessions, h.log(r))
}

func (h *CartHandler) log(r *http.Request) *zap.Logger {
	return logger.WithTrace(r.Context(), h.logger)
}

func loadSession(w http.ResponseWriter, r *http.Request, sessions Sessions, l *zap.Logger) (*session.UserSession, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}
	s, err := sessions.Get(r.Context(), userID)
	if err != nil {
		l.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "session_unavailable", "cart state is unavailable")
		return nil, false
	}
	return s, true
}
