package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/breaker"
	"github.com/fjod/cookcart/internal/cart"
	"github.com/fjod/cookcart/internal/checkout"
	"github.com/fjod/cookcart/internal/order"
	"github.com/fjod/cookcart/internal/session"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	details bool
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{cart.ErrInvalidItem, http.StatusBadRequest, "invalid_item", true},
	{address.ErrValidation, http.StatusBadRequest, "invalid_address", true},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart", false},
	{cart.ErrNoPendingSwitch, http.StatusConflict, "no_pending_switch", false},
	{cart.ErrVendorMismatch, http.StatusConflict, "vendor_mismatch", false},
	{checkout.ErrIllegalTransition, http.StatusConflict, "illegal_transition", true},
	{checkout.ErrNoAddressSelected, http.StatusConflict, "no_address_selected", false},
	{checkout.ErrOrderInFlight, http.StatusConflict, "order_in_flight", false},
	{checkout.ErrSessionClosed, http.StatusConflict, "checkout_closed", false},
	{checkout.ErrStaleResponse, http.StatusConflict, "stale_response", false},
	{session.ErrNoCheckout, http.StatusNotFound, "no_checkout", false},
	{breaker.ErrUnavailable, http.StatusServiceUnavailable, "backend_unavailable", false},
	{address.ErrFetch, http.StatusBadGateway, "address_fetch_failed", false},
	{address.ErrSave, http.StatusBadGateway, "address_save_failed", false},
	{order.ErrOrder, http.StatusBadGateway, "order_failed", false},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", false},
}

// handleError maps domain errors to HTTP status codes.
func handleError(w http.ResponseWriter, l *zap.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := ErrorResponse{Error: m.target.Error(), Code: m.code}
		if m.details {
			resp.Details = err.Error()
		}
		if m.status >= http.StatusInternalServerError {
			l.Warn("request failed", zap.String("code", m.code), zap.Error(err))
		}
		respondJSON(w, m.status, resp)
		return
	}

	l.Error("unhandled error", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
