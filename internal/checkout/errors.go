package checkout

import (
	"errors"

	"github.com/fjod/cookcart/internal/order"
)

var (
	ErrEmptyCart         = order.ErrEmptyCart
	ErrIllegalTransition = errors.New("illegal checkout transition")
	ErrNoAddressSelected = errors.New("no delivery address selected")
	ErrOrderInFlight     = errors.New("an order submission is already in flight")
	ErrSessionClosed     = errors.New("checkout session is closed")
	ErrStaleResponse     = errors.New("response belongs to an abandoned step")
)
