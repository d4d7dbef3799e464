package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = 1 << 20 // 1MB
	}
	return c
}

func NewRouter(sessions Sessions, l *zap.Logger, cfg RouterConfig) chi.Router {
	cfg = cfg.withDefaults()
	cartHandler := NewCartHandler(sessions, l)
	checkoutHandler := NewCheckoutHandler(sessions, l)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(UserIDMiddleware)

		r.Delete("/session", cartHandler.EndSession)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{item_id}", cartHandler.RemoveItem)
			r.Post("/switch/confirm", cartHandler.ConfirmSwitch)
			r.Post("/switch/cancel", cartHandler.CancelSwitch)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.StartCheckout)
			r.Get("/", checkoutHandler.GetCheckout)
			r.Delete("/", checkoutHandler.CancelCheckout)
			r.Post("/proceed", checkoutHandler.Proceed)
			r.Post("/back", checkoutHandler.Back)
			r.Get("/addresses", checkoutHandler.LoadAddresses)
			r.Post("/addresses", checkoutHandler.SaveAddress)
			r.Post("/address", checkoutHandler.ConfirmAddress)
			r.Post("/change-address", checkoutHandler.ChangeAddress)
			r.Post("/orders", checkoutHandler.PlaceOrder)
			r.Post("/continue", checkoutHandler.ContinueShopping)
		})
	})

	return r
}
