package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/middleware"
)

// NewRouter wires the cart API. Adding to the cart and buy-now sit behind the
// JWT gate; browsing and editing an existing cart do not.
func NewRouter(h *CartHandler, jwtSecret []byte, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Delete("/{sessionId}", h.EndSession)
	})

	r.Route("/api/cart/{sessionId}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(jwtSecret))
			r.Post("/items", h.AddItem)
			r.Post("/buy-now", h.BuyNow)
		})

		r.Route("/items/{productId}", func(r chi.Router) {
			r.Delete("/", h.RemoveProduct)
			r.Put("/quantity", h.SetProductQuantity)
			r.Put("/size", h.UpdateSize)

			r.Delete("/sizes/{size}", h.RemoveItem)
			r.Put("/sizes/{size}/quantity", h.SetItemQuantity)
			r.Put("/sizes/{size}/size", h.ChangeSize)
		})
	})

	return r
}
