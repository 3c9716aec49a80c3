package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jcmexdev/pix-checkout/internal/pkg/metrics"
)

// NewRouter assembles the API surface. srvMetrics may be nil (tests).
func NewRouter(handler *Handler, srvMetrics *metrics.ServerMetrics, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if srvMetrics != nil {
		r.Use(srvMetrics.Middleware)
	}

	r.Get("/api/status", handler.Status)
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/criar-pagamento", handler.CreatePayment)
		r.Post("/webhook", handler.Webhook)
		r.Get("/status/{id}", handler.PaymentStatus)
		r.Get("/pedido/{id}", handler.OrderByID)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
