package rest

import (
	"net/http"

	"resto-be/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the order routes behind mws, applied in the given order.
func NewRouter(h *OrderHandler, reg *metrics.Registry, mws ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(mws...)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/metrics", reg.Handler())

	h.RegisterRoutes(r)
	return r
}
