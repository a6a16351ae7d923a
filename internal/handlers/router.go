package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/pairup/internal/services"
	"go.uber.org/zap"
)

func NewRouter(coordinator *services.SessionCoordinator, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)

	presence := NewPresenceHandler(coordinator, logger)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Post("/session", presence.NewSession)

	// Presence and pairing
	router.Post("/update-location", presence.UpdateLocation)
	router.Post("/find-partner", presence.FindPartner)
	router.Post("/ring-partner", presence.RingPartner)
	router.Post("/check-status", presence.CheckStatus)
	router.Post("/get-partner-location", presence.GetPartnerLocation)
	router.Post("/exit-match", presence.ExitMatch)

	return router
}
