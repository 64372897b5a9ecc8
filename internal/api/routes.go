package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. metrics serves /metrics when set.
func SetupRoutes(handler *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	// Commodity routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/commodities", handler.GetCommodities).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/dashboard", handler.GetDashboard).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/signal", handler.GetSignal).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/accuracy", handler.GetAccuracy).Methods("GET")
	api.HandleFunc("/commodities/{commodity}/trend", handler.GetTrend).Methods("GET")

	return r
}
