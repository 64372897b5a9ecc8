package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trogers1052/cot-signal-service/internal/catalog"
	"github.com/trogers1052/cot-signal-service/internal/dashboard"
	"github.com/trogers1052/cot-signal-service/internal/models"
)

// DashboardService is the pipeline the handlers expose
type DashboardService interface {
	Commodities() []models.CommodityInfo
	Dashboard(ctx context.Context, commodity string, start, end time.Time) (*models.Dashboard, error)
	DefaultRange() (time.Time, time.Time)
	Location() *time.Location
}

// Pinger checks a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc          DashboardService
	redis        Pinger
	kafkaEnabled bool
	logger       *zap.Logger
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(svc DashboardService, redis Pinger, kafkaEnabled bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:          svc,
		redis:        redis,
		kafkaEnabled: kafkaEnabled,
		logger:       logger,
	}
}

// errorResponse is the JSON body of every error
type errorResponse struct {
	Error string `json:"error"`
}

// GetCommodities handles GET /commodities
func (h *Handler) GetCommodities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Commodities())
}

// GetDashboard handles GET /commodities/{commodity}/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GetSignal handles GET /commodities/{commodity}/signal
func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	if d.Current == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no positioning data for %s in range", d.Commodity.Name))
		return
	}
	respondJSON(w, http.StatusOK, d.Current)
}

// GetPositions handles GET /commodities/{commodity}/positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commodity":       d.Commodity,
		"matched_markets": d.MatchedMarkets,
		"positions":       d.Positions,
		"warnings":        d.Warnings,
	})
}

// GetHistory handles GET /commodities/{commodity}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commodity": d.Commodity,
		"history":   d.History,
		"warnings":  d.Warnings,
	})
}

// GetAccuracy handles GET /commodities/{commodity}/accuracy
func (h *Handler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commodity": d.Commodity,
		"accuracy":  d.Accuracy,
		"warnings":  d.Warnings,
	})
}

// GetTrend handles GET /commodities/{commodity}/trend
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commodity":     d.Commodity,
		"trend":         d.Trend,
		"open_interest": d.OpenInterest,
		"extremes":      d.Extremes,
		"warnings":      d.Warnings,
	})
}

// dashboard resolves the path and query parameters and runs the pipeline,
// writing the error response itself when it fails.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) (*models.Dashboard, bool) {
	commodity := mux.Vars(r)["commodity"]

	start, end, err := h.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	d, err := h.svc.Dashboard(r.Context(), commodity, start, end)
	switch {
	case err == nil:
		return d, true
	case errors.Is(err, catalog.ErrUnknownCommodity):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Dashboard failed", zap.String("commodity", commodity), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return nil, false
}

// parseRange reads start and end (YYYY-MM-DD). A missing end is today and
// a missing start is the default range length before end.
func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	loc := h.svc.Location()
	defStart, defEnd := h.svc.DefaultRange()

	end := defEnd
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.ParseInLocation(models.DateLayout, v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", v)
		}
		end = t
	}

	days := int(math.Round(defEnd.Sub(defStart).Hours() / 24))
	start := end.AddDate(0, 0, -days)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.ParseInLocation(models.DateLayout, v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", v)
		}
		start = t
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	return start, end, nil
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)

	// Redis is optional; an outage only costs the shared cache
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
			health["status"] = "degraded"
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.kafkaEnabled {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	respondJSON(w, http.StatusOK, health)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
