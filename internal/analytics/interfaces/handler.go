package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	analyticsapp "condo-cloud/internal/analytics/application"
	billing "condo-cloud/internal/billing/domain"
)

// Handler serves collection and debt aging endpoints.
type Handler struct {
	service *analyticsapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *analyticsapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("analytics handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/collection and /api/v1/debts/aging.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/collection":
		h.handleCollection(w, r)
	case "/api/v1/debts/aging":
		h.handleAging(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	chargeID := r.URL.Query().Get("charge_id")
	if chargeID == "" {
		http.Error(w, "charge_id required", http.StatusBadRequest)
		return
	}
	stats, err := h.service.Collection(r.Context(), chargeID)
	if err != nil {
		if errors.Is(err, billing.ErrChargeNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid as_of", http.StatusBadRequest)
			return
		}
		asOf = parsed.UTC()
	}
	report, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
