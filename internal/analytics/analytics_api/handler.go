package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-bookings/internal/analytics"
	"ms-bookings/internal/logger"
	"ms-bookings/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/properties/{propertyId}/analytics", h.PropertyAnalytics)
	r.Get("/admin/properties/{propertyId}/occupancy", h.Occupancy)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) PropertyAnalytics(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyId")

	report, err := h.Service.GetPropertyAnalytics(r.Context(), propertyID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to build analytics for %s: %v", propertyID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("internal error", "failed to build analytics"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Occupancy reports the next N days (default 30) starting from ?from, which
// defaults to today.
func (h *Handler) Occupancy(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyId")

	from := utils.Midnight(time.Now().UTC())
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid input", "from must be YYYY-MM-DD"))
			return
		}
		from = parsed
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid input", "days must be between 1 and 365"))
			return
		}
		days = parsed
	}

	report, err := h.Service.GetOccupancy(r.Context(), propertyID, from, days)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to build occupancy for %s: %v", propertyID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("internal error", "failed to build occupancy"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
