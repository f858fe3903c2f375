package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"

	"ms-bookings/internal/booking"
	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

type Handler struct {
	BookingService *booking.BookingService
	Stripe         *booking.StripeCheckout
	Logger         *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses with a user-displayable
// message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr  *booking.ValidationError
		notFoundErr    *booking.NotFoundError
		unavailableErr *booking.DateRangeUnavailableError
		minStayErr     *booking.MinimumStayError
		conflictErr    *booking.ConcurrencyConflictError
	)

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.As(err, &validationErr):
		status, message = http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &notFoundErr):
		status, message = http.StatusNotFound, notFoundErr.Error()
	case errors.As(err, &unavailableErr):
		status, message = http.StatusConflict, unavailableErr.Error()
	case errors.As(err, &minStayErr):
		status, message = http.StatusUnprocessableEntity, minStayErr.Error()
	case errors.As(err, &conflictErr):
		status, message = http.StatusConflict, conflictErr.Error()
	default:
		h.Logger.Error("API", fmt.Sprintf("Unhandled error: %v", err))
	}

	writeJSON(w, status, utils.ErrorResponse("request failed", message))
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &booking.ValidationError{Msg: "invalid request body: " + err.Error()})
		return
	}

	quote, err := h.BookingService.Quote(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, "200")
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &booking.ValidationError{Msg: "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.BookingService.PlaceHold(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, "201")
	writeJSON(w, http.StatusCreated, resp)
}

// Availability lists a property's unavailable ranges. Store failures degrade
// to an empty list so the property page still renders.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ranges, err := h.BookingService.Availability(r.Context(), slug)
	if err != nil {
		var notFoundErr *booking.NotFoundError
		if errors.As(err, &notFoundErr) {
			h.writeError(w, err)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Availability for %s degraded to empty: %v", slug, err))
		ranges = []models.CalendarRange{}
	}
	if ranges == nil {
		ranges = []models.CalendarRange{}
	}

	writeJSON(w, http.StatusOK, ranges)
}

// StripeWebhook handles payment-provider callbacks. A completed checkout
// confirms its reservation; an expired checkout releases the hold early.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}

	event, err := h.Stripe.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Signature verification failed: %v", err))
		http.Error(w, "invalid webhook signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
			http.Error(w, "invalid event data", http.StatusBadRequest)
			return
		}
		if err := h.BookingService.Confirm(r.Context(), session.ID); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to confirm session %s: %v", session.ID, err))
			h.writeError(w, err)
			return
		}
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Confirmed booking for session %s", session.ID))

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			http.Error(w, "invalid event data", http.StatusBadRequest)
			return
		}
		if reservationID, ok := session.Metadata["reservation_id"]; ok {
			if err := h.BookingService.ExpireHold(r.Context(), reservationID); err != nil {
				h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to expire hold %s: %v", reservationID, err))
			}
		}

	default:
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}

	w.WriteHeader(http.StatusOK)
}

// ExpireHolds is invoked on a schedule by the platform cron.
func (h *Handler) ExpireHolds(w http.ResponseWriter, r *http.Request) {
	count, err := h.BookingService.ExpireStale(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Expiry sweep removed %d stale holds", count))
	writeJSON(w, http.StatusOK, map[string]int{"expired": count})
}
