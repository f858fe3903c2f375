package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

type DBLayer interface {
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error)
	GetRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error)
	GetPaidReservations(ctx context.Context, propertyID string) ([]models.Reservation, error)
	GetExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error)
	CreateHold(ctx context.Context, res models.Reservation, staleBefore time.Time) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationBySession(ctx context.Context, sessionID string) (*models.Reservation, error)
	SetPaymentSession(ctx context.Context, reservationID, sessionID string) error
	MarkPaid(ctx context.Context, reservationID string) (bool, error)
	DeleteReservation(ctx context.Context, id string) error
	ExpireStaleHolds(ctx context.Context, staleBefore time.Time) ([]models.Reservation, error)
}

type HoldLock interface {
	LockProperty(propertyID, token string) (bool, error)
	UnlockProperty(propertyID, token string) error
	TrackHold(reservationID string, ttl time.Duration) error
	DropHold(reservationID string) error
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, res *models.Reservation, property *models.Property) (sessionID, paymentURL string, err error)
}

type EventPublisher interface {
	PublishBookingCreated(res models.Reservation) error
	PublishBookingConfirmed(res models.Reservation) error
	PublishBookingExpired(res models.Reservation) error
}

// BookingService owns the quote, availability and reservation hold flows.
// All concurrency control lives in the store and the Redis lock; the service
// itself keeps no state between requests.
type BookingService struct {
	DB      DBLayer
	Lock    HoldLock
	Payment PaymentProvider
	Events  EventPublisher
	HoldTTL time.Duration
	logger  *logger.Logger
}

func NewBookingService(db DBLayer, lock HoldLock, payment PaymentProvider, events EventPublisher, holdTTL time.Duration, log *logger.Logger) *BookingService {
	return &BookingService{
		DB:      db,
		Lock:    lock,
		Payment: payment,
		Events:  events,
		HoldTTL: holdTTL,
		logger:  log,
	}
}

func (s *BookingService) property(ctx context.Context, id string) (*models.Property, error) {
	property, err := s.DB.GetPropertyByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "property", ID: id}
		}
		return nil, fmt.Errorf("failed to load property %s: %w", id, err)
	}
	return property, nil
}

func parseStayDates(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := utils.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Msg: "invalid check-in date, expected YYYY-MM-DD"}
	}
	out, err := utils.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Msg: "invalid check-out date, expected YYYY-MM-DD"}
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, &ValidationError{Msg: "check-out must be after check-in"}
	}
	return in, out, nil
}

// Quote prices a prospective stay without creating any hold.
func (s *BookingService) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if req.PropertyID == "" {
		return nil, &ValidationError{Msg: "property_id is required"}
	}
	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	property, err := s.property(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	rules, err := s.DB.GetRateRules(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate rules: %w", err)
	}

	return BuildQuote(property, rules, checkIn, checkOut)
}

// Availability returns the property's unavailable ranges for calendar display.
func (s *BookingService) Availability(ctx context.Context, slug string) ([]models.CalendarRange, error) {
	property, err := s.DB.GetPropertyBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "property", ID: slug}
		}
		return nil, fmt.Errorf("failed to load property %s: %w", slug, err)
	}

	reservations, err := s.DB.GetPaidReservations(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	blocks, err := s.DB.GetExternalBlocks(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load external blocks: %w", err)
	}

	return AggregateBlocks(reservations, blocks), nil
}

func validateBookingRequest(req models.BookingRequest) error {
	switch {
	case req.PropertyID == "":
		return &ValidationError{Msg: "property_id is required"}
	case strings.TrimSpace(req.GuestName) == "":
		return &ValidationError{Msg: "guest_name is required"}
	case strings.TrimSpace(req.GuestEmail) == "":
		return &ValidationError{Msg: "guest_email is required"}
	case req.Guests < 1:
		return &ValidationError{Msg: "guests must be at least 1"}
	}
	return nil
}

// PlaceHold validates availability and creates a pending reservation plus a
// payment session, atomically with respect to concurrent requests for the
// same property. The returned payment URL is where the guest completes the
// booking.
func (s *BookingService) PlaceHold(ctx context.Context, req models.BookingRequest) (*models.BookingResponse, error) {
	if err := validateBookingRequest(req); err != nil {
		return nil, err
	}
	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	property, err := s.property(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	rules, err := s.DB.GetRateRules(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate rules: %w", err)
	}
	quote, err := BuildQuote(property, rules, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	reservationID := uuid.NewString()

	// Per-property mutex: concurrent booking attempts for the same property
	// serialize here, so the availability check and the insert below act as
	// one operation.
	locked, err := s.Lock.LockProperty(property.ID, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire property lock: %w", err)
	}
	if !locked {
		return nil, &ConcurrencyConflictError{PropertyID: property.ID}
	}
	defer func() {
		if err := s.Lock.UnlockProperty(property.ID, reservationID); err != nil {
			s.logger.Error("BOOKING", fmt.Sprintf("Failed to release property lock %s: %v", property.ID, err))
		}
	}()

	res := models.Reservation{
		ID:          reservationID,
		PropertyID:  property.ID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      req.Guests,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		GuestPhone:  req.GuestPhone,
		TotalAmount: quote.Total,
		Currency:    quote.Currency,
		Status:      models.ReservationPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.DB.CreateHold(ctx, res, time.Now().UTC().Add(-s.HoldTTL)); err != nil {
		return nil, err
	}
	s.logger.LogBooking("HOLD", res.ID, fmt.Sprintf("pending hold %s - %s on %s", req.CheckIn, req.CheckOut, property.Slug))

	sessionID, paymentURL, err := s.Payment.CreateCheckoutSession(ctx, &res, property)
	if err != nil {
		// The hold is useless without a payment session; release the dates.
		if delErr := s.DB.DeleteReservation(ctx, res.ID); delErr != nil {
			s.logger.Error("BOOKING", fmt.Sprintf("Failed to roll back hold %s: %v", res.ID, delErr))
		}
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}
	if err := s.DB.SetPaymentSession(ctx, res.ID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to attach payment session: %w", err)
	}
	res.PaymentSessionID = sessionID

	if err := s.Lock.TrackHold(res.ID, s.HoldTTL); err != nil {
		s.logger.Warn("BOOKING", fmt.Sprintf("Failed to track hold TTL for %s: %v", res.ID, err))
	}
	if err := s.Events.PublishBookingCreated(res); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking created for %s: %v", res.ID, err))
	}

	return &models.BookingResponse{
		ReservationID: res.ID,
		PropertyID:    property.ID,
		CheckIn:       quote.CheckIn,
		CheckOut:      quote.CheckOut,
		Total:         quote.Total,
		Currency:      quote.Currency,
		PaymentURL:    paymentURL,
	}, nil
}

// Confirm transitions the reservation matching a payment session to paid.
// Re-confirming a paid reservation is a no-op; confirming a session whose
// hold has already expired reports not found and never resurrects the hold.
func (s *BookingService) Confirm(ctx context.Context, sessionID string) error {
	res, err := s.DB.GetReservationBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "reservation for payment session", ID: sessionID}
		}
		return fmt.Errorf("failed to look up payment session %s: %w", sessionID, err)
	}

	if res.Status == models.ReservationPaid {
		s.logger.LogBooking("CONFIRM", res.ID, "already paid, ignoring duplicate confirmation")
		return nil
	}

	updated, err := s.DB.MarkPaid(ctx, res.ID)
	if err != nil {
		return fmt.Errorf("failed to mark reservation %s paid: %w", res.ID, err)
	}
	if !updated {
		// Raced with expiry: the pending row is gone, nothing to confirm.
		return &NotFoundError{Resource: "reservation", ID: res.ID}
	}

	if err := s.Lock.DropHold(res.ID); err != nil {
		s.logger.Warn("BOOKING", fmt.Sprintf("Failed to drop hold key for %s: %v", res.ID, err))
	}

	res.Status = models.ReservationPaid
	s.logger.LogBooking("CONFIRM", res.ID, fmt.Sprintf("paid via session %s", sessionID))
	if err := s.Events.PublishBookingConfirmed(*res); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking confirmed for %s: %v", res.ID, err))
	}
	return nil
}

// ExpireStale deletes pending reservations older than the hold TTL, releasing
// their date ranges. Safe to invoke repeatedly.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.DB.ExpireStaleHolds(ctx, time.Now().UTC().Add(-s.HoldTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale holds: %w", err)
	}
	for _, res := range expired {
		s.logger.LogBooking("EXPIRE", res.ID, "stale hold removed")
		if err := s.Lock.DropHold(res.ID); err != nil {
			s.logger.Warn("BOOKING", fmt.Sprintf("Failed to drop hold key for %s: %v", res.ID, err))
		}
		if err := s.Events.PublishBookingExpired(res); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking expired for %s: %v", res.ID, err))
		}
	}
	return len(expired), nil
}

// ExpireHold removes a single pending reservation, used when its Redis hold
// key expires. A missing or already-paid reservation is left untouched.
func (s *BookingService) ExpireHold(ctx context.Context, reservationID string) error {
	res, err := s.DB.GetReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to load reservation %s: %w", reservationID, err)
	}
	if res.Status != models.ReservationPending {
		return nil
	}

	if err := s.DB.DeleteReservation(ctx, res.ID); err != nil {
		return fmt.Errorf("failed to delete expired hold %s: %w", res.ID, err)
	}
	s.logger.LogBooking("EXPIRE", res.ID, "hold TTL elapsed, dates released")
	if err := s.Events.PublishBookingExpired(*res); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking expired for %s: %v", res.ID, err))
	}
	return nil
}
