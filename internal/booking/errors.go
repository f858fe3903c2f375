package booking

import (
	"fmt"

	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

// ValidationError covers missing or malformed input: bad dates, empty guest
// fields, checkout on or before checkin.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError is returned for unknown properties and reservations, including
// payment confirmations that arrive after the hold was expired.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// DateRangeUnavailableError names the calendar range the request collided with.
type DateRangeUnavailableError struct {
	Conflict models.CalendarRange
}

func (e *DateRangeUnavailableError) Error() string {
	return fmt.Sprintf("dates unavailable: conflicts with %s (%s - %s)",
		e.Conflict.Label, utils.FormatDate(e.Conflict.Start), utils.FormatDate(e.Conflict.End))
}

// MinimumStayError is returned when the requested span is shorter than the
// strictest minimum-stay rule covering any night of the stay.
type MinimumStayError struct {
	MinStay int
	Nights  int
}

func (e *MinimumStayError) Error() string {
	return fmt.Sprintf("minimum stay is %d nights, requested %d", e.MinStay, e.Nights)
}

// ConcurrencyConflictError means the atomic hold creation lost a race with a
// concurrent booking for the same property.
type ConcurrencyConflictError struct {
	PropertyID string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("another booking for property %s is in progress, please retry", e.PropertyID)
}
