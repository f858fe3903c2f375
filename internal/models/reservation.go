package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReservationPending = "pending"
	ReservationPaid    = "paid"
)

// Reservation is a stay on a property. CheckIn is inclusive, CheckOut is
// exclusive: the guest departs that morning, so the last occupied night is
// CheckOut minus one day.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID               string    `bun:"id,pk" json:"id"`
	PropertyID       string    `bun:"property_id,notnull" json:"property_id"`
	CheckIn          time.Time `bun:"check_in,notnull" json:"check_in"`
	CheckOut         time.Time `bun:"check_out,notnull" json:"check_out"`
	Guests           int       `bun:"guests,notnull" json:"guests"`
	GuestName        string    `bun:"guest_name,notnull" json:"guest_name"`
	GuestEmail       string    `bun:"guest_email,notnull" json:"guest_email"`
	GuestPhone       string    `bun:"guest_phone,nullzero" json:"guest_phone,omitempty"`
	TotalAmount      float64   `bun:"total_amount,notnull" json:"total_amount"`
	Currency         string    `bun:"currency,notnull" json:"currency"`
	Status           string    `bun:"status,notnull" json:"status"`
	PaymentSessionID string    `bun:"payment_session_id,nullzero" json:"payment_session_id,omitempty"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
}

type BookingRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone,omitempty"`
}

type BookingResponse struct {
	ReservationID string  `json:"reservation_id"`
	PropertyID    string  `json:"property_id"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
	PaymentURL    string  `json:"payment_url"`
}

// BookingEvent is the Kafka payload published on booking lifecycle changes.
type BookingEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	PropertyID    string    `json:"property_id"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}
