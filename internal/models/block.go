package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ExternalBlock is a date range made unavailable by a booking on another
// platform. Start and end are both inclusive. Ranges may overlap; the
// calendar treats them as a union.
type ExternalBlock struct {
	bun.BaseModel `bun:"table:external_blocks"`

	ID         string    `bun:"id,pk" json:"id"`
	PropertyID string    `bun:"property_id,notnull" json:"property_id"`
	StartDate  time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate    time.Time `bun:"end_date,notnull" json:"end_date"`
	Source     string    `bun:"source,nullzero" json:"source,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Calendar range kinds as shown on the availability calendar.
const (
	RangeKindReservation = "reservation"
	RangeKindExternal    = "external"

	RangeLabelBooked   = "Booked"
	RangeLabelExternal = "External Block"
)

// CalendarRange is one unavailable range on a property's calendar.
// Start and End are inclusive display dates.
type CalendarRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Kind  string    `json:"kind"`
	Label string    `json:"label"`
}
