package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RateRule overrides the nightly price for an inclusive date range.
// Higher priority wins over lower; range width never beats priority.
type RateRule struct {
	bun.BaseModel `bun:"table:rate_rules"`

	ID            string    `bun:"id,pk" json:"id"`
	PropertyID    string    `bun:"property_id,notnull" json:"property_id"`
	StartDate     time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate       time.Time `bun:"end_date,notnull" json:"end_date"`
	NightlyRate   float64   `bun:"nightly_rate,notnull" json:"nightly_rate"`
	MinStayNights int       `bun:"min_stay_nights,nullzero" json:"min_stay_nights,omitempty"`
	Priority      int       `bun:"priority,notnull" json:"priority"`
	Notes         string    `bun:"notes,nullzero" json:"notes,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Covers reports whether the rule's inclusive range contains the date.
func (r *RateRule) Covers(date time.Time) bool {
	return !date.Before(r.StartDate) && !date.After(r.EndDate)
}
