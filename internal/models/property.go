package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Recognized metadata keys. Metadata is an open key-value map so admins can
// attach extra attributes without schema changes; these are the keys the
// service itself reads.
const (
	MetaCoverImage = "cover_image"
	MetaICalURL    = "ical_url"
	MetaCurrency   = "currency"
)

const DefaultCurrency = "usd"

type Property struct {
	bun.BaseModel `bun:"table:properties"`

	ID        string            `bun:"id,pk" json:"id"`
	Slug      string            `bun:"slug,unique,notnull" json:"slug"`
	Name      string            `bun:"name,notnull" json:"name"`
	BasePrice float64           `bun:"base_price,notnull" json:"base_price"`
	Metadata  map[string]string `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Currency returns the property's currency code, falling back to the default.
func (p *Property) Currency() string {
	if c, ok := p.Metadata[MetaCurrency]; ok && c != "" {
		return c
	}
	return DefaultCurrency
}
