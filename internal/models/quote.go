package models

type QuoteRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

// NightRate is the resolved rate for a single occupied night.
type NightRate struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

// Quote is a priced breakdown for a prospective stay. It is not a commitment;
// the hold is only created when the guest books.
type Quote struct {
	PropertyID string      `json:"property_id"`
	CheckIn    string      `json:"check_in"`
	CheckOut   string      `json:"check_out"`
	Nights     []NightRate `json:"nights"`
	Total      float64     `json:"total"`
	Currency   string      `json:"currency"`
	MinStay    int         `json:"min_stay,omitempty"`
}
