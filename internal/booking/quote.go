package booking

import (
	"sort"
	"time"

	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

// sortRules orders rate rules by descending priority. Rules with equal
// priority are ordered newest-first, so the most recently created rule wins
// a tie.
func sortRules(rules []models.RateRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
}

// ResolveNightlyRate returns the rate for one night and the rule that set it.
// The first rule (in priority order) whose inclusive range covers the night
// wins; priority strictly beats range specificity. With no match the
// property's base price applies and the returned rule is nil.
func ResolveNightlyRate(rules []models.RateRule, basePrice float64, night time.Time) (float64, *models.RateRule) {
	for i := range rules {
		if rules[i].Covers(night) {
			return rules[i].NightlyRate, &rules[i]
		}
	}
	return basePrice, nil
}

// BuildQuote prices a stay night by night over [checkIn, checkOut).
// The strictest minimum-stay among the rules that priced a night governs the
// whole span.
func BuildQuote(property *models.Property, rules []models.RateRule, checkIn, checkOut time.Time) (*models.Quote, error) {
	if !checkOut.After(checkIn) {
		return nil, &ValidationError{Msg: "check-out must be after check-in"}
	}

	sortRules(rules)

	quote := &models.Quote{
		PropertyID: property.ID,
		CheckIn:    utils.FormatDate(checkIn),
		CheckOut:   utils.FormatDate(checkOut),
		Currency:   property.Currency(),
	}

	minStay := 0
	for night := checkIn; night.Before(checkOut); night = night.AddDate(0, 0, 1) {
		rate, rule := ResolveNightlyRate(rules, property.BasePrice, night)
		if rule != nil && rule.MinStayNights > minStay {
			minStay = rule.MinStayNights
		}
		quote.Nights = append(quote.Nights, models.NightRate{
			Date: utils.FormatDate(night),
			Rate: rate,
		})
		quote.Total += rate
	}

	nights := len(quote.Nights)
	if minStay > 0 && nights < minStay {
		return nil, &MinimumStayError{MinStay: minStay, Nights: nights}
	}
	quote.MinStay = minStay

	return quote, nil
}
