package booking

import (
	"sort"
	"time"

	"ms-bookings/internal/models"
)

// AggregateBlocks merges paid reservations and external blocks into one list
// of unavailable ranges with inclusive start/end dates. A reservation's
// exclusive check-out becomes an inclusive display end by dropping one day, so
// a one-night stay shows as a single-day range. Overlapping ranges are not
// merged; ordering is by start date for stable display.
func AggregateBlocks(reservations []models.Reservation, blocks []models.ExternalBlock) []models.CalendarRange {
	ranges := make([]models.CalendarRange, 0, len(reservations)+len(blocks))

	for _, r := range reservations {
		ranges = append(ranges, models.CalendarRange{
			Start: r.CheckIn,
			End:   r.CheckOut.AddDate(0, 0, -1),
			Kind:  models.RangeKindReservation,
			Label: models.RangeLabelBooked,
		})
	}
	for _, b := range blocks {
		ranges = append(ranges, models.CalendarRange{
			Start: b.StartDate,
			End:   b.EndDate,
			Kind:  models.RangeKindExternal,
			Label: models.RangeLabelExternal,
		})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		if !ranges[i].Start.Equal(ranges[j].Start) {
			return ranges[i].Start.Before(ranges[j].Start)
		}
		return ranges[i].Kind < ranges[j].Kind
	})

	return ranges
}

// FindConflict returns the first unavailable range intersecting the requested
// half-open [checkIn, checkOut) span, or nil when the span is free. Calendar
// ranges carry inclusive ends, so each is widened by one day before the
// half-open comparison.
func FindConflict(ranges []models.CalendarRange, checkIn, checkOut time.Time) *models.CalendarRange {
	for i := range ranges {
		endExclusive := ranges[i].End.AddDate(0, 0, 1)
		if checkIn.Before(endExclusive) && checkOut.After(ranges[i].Start) {
			return &ranges[i]
		}
	}
	return nil
}
