package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-bookings/internal/booking"
	"ms-bookings/internal/models"
)

func TestAggregateBlocks_ReservationDisplayEnd(t *testing.T) {
	// Paid stay checking out on the 28th occupies through the night of the
	// 27th, so the calendar shows 25th through 27th.
	reservations := []models.Reservation{
		{
			ID:       "res-1",
			CheckIn:  date("2025-10-25"),
			CheckOut: date("2025-10-28"),
			Status:   models.ReservationPaid,
		},
	}

	ranges := booking.AggregateBlocks(reservations, nil)
	require.Len(t, ranges, 1)
	assert.Equal(t, date("2025-10-25"), ranges[0].Start)
	assert.Equal(t, date("2025-10-27"), ranges[0].End)
	assert.Equal(t, models.RangeKindReservation, ranges[0].Kind)
	assert.Equal(t, models.RangeLabelBooked, ranges[0].Label)
}

func TestAggregateBlocks_OneNightStayIsSingleDay(t *testing.T) {
	reservations := []models.Reservation{
		{ID: "res-1", CheckIn: date("2025-10-25"), CheckOut: date("2025-10-26")},
	}

	ranges := booking.AggregateBlocks(reservations, nil)
	require.Len(t, ranges, 1)
	assert.Equal(t, ranges[0].Start, ranges[0].End)
}

func TestAggregateBlocks_MixedAndSorted(t *testing.T) {
	reservations := []models.Reservation{
		{ID: "res-1", CheckIn: date("2025-11-10"), CheckOut: date("2025-11-12")},
	}
	blocks := []models.ExternalBlock{
		{ID: "blk-1", StartDate: date("2025-11-01"), EndDate: date("2025-11-03")},
		{ID: "blk-2", StartDate: date("2025-11-20"), EndDate: date("2025-11-22")},
	}

	ranges := booking.AggregateBlocks(reservations, blocks)
	require.Len(t, ranges, 3)
	assert.Equal(t, date("2025-11-01"), ranges[0].Start)
	assert.Equal(t, models.RangeKindExternal, ranges[0].Kind)
	assert.Equal(t, date("2025-11-10"), ranges[1].Start)
	assert.Equal(t, models.RangeKindReservation, ranges[1].Kind)
	assert.Equal(t, date("2025-11-20"), ranges[2].Start)
}

func TestAggregateBlocks_Empty(t *testing.T) {
	ranges := booking.AggregateBlocks(nil, nil)
	assert.NotNil(t, ranges)
	assert.Empty(t, ranges)
}

func TestFindConflict_BlockInclusiveEnd(t *testing.T) {
	// Block covering the 26th through 30th inclusive conflicts with a stay
	// whose only night is the 28th.
	ranges := booking.AggregateBlocks(nil, []models.ExternalBlock{
		{ID: "blk-1", StartDate: date("2025-11-26"), EndDate: date("2025-11-30")},
	})

	conflict := booking.FindConflict(ranges, date("2025-11-28"), date("2025-11-29"))
	require.NotNil(t, conflict)
	assert.Equal(t, date("2025-11-26"), conflict.Start)

	// The last blocked day itself still conflicts.
	conflict = booking.FindConflict(ranges, date("2025-11-30"), date("2025-12-01"))
	assert.NotNil(t, conflict)

	// Checking in the day after the block is fine.
	conflict = booking.FindConflict(ranges, date("2025-12-01"), date("2025-12-03"))
	assert.Nil(t, conflict)
}

func TestFindConflict_CheckoutDayIsFree(t *testing.T) {
	// A new stay may check in on an existing reservation's check-out day.
	ranges := booking.AggregateBlocks([]models.Reservation{
		{ID: "res-1", CheckIn: date("2025-10-25"), CheckOut: date("2025-10-28")},
	}, nil)

	conflict := booking.FindConflict(ranges, date("2025-10-28"), date("2025-10-30"))
	assert.Nil(t, conflict)

	// But overlapping the last occupied night conflicts.
	conflict = booking.FindConflict(ranges, date("2025-10-27"), date("2025-10-29"))
	assert.NotNil(t, conflict)
}
