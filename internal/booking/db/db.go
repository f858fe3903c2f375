package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-bookings/internal/booking"
	"ms-bookings/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- PROPERTIES ----------------

func (d *DB) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := d.Bun.NewSelect().
		Model(&property).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (d *DB) GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error) {
	var property models.Property
	err := d.Bun.NewSelect().
		Model(&property).
		Where("slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// ---------------- RATES & BLOCKS ----------------

func (d *DB) GetRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error) {
	var rules []models.RateRule
	err := d.Bun.NewSelect().
		Model(&rules).
		Where("property_id = ?", propertyID).
		Order("priority DESC", "created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (d *DB) GetExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error) {
	var blocks []models.ExternalBlock
	err := d.Bun.NewSelect().
		Model(&blocks).
		Where("property_id = ?", propertyID).
		Order("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ---------------- RESERVATIONS ----------------

func (d *DB) GetPaidReservations(ctx context.Context, propertyID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("property_id = ?", propertyID).
		Where("status = ?", models.ReservationPaid).
		Order("check_in ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (d *DB) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (d *DB) GetReservationBySession(ctx context.Context, sessionID string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("payment_session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateHold re-checks the requested range against paid reservations, live
// pending holds and external blocks, then inserts the pending reservation.
// Check and insert run in one transaction so a concurrent hold cannot slip
// between them; callers additionally serialize per property via the Redis
// lock. Pending holds older than staleBefore are ignored as conflicts since
// the expiry sweep will remove them.
func (d *DB) CreateHold(ctx context.Context, res models.Reservation, staleBefore time.Time) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var conflicting models.Reservation
		err := tx.NewSelect().
			Model(&conflicting).
			Where("property_id = ?", res.PropertyID).
			Where("check_in < ?", res.CheckOut).
			Where("check_out > ?", res.CheckIn).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("status = ?", models.ReservationPaid).
					WhereOr("status = ? AND created_at > ?", models.ReservationPending, staleBefore)
			}).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return &booking.DateRangeUnavailableError{Conflict: models.CalendarRange{
				Start: conflicting.CheckIn,
				End:   conflicting.CheckOut.AddDate(0, 0, -1),
				Kind:  models.RangeKindReservation,
				Label: models.RangeLabelBooked,
			}}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var block models.ExternalBlock
		err = tx.NewSelect().
			Model(&block).
			Where("property_id = ?", res.PropertyID).
			Where("start_date < ?", res.CheckOut).
			Where("end_date >= ?", res.CheckIn).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return &booking.DateRangeUnavailableError{Conflict: models.CalendarRange{
				Start: block.StartDate,
				End:   block.EndDate,
				Kind:  models.RangeKindExternal,
				Label: models.RangeLabelExternal,
			}}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = tx.NewInsert().Model(&res).Exec(ctx)
		return err
	})
}

func (d *DB) SetPaymentSession(ctx context.Context, reservationID, sessionID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("payment_session_id = ?", sessionID).
		Where("id = ?", reservationID).
		Exec(ctx)
	return err
}

// MarkPaid flips a pending reservation to paid. Returns false when no pending
// row matched, which means the hold was already expired or already paid.
func (d *DB) MarkPaid(ctx context.Context, reservationID string) (bool, error) {
	result, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", models.ReservationPaid).
		Where("id = ?", reservationID).
		Where("status = ?", models.ReservationPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (d *DB) DeleteReservation(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Reservation)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ExpireStaleHolds deletes pending reservations created before staleBefore
// and returns the removed rows. Paid reservations are never touched.
func (d *DB) ExpireStaleHolds(ctx context.Context, staleBefore time.Time) ([]models.Reservation, error) {
	var stale []models.Reservation
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&stale).
			Where("status = ?", models.ReservationPending).
			Where("created_at < ?", staleBefore).
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, len(stale))
		for i, res := range stale {
			ids[i] = res.ID
		}
		_, err = tx.NewDelete().
			Model((*models.Reservation)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Where("status = ?", models.ReservationPending).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}
