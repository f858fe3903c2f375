package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"ms-bookings/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- PROPERTIES ----------------

func (d *DB) CreateProperty(ctx context.Context, property models.Property) error {
	_, err := d.Bun.NewInsert().Model(&property).Exec(ctx)
	return err
}

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

func (d *DB) ListProperties(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	err := d.Bun.NewSelect().
		Model(&properties).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return properties, nil
}

// UpdateProperty writes the mutable fields only; id and slug never change.
func (d *DB) UpdateProperty(ctx context.Context, property models.Property) error {
	_, err := d.Bun.NewUpdate().
		Model(&property).
		Column("name", "base_price", "metadata").
		Where("id = ?", property.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteProperty(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Property)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- RATE RULES ----------------

func (d *DB) CreateRateRule(ctx context.Context, rule models.RateRule) error {
	_, err := d.Bun.NewInsert().Model(&rule).Exec(ctx)
	return err
}

func (d *DB) ListRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error) {
	var rules []models.RateRule
	err := d.Bun.NewSelect().
		Model(&rules).
		Where("property_id = ?", propertyID).
		Order("priority DESC", "start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (d *DB) DeleteRateRule(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.RateRule)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- EXTERNAL BLOCKS ----------------

func (d *DB) CreateExternalBlock(ctx context.Context, block models.ExternalBlock) error {
	_, err := d.Bun.NewInsert().Model(&block).Exec(ctx)
	return err
}

func (d *DB) ListExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error) {
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

func (d *DB) DeleteExternalBlock(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.ExternalBlock)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ReplaceBlocks swaps every block a sync source previously produced for a
// property with the new set, in one transaction so the calendar never shows
// a half-synced feed.
func (d *DB) ReplaceBlocks(ctx context.Context, propertyID, source string, blocks []models.ExternalBlock) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ExternalBlock)(nil)).
			Where("property_id = ?", propertyID).
			Where("source = ?", source).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&blocks).Exec(ctx)
		return err
	})
}
