package calsync

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
)

// SourceICal labels blocks imported from channel calendar feeds so a resync
// can replace exactly its own rows.
const SourceICal = "ical"

type Store interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	ReplaceBlocks(ctx context.Context, propertyID, source string, blocks []models.ExternalBlock) error
}

// Syncer pulls iCal feeds for every property that advertises one in its
// metadata and mirrors the events as external blocks.
type Syncer struct {
	Store  Store
	Client *http.Client
	logger *logger.Logger
}

func NewSyncer(store Store, log *logger.Logger) *Syncer {
	return &Syncer{
		Store:  store,
		Client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

// Run resyncs on a fixed interval until the context is cancelled. One pass
// runs immediately on startup.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	s.SyncAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll walks every property with a feed URL. A failing feed is logged and
// skipped; one broken channel must not stall the rest.
func (s *Syncer) SyncAll(ctx context.Context) {
	properties, err := s.Store.ListProperties(ctx)
	if err != nil {
		s.logger.Error("CALSYNC", fmt.Sprintf("Failed to list properties: %v", err))
		return
	}

	for _, property := range properties {
		feedURL := property.Metadata[models.MetaICalURL]
		if feedURL == "" {
			continue
		}
		if err := s.SyncProperty(ctx, property, feedURL); err != nil {
			s.logger.Error("CALSYNC", fmt.Sprintf("Sync failed for property %s: %v", property.Slug, err))
			continue
		}
	}
}

// SyncProperty fetches one feed and replaces the property's imported blocks
// with the feed's current events.
func (s *Syncer) SyncProperty(ctx context.Context, property models.Property, feedURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	events, err := parseCalendar(resp.Body)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	blocks := make([]models.ExternalBlock, 0, len(events))
	for _, ev := range events {
		if ev.End.Before(ev.Start) {
			continue
		}
		blocks = append(blocks, models.ExternalBlock{
			ID:         uuid.NewString(),
			PropertyID: property.ID,
			StartDate:  ev.Start,
			EndDate:    ev.End,
			Source:     SourceICal,
			CreatedAt:  now,
		})
	}

	if err := s.Store.ReplaceBlocks(ctx, property.ID, SourceICal, blocks); err != nil {
		return fmt.Errorf("failed to store blocks: %w", err)
	}

	s.logger.Info("CALSYNC", fmt.Sprintf("Synced %d blocks for property %s", len(blocks), property.Slug))
	return nil
}
