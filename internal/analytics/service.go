package analytics

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

// Service aggregates booking revenue and occupancy for the admin dashboards.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// PropertyAnalytics is the revenue summary for one property.
type PropertyAnalytics struct {
	PropertyID   string         `json:"property_id"`
	TotalRevenue float64        `json:"total_revenue"`
	NightsSold   int            `json:"nights_sold"`
	Bookings     int            `json:"bookings"`
	DailyRevenue []DailyRevenue `json:"daily_revenue"`
}

// DailyRevenue groups paid booking totals by the day the booking was made.
type DailyRevenue struct {
	Date     string  `json:"date"`
	Revenue  float64 `json:"revenue"`
	Bookings int     `json:"bookings"`
}

// OccupancyReport covers a window of nights for one property.
type OccupancyReport struct {
	PropertyID     string  `json:"property_id"`
	WindowStart    string  `json:"window_start"`
	WindowEnd      string  `json:"window_end"`
	TotalNights    int     `json:"total_nights"`
	OccupiedNights int     `json:"occupied_nights"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// GetPropertyAnalytics returns revenue totals and a daily sales series over
// the property's paid reservations.
func (s *Service) GetPropertyAnalytics(ctx context.Context, propertyID string) (*PropertyAnalytics, error) {
	var reservations []models.Reservation
	err := s.db.NewSelect().
		Model(&reservations).
		Where("property_id = ?", propertyID).
		Where("status = ?", models.ReservationPaid).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	analytics := &PropertyAnalytics{
		PropertyID:   propertyID,
		DailyRevenue: []DailyRevenue{},
	}

	byDay := make(map[string]*DailyRevenue)
	var dayOrder []string
	for _, res := range reservations {
		analytics.TotalRevenue += res.TotalAmount
		analytics.NightsSold += utils.NightsBetween(res.CheckIn, res.CheckOut)
		analytics.Bookings++

		day := utils.FormatDate(res.CreatedAt)
		if _, ok := byDay[day]; !ok {
			byDay[day] = &DailyRevenue{Date: day}
			dayOrder = append(dayOrder, day)
		}
		byDay[day].Revenue += res.TotalAmount
		byDay[day].Bookings++
	}
	for _, day := range dayOrder {
		analytics.DailyRevenue = append(analytics.DailyRevenue, *byDay[day])
	}

	return analytics, nil
}

// GetOccupancy reports how many nights in [windowStart, windowStart+days) are
// covered by paid reservations or external blocks.
func (s *Service) GetOccupancy(ctx context.Context, propertyID string, windowStart time.Time, days int) (*OccupancyReport, error) {
	windowEnd := windowStart.AddDate(0, 0, days)

	var reservations []models.Reservation
	err := s.db.NewSelect().
		Model(&reservations).
		Where("property_id = ?", propertyID).
		Where("status = ?", models.ReservationPaid).
		Where("check_in < ?", windowEnd).
		Where("check_out > ?", windowStart).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var blocks []models.ExternalBlock
	err = s.db.NewSelect().
		Model(&blocks).
		Where("property_id = ?", propertyID).
		Where("start_date < ?", windowEnd).
		Where("end_date >= ?", windowStart).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]bool)
	for _, res := range reservations {
		for night := res.CheckIn; night.Before(res.CheckOut); night = night.AddDate(0, 0, 1) {
			if !night.Before(windowStart) && night.Before(windowEnd) {
				occupied[utils.FormatDate(night)] = true
			}
		}
	}
	for _, b := range blocks {
		for night := b.StartDate; !night.After(b.EndDate); night = night.AddDate(0, 0, 1) {
			if !night.Before(windowStart) && night.Before(windowEnd) {
				occupied[utils.FormatDate(night)] = true
			}
		}
	}

	report := &OccupancyReport{
		PropertyID:     propertyID,
		WindowStart:    utils.FormatDate(windowStart),
		WindowEnd:      utils.FormatDate(windowEnd),
		TotalNights:    days,
		OccupiedNights: len(occupied),
	}
	if days > 0 {
		report.OccupancyRate = float64(report.OccupiedNights) / float64(days)
	}
	return report, nil
}
