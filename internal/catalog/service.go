package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

// ErrInvalid marks admin input the service refused.
var ErrInvalid = errors.New("invalid input")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type DBLayer interface {
	CreateProperty(ctx context.Context, property models.Property) error
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context) ([]models.Property, error)
	UpdateProperty(ctx context.Context, property models.Property) error
	DeleteProperty(ctx context.Context, id string) error
	CreateRateRule(ctx context.Context, rule models.RateRule) error
	ListRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error)
	DeleteRateRule(ctx context.Context, id string) error
	CreateExternalBlock(ctx context.Context, block models.ExternalBlock) error
	ListExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error)
	DeleteExternalBlock(ctx context.Context, id string) error
}

// Service is the admin surface for properties, rate rules and external
// blocks. Rate rules and blocks are create/list/delete only; corrections are
// made by replacing rows, never editing in place.
type Service struct {
	DB     DBLayer
	logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, logger: log}
}

type PropertyInput struct {
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	BasePrice float64           `json:"base_price"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type RateRuleInput struct {
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	NightlyRate   float64 `json:"nightly_rate"`
	MinStayNights int     `json:"min_stay_nights,omitempty"`
	Priority      int     `json:"priority"`
	Notes         string  `json:"notes,omitempty"`
}

type BlockInput struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Source    string `json:"source,omitempty"`
}

func parseInclusiveRange(start, end string) (time.Time, time.Time, error) {
	from, err := utils.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start_date", ErrInvalid)
	}
	to, err := utils.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end_date", ErrInvalid)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date before start_date", ErrInvalid)
	}
	return from, to, nil
}

func (s *Service) CreateProperty(ctx context.Context, input PropertyInput) (*models.Property, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	switch {
	case !slugPattern.MatchString(slug):
		return nil, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", ErrInvalid)
	case strings.TrimSpace(input.Name) == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	case input.BasePrice <= 0:
		return nil, fmt.Errorf("%w: base_price must be positive", ErrInvalid)
	}

	property := models.Property{
		ID:        uuid.NewString(),
		Slug:      slug,
		Name:      input.Name,
		BasePrice: input.BasePrice,
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.CreateProperty(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.logger.Info("CATALOG", fmt.Sprintf("Created property %s (%s)", property.Slug, property.ID))
	return &property, nil
}

func (s *Service) ListProperties(ctx context.Context) ([]models.Property, error) {
	return s.DB.ListProperties(ctx)
}

func (s *Service) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	return s.DB.GetPropertyByID(ctx, id)
}

// UpdateProperty changes price and metadata; slug and id are immutable.
func (s *Service) UpdateProperty(ctx context.Context, id string, input PropertyInput) (*models.Property, error) {
	property, err := s.DB.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) != "" {
		property.Name = input.Name
	}
	if input.BasePrice > 0 {
		property.BasePrice = input.BasePrice
	}
	if input.Metadata != nil {
		property.Metadata = input.Metadata
	}

	if err := s.DB.UpdateProperty(ctx, *property); err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	return property, nil
}

func (s *Service) DeleteProperty(ctx context.Context, id string) error {
	return s.DB.DeleteProperty(ctx, id)
}

func (s *Service) CreateRateRule(ctx context.Context, propertyID string, input RateRuleInput) (*models.RateRule, error) {
	if _, err := s.DB.GetPropertyByID(ctx, propertyID); err != nil {
		return nil, err
	}
	start, end, err := parseInclusiveRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	if input.NightlyRate <= 0 {
		return nil, fmt.Errorf("%w: nightly_rate must be positive", ErrInvalid)
	}
	if input.MinStayNights < 0 {
		return nil, fmt.Errorf("%w: min_stay_nights cannot be negative", ErrInvalid)
	}

	rule := models.RateRule{
		ID:            uuid.NewString(),
		PropertyID:    propertyID,
		StartDate:     start,
		EndDate:       end,
		NightlyRate:   input.NightlyRate,
		MinStayNights: input.MinStayNights,
		Priority:      input.Priority,
		Notes:         input.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.DB.CreateRateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rate rule: %w", err)
	}

	s.logger.Info("CATALOG", fmt.Sprintf("Created rate rule %s on property %s (%s - %s, priority %d)",
		rule.ID, propertyID, input.StartDate, input.EndDate, rule.Priority))
	return &rule, nil
}

func (s *Service) ListRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error) {
	return s.DB.ListRateRules(ctx, propertyID)
}

func (s *Service) DeleteRateRule(ctx context.Context, id string) error {
	return s.DB.DeleteRateRule(ctx, id)
}

func (s *Service) CreateExternalBlock(ctx context.Context, propertyID string, input BlockInput) (*models.ExternalBlock, error) {
	if _, err := s.DB.GetPropertyByID(ctx, propertyID); err != nil {
		return nil, err
	}
	start, end, err := parseInclusiveRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	block := models.ExternalBlock{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		StartDate:  start,
		EndDate:    end,
		Source:     input.Source,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.DB.CreateExternalBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("failed to create external block: %w", err)
	}
	return &block, nil
}

func (s *Service) ListExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error) {
	return s.DB.ListExternalBlocks(ctx, propertyID)
}

func (s *Service) DeleteExternalBlock(ctx context.Context, id string) error {
	return s.DB.DeleteExternalBlock(ctx, id)
}
