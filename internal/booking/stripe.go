package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"ms-bookings/internal/config"
	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeCheckout creates Stripe Checkout Sessions for reservation holds and
// verifies webhook callbacks. The session ID it returns is the reservation's
// external payment reference.
type StripeCheckout struct {
	client  *client.API
	cfg     config.StripeConfig
	holdTTL time.Duration
	log     *logger.Logger
}

func NewStripeCheckout(cfg config.StripeConfig, holdTTL time.Duration, log *logger.Logger) (*StripeCheckout, error) {
	if cfg.SecretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY not configured")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(cfg.SecretKey, nil)
	log.Info("STRIPE", "Stripe client initialized")
	return &StripeCheckout{client: sc, cfg: cfg, holdTTL: holdTTL, log: log}, nil
}

// CreateCheckoutSession opens a hosted payment page for the reservation.
// The session expires with the hold, so an abandoned checkout cannot pay for
// dates that have already been released.
func (s *StripeCheckout) CreateCheckoutSession(ctx context.Context, res *models.Reservation, property *models.Property) (string, string, error) {
	description := fmt.Sprintf("%s, %s to %s (%d nights)",
		property.Name,
		utils.FormatDate(res.CheckIn),
		utils.FormatDate(res.CheckOut),
		utils.NightsBetween(res.CheckIn, res.CheckOut))

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.cfg.SuccessURL),
		CancelURL:     stripe.String(s.cfg.CancelURL),
		CustomerEmail: stripe.String(res.GuestEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(res.Currency),
					UnitAmount: stripe.Int64(int64(math.Round(res.TotalAmount * 100))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}
	// Stripe enforces a 30 minute floor on checkout expiry.
	if s.holdTTL >= 30*time.Minute {
		params.ExpiresAt = stripe.Int64(time.Now().Add(s.holdTTL).Unix())
	}
	params.AddMetadata("reservation_id", res.ID)
	params.Context = ctx

	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session for reservation %s: %v", res.ID, err))
		return "", "", fmt.Errorf("stripe checkout session: %w", err)
	}

	s.log.Info("STRIPE", fmt.Sprintf("Created checkout session %s for reservation %s (%s %.2f)",
		sess.ID, res.ID, res.Currency, res.TotalAmount))
	return sess.ID, sess.URL, nil
}

// VerifyEvent validates a webhook payload against the endpoint secret.
func (s *StripeCheckout) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.cfg.WebhookSecret == "" {
		return stripe.Event{}, errors.New("stripe webhook secret is not configured")
	}
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	return webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, opts)
}
