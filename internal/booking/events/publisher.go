package events

import (
	"encoding/json"
	"time"

	"ms-bookings/internal/kafka"
	"ms-bookings/internal/models"
	"ms-bookings/internal/utils"
)

// Publisher streams booking lifecycle events to Kafka for the other
// platform divisions.
type Publisher struct {
	Producer *kafka.Producer
}

func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{Producer: producer}
}

func (p *Publisher) publish(topic, eventType string, res models.Reservation) error {
	event := models.BookingEvent{
		Type:          eventType,
		ReservationID: res.ID,
		PropertyID:    res.PropertyID,
		CheckIn:       utils.FormatDate(res.CheckIn),
		CheckOut:      utils.FormatDate(res.CheckOut),
		Total:         res.TotalAmount,
		Status:        res.Status,
		Timestamp:     time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Producer.Publish(topic, res.ID, value)
}

func (p *Publisher) PublishBookingCreated(res models.Reservation) error {
	return p.publish(kafka.TopicBookingCreated, "booking.created", res)
}

func (p *Publisher) PublishBookingConfirmed(res models.Reservation) error {
	return p.publish(kafka.TopicBookingConfirmed, "booking.confirmed", res)
}

func (p *Publisher) PublishBookingExpired(res models.Reservation) error {
	return p.publish(kafka.TopicBookingExpired, "booking.expired", res)
}

// Noop satisfies the publisher interface when Kafka is disabled.
type Noop struct{}

func (Noop) PublishBookingCreated(models.Reservation) error   { return nil }
func (Noop) PublishBookingConfirmed(models.Reservation) error { return nil }
func (Noop) PublishBookingExpired(models.Reservation) error   { return nil }
