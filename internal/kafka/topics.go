package kafka

import (
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Booking lifecycle topics consumed by the other platform divisions.
const (
	TopicBookingCreated   = "realty.booking.created"
	TopicBookingConfirmed = "realty.booking.confirmed"
	TopicBookingExpired   = "realty.booking.expired"
)

func RequiredTopics() []string {
	return []string{TopicBookingCreated, TopicBookingConfirmed, TopicBookingExpired}
}

// EnsureTopicsExist creates the topics on the cluster controller if missing.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
		} else {
			log.Printf("Created topic: %s", topic)
		}
	}

	// Give the controller a moment before producers start writing.
	time.Sleep(1 * time.Second)
	return nil
}
