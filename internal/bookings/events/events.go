// Package events publishes booking lifecycle events.
package events

import (
	"context"
	"time"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

const (
	TypeCreated = "booking.created"
	TypeUpdated = "booking.updated"
	TypeDeleted = "booking.deleted"

	Source        = "hotelbook-bookings"
	SchemaVersion = "1"

	publishTimeout = 5 * time.Second
)

// Publisher announces committed booking changes. Publishing is best effort:
// a failure is logged and never undoes the change.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking)
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	log := p.log.FromContext(ctx)

	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(booking).
		WithEventType(eventType).
		WithCorrelationID(logger.RequestID(ctx)).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		Build()
	if err != nil {
		log.Error("Failed to build booking event", "event_type", eventType, "booking_id", booking.ID, "error", err)
		return
	}

	// the request may finish before the broker acks
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.producer.Publish(pubCtx, msg); err != nil {
		log.Error("Failed to publish booking event", "event_type", eventType, "booking_id", booking.ID, "error", err)
	}
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *model.Booking) {}
