package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

const Exchange = "seatsync.events"

// Publisher relays seat events to the topic exchange for consumers
// outside the process (notification workers, analytics). Delivery is
// best effort: a broker failure is logged and never fails the booking
// that produced the event.
type Publisher struct {
	ch     *amqp.Channel
	logger observability.Logger
}

func NewPublisher(conn *amqp.Connection, logger observability.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, logger: logger}, nil
}

// Publish satisfies booking.Publisher.
func (p *Publisher) Publish(event domain.SeatEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Warn("marshal seat event failed")
		return
	}
	msg := amqp.Publishing{
		MessageId:    uuid.New().String(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(context.Background(), Exchange, routingKey(event.Name), false, false, msg); err != nil {
		p.logger.WithError(err).Warn("rabbit publish failed")
	}
}

func routingKey(eventName string) string {
	switch eventName {
	case domain.EventSeatBooked:
		return "seat.booked"
	case domain.EventSeatCancelled:
		return "seat.cancelled"
	default:
		return "seat.unknown"
	}
}
