// The notifier tails seat events from the broker. It is the hook for
// downstream delivery (email, push, analytics); for now it acknowledges
// and logs each event.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rmaksimov/seat-sync/internal/adapters/rabbit"
	"github.com/rmaksimov/seat-sync/internal/config"
	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

const queue = "seatsync.notifications"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, queue)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	logger.WithField("queue", queue).Info("notifier started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("notifier exiting")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handle(d, logger)
		}
	}
}

func handle(d amqp.Delivery, logger observability.Logger) {
	var event domain.SeatEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		logger.WithError(err).Warn("discarding malformed event")
		d.Nack(false, false)
		return
	}
	entry := logger.
		WithField("event", event.Name).
		WithField("seat_no", event.SeatNo).
		WithField("seq", event.Seq)
	if event.UserID != nil {
		entry = entry.WithField("user_id", *event.UserID)
	}
	entry.Info("seat event received")
	d.Ack(false)
}
