package mailer

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	sl "account_service/internal/lib/logger"
	"account_service/internal/models"
)

// Sender delivers a rendered message. Satisfied by *Mailer.
type Sender interface {
	Send(msg models.Message) error
}

// Consumer drains the mail queue and hands each message to the sender.
type Consumer struct {
	log    *slog.Logger
	sender Sender
}

func NewConsumer(log *slog.Logger, sender Sender) *Consumer {
	return &Consumer{
		log:    log,
		sender: sender,
	}
}

// Run processes deliveries until the channel closes or ctx is done.
// Malformed payloads are rejected without requeue; transient send
// failures are requeued for another attempt.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	const op = "mailer.Consumer.Run"

	log := c.log.With(slog.String("op", op))

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}

			var msg models.Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				log.Error("failed to decode message", sl.Err(err))
				_ = delivery.Nack(false, false)

				continue
			}

			if err := c.sender.Send(msg); err != nil {
				log.Error("failed to send email", sl.Err(err))
				_ = delivery.Nack(false, true)

				continue
			}

			log.Info("email sent", slog.String("purpose", msg.Purpose))
			_ = delivery.Ack(false)
		}
	}
}
