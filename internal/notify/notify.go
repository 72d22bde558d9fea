package notify

import (
	"context"
	"log/slog"
	"time"

	sl "account_service/internal/lib/logger"
	"account_service/internal/models"
)

const publishTimeout = 10 * time.Second

// Publisher is the queue the dispatcher hands messages to.
type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// Dispatcher sends mail messages fire-and-forget. Publishing happens in
// a detached goroutine with its own timeout so a slow or failing broker
// never blocks or fails the request that triggered the message; failures
// are logged and dropped.
type Dispatcher struct {
	log *slog.Logger
	pub Publisher
}

func New(log *slog.Logger, pub Publisher) *Dispatcher {
	return &Dispatcher{
		log: log,
		pub: pub,
	}
}

func (d *Dispatcher) Dispatch(msg models.Message) {
	go func() {
		const op = "notify.Dispatch"

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := d.pub.SendMessage(ctx, msg); err != nil {
			d.log.Error("failed to publish mail message",
				slog.String("op", op),
				slog.String("purpose", msg.Purpose),
				sl.Err(err),
			)
		}
	}()
}
