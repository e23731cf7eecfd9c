package email

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/redmonkez12/diary-api/internal/logging"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Worker delivers queued email through a synchronous sender
type Worker struct {
	sender Sender
	logger *logging.Logger
}

func NewWorker(sender Sender, logger *logging.Logger) *Worker {
	return &Worker{sender: sender, logger: logger}
}

// Run processes deliveries one at a time until ctx is cancelled
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		w.logger.Error("dead-lettering malformed email message", "message_id", d.MessageId, "error", err)
		w.nack(d, w.logger, false)
		return
	}

	logger := w.logger.With("message_id", msg.ID)

	if _, err := w.sender.Send(ctx, msg.To, msg.Subject, msg.HTML, msg.Text); err != nil {
		// One redelivery, then the broker dead-letters it
		requeue := !d.Redelivered
		logger.Error("failed to deliver queued email", "error", err, "requeue", requeue)
		w.nack(d, logger, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Warn("failed to ack delivered email", "error", err)
	}
	logger.Info("queued email delivered", "queued_for", time.Since(msg.EnqueuedAt).Round(time.Millisecond))
}

func (w *Worker) nack(d amqp.Delivery, logger *logging.Logger, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		logger.Warn("failed to nack email message", "requeue", requeue, "error", err)
	}
}
