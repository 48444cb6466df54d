package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/contacts_api/pkg/notify"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer delivers notification events from the bus. Every message is
// committed after one delivery attempt, so a broken mailbox never stalls the
// partition.
type Consumer struct {
	Reader messageReader
	Sender notify.Sender
	Log    *slog.Logger
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

func (c *Consumer) Run(ctx context.Context) error {
	l := c.Log
	if l == nil {
		l = slog.Default()
	}

	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}

		c.handle(ctx, l, msg)

		if err := c.Reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Error("commit_failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, l *slog.Logger, msg kafka.Message) {
	n, err := notify.Decode(msg.Value)
	if err != nil {
		l.Warn("notification_skipped", "offset", msg.Offset, "reason", "malformed event", "error", err)
		return
	}

	if err := c.Sender.Send(ctx, n); err != nil {
		l.Error("notification_failed", "purpose", n.Purpose, "email", n.Email, "error", err)
		return
	}
	l.Info("notification_sent", "purpose", n.Purpose, "email", n.Email)
}
