package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes notifications to a topic; the mailer service consumes
// them and performs the delivery.
type KafkaSender struct {
	writer messageWriter
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (k *KafkaSender) Send(ctx context.Context, n Notification) error {
	data, err := Encode(n)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(n.Email),
		Value: data,
		Headers: []kafka.Header{
			{Key: "purpose", Value: []byte(n.Purpose)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
