package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/segmentio/kafka-go"
)

const eventOrderConfirmed = "order_confirmed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes rendered confirmations for the mail gateway to
// pick up. Messages are keyed by checkout id.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(topic string, brokers ...string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w}
}

type confirmationEvent struct {
	Email
	Order domain.OrderSummary `json:"order"`
}

func (n *KafkaNotifier) Send(ctx context.Context, email string, summary domain.OrderSummary) error {
	payload, err := json.Marshal(confirmationEvent{Email: Render(email, summary), Order: summary})
	if err != nil {
		return fmt.Errorf("marshal confirmation failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(summary.CheckoutID.String()),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventOrderConfirmed)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish confirmation failed: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
