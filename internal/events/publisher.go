package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderItem mirrors one exported cart line.
type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// OrderSubmitted is emitted when a visitor hands their cart to the payment
// redirect. It is an audit trail, not an order record: the payment processor
// stays authoritative for final amounts.
type OrderSubmitted struct {
	SessionID   string      `json:"session_id"`
	Items       []OrderItem `json:"items"`
	ShippingFee string      `json:"shipping_fee,omitempty"`
	TotalAmount string      `json:"total_amount"`
	Currency    string      `json:"currency"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Publisher delivery is best-effort; callers log failures and move on.
type Publisher interface {
	PublishOrderSubmitted(ctx context.Context, event OrderSubmitted) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-orders",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderSubmitted(ctx context.Context, event OrderSubmitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID), // per-session ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order_submitted")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderSubmitted(context.Context, OrderSubmitted) error { return nil }
