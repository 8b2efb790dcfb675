// README: Kafka transition event stream.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"mandado/internal/modules/order"
)

type transitionEvent struct {
	OrderID    string    `json:"order_id"`
	BusinessID string    `json:"business_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorRole  string    `json:"actor_role"`
	ActorID    string    `json:"actor_id"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaSink appends committed transitions to a topic, keyed by order id so a
// single order's events stay in partition order.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (s *KafkaSink) Publish(ctx context.Context, ev order.Event) error {
	payload, err := json.Marshal(transitionEvent{
		OrderID:    string(ev.OrderID),
		BusinessID: string(ev.BusinessID),
		FromStatus: string(ev.FromStatus),
		ToStatus:   string(ev.ToStatus),
		ActorRole:  string(ev.ActorRole),
		ActorID:    string(ev.ActorID),
		Note:       ev.Note,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: payload,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
