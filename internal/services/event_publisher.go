package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"alo17-service/internal/models"

	"github.com/IBM/sarama"
)

// Event kinds published to the notification pipeline.
const (
	EventKindChatMessage   = "chat.message"
	EventKindPaymentStatus = "payment.status"
)

// KafkaEventPublisher emits domain events consumed by the push/email
// notification workers.
type KafkaEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaEventPublisher(producer sarama.SyncProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

type eventEnvelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (p *KafkaEventPublisher) publish(key, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	value, err := json.Marshal(eventEnvelope{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	})
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key), // hash partitioner keeps per-key order
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return err
	}

	slog.Debug("Event published", "kind", kind, "key", key, "partition", partition, "offset", offset)
	return nil
}

// PublishChatMessage emits a chat.message event keyed by room so events
// for one conversation stay ordered.
func (p *KafkaEventPublisher) PublishChatMessage(_ context.Context, message *models.Message) error {
	return p.publish(message.RoomID, EventKindChatMessage, message.ToResponse())
}

// PublishPaymentStatus emits a payment.status event keyed by merchant
// order id.
func (p *KafkaEventPublisher) PublishPaymentStatus(_ context.Context, merchantOID string, status models.PaymentStatus) error {
	return p.publish(merchantOID, EventKindPaymentStatus, map[string]string{
		"merchantOid": merchantOID,
		"status":      status.String(),
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
