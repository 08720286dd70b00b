package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// SaleRecordedEvent is the wire shape published after a sale commits.
type SaleRecordedEvent struct {
	SaleID     string          `json:"sale_id"`
	ReceiptID  string          `json:"receipt_id"`
	Cashier    string          `json:"cashier,omitempty"`
	TotalCents int64           `json:"total_cents"`
	Lines      []SaleLineEvent `json:"lines"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type SaleLineEvent struct {
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

// KafkaPublisher publishes sale events to Kafka with a synchronous,
// idempotent producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic, clientID string, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) PublishSaleRecorded(ctx context.Context, sale *domain.SaleTransaction) error {
	event := SaleRecordedEvent{
		SaleID:     sale.ID,
		ReceiptID:  sale.ReceiptID,
		Cashier:    sale.CashierName,
		TotalCents: sale.TotalCents,
		OccurredAt: sale.CreatedAt,
	}
	for _, line := range sale.Lines {
		event.Lines = append(event.Lines, SaleLineEvent{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			SubtotalCents: line.SubtotalCents,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sale event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(sale.ID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte("SaleRecorded")},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("send sale event: %w", err)
	}

	p.logger.Info("sale event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("sale_id", sale.ID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher discards events. Used in tests and when Kafka is not
// configured.
type NopPublisher struct{}

func NewNopPublisher() NopPublisher { return NopPublisher{} }

func (NopPublisher) PublishSaleRecorded(ctx context.Context, sale *domain.SaleTransaction) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
