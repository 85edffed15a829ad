package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/IBM/sarama"

	"parcelhub/internal/domain"
)

var newSyncProducer = sarama.NewSyncProducer

// Publisher sends committed parcel events to Kafka, keyed by parcel id so a
// parcel's history stays ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Publisher. It returns (nil, nil) when Kafka is not configured.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 3
	cfg.Net.MaxOpenRequests = 1

	p, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{producer: p, topic: topic}, nil
}

// PublishParcelEvent implements parcel.Publisher.
func (p *Publisher) PublishParcelEvent(ctx context.Context, e domain.ParcelEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(FromParcelEvent(e))
	if err != nil {
		return fmt.Errorf("encode parcel event %d: %w", e.ID, err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(e.ParcelID, 10)),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("parcel." + strings.ToLower(string(e.ToStatus)))},
		},
	})
	if err != nil {
		return fmt.Errorf("publish parcel event %d: %w", e.ID, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
