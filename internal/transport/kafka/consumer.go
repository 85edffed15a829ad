package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"parcelhub/internal/logx"
	"parcelhub/internal/retry"
	"parcelhub/internal/service/verification"
)

// HandleFunc processes a single verification.Event from Kafka
type HandleFunc func(context.Context, verification.Event) error

var newConsumerGroup = sarama.NewConsumerGroup

const maxRestartPause = 30 * time.Second

// Consumer wraps a Sarama consumer group and dispatches events to a handler
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	logger  logx.Logger
	handler HandleFunc
	backoff time.Duration
}

// NewConsumer creates a new Kafka consumer. It returns (nil, nil) when Kafka is not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		logger:  logger,
		handler: h,
		backoff: time.Second,
	}, nil
}

// Run consumes until ctx is done. A failed session is restarted after a growing
// pause, which redelivers unmarked messages.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}
	failures := 0
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, []string{c.topic}, h)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			break
		}
		failures++
		pause := retry.Backoff(c.backoff, maxRestartPause, failures)
		c.logger.Warn("kafka consume error",
			logx.String("topic", c.topic),
			logx.Int("failures", failures),
			logx.Duration("restart_in", pause),
			logx.Err(err),
		)
		if !retry.Sleep(ctx, pause) {
			break
		}
	}
	return ctx.Err()
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.process(sess.Context(), msg); err != nil {
			// Leave the offset unmarked; the restarted session redelivers it.
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// process returns an error only when the message must be redelivered.
func (h *groupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	log := h.c.logger.With(
		logx.String("topic", msg.Topic),
		logx.Int("partition", int(msg.Partition)),
		logx.Int64("offset", msg.Offset),
	)

	var dto VerificationDTO
	if err := json.Unmarshal(msg.Value, &dto); err != nil {
		log.Warn("kafka bad json, skipping message", logx.Err(err))
		return nil
	}
	ev := ToDomain(dto)
	if ev.ParcelID <= 0 {
		log.Warn("kafka message without parcel_id, skipping")
		return nil
	}

	err := h.c.handler(ctx, ev)
	switch {
	case err == nil:
		return nil
	case IsPermanent(err):
		log.Warn("kafka handle failed, skipping message",
			logx.Int64("parcel_id", ev.ParcelID),
			logx.String("event", ev.Event),
			logx.Err(err),
		)
		return nil
	default:
		log.Error("kafka handle failed, will retry",
			logx.Int64("parcel_id", ev.ParcelID),
			logx.String("event", ev.Event),
			logx.Err(err),
		)
		return err
	}
}
