package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/domain"
)

func TestNewPublisher_SkipsWhenNoKafkaConfig(t *testing.T) {
	t.Parallel()

	p, err := NewPublisher(nil, "parcel-events")
	require.NoError(t, err)
	require.Nil(t, p)
	require.NoError(t, p.Close())

	p, err = NewPublisher([]string{"b:9092"}, " ")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestPublisher_SendsKeyedJSON(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		require.Equal(t, "parcel-events", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, "5", string(key))
		body, err := msg.Value.Encode()
		require.NoError(t, err)
		var dto ParcelEventDTO
		require.NoError(t, json.Unmarshal(body, &dto))
		require.Equal(t, "DELIVERED", dto.ToStatus)
		require.Equal(t, []byte("parcel.delivered"), msg.Headers[0].Value)
		return nil
	})
	p := &Publisher{producer: producer, topic: "parcel-events"}

	err := p.PublishParcelEvent(context.Background(), domain.ParcelEvent{
		ID: 1, ParcelID: 5, FromStatus: domain.StatusOutForDelivery, ToStatus: domain.StatusDelivered,
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublisher_WrapsSendError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("leader not available")
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sentinel)
	p := &Publisher{producer: producer, topic: "parcel-events"}

	err := p.PublishParcelEvent(context.Background(), domain.ParcelEvent{ID: 2, ParcelID: 5, ToStatus: domain.StatusInHub})
	require.ErrorIs(t, err, sentinel)
	require.ErrorContains(t, err, "publish parcel event 2")
	require.NoError(t, p.Close())
}

func TestPublisher_CancelledContext(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	p := &Publisher{producer: producer, topic: "parcel-events"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.PublishParcelEvent(ctx, domain.ParcelEvent{}), context.Canceled)
	require.NoError(t, p.Close())
}
