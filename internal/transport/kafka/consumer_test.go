package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/service/verification"
	"parcelhub/internal/testutil/testlog"
)

type fakeGroup struct {
	calls  int
	errs   []error
	cancel context.CancelFunc
	closed bool
}

func (g *fakeGroup) Consume(context.Context, []string, sarama.ConsumerGroupHandler) error {
	g.calls++
	var err error
	if len(g.errs) > 0 {
		err, g.errs = g.errs[0], g.errs[1:]
	}
	if len(g.errs) == 0 && g.cancel != nil {
		g.cancel()
	}
	return err
}

func (g *fakeGroup) Errors() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}

func (g *fakeGroup) Close() error { g.closed = true; return nil }

func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func TestNewConsumer_SkipsWhenNoKafkaConfig(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	got, err := NewConsumer(rec.Logger(), nil, "gid", "topic", func(context.Context, verification.Event) error { return nil })
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "", "topic", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "gid", "   ", nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestNewConsumer_ReturnsErrorWhenSaramaFails(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	sentinel := errors.New("boom")
	newConsumerGroup = func(_ []string, _ string, _ *sarama.Config) (sarama.ConsumerGroup, error) {
		return nil, sentinel
	}

	got, err := NewConsumer(testlog.New().Logger(), []string{"b:9092"}, "gid", "topic", nil)
	require.ErrorIs(t, err, sentinel)
	require.Nil(t, got)
}

func TestConsumer_RunRestartsAfterConsumeError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := testlog.New()
	g := &fakeGroup{errs: []error{errors.New("rebalance"), nil}, cancel: cancel}
	c := &Consumer{group: g, topic: "verifications", logger: rec.Logger(), backoff: time.Millisecond}

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, g.calls)
	require.Len(t, rec.Find("kafka consume error"), 1)

	require.NoError(t, c.Close())
	require.True(t, g.closed)
}

func TestConsumer_RestartPauseGrowsWithConsecutiveFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := testlog.New()
	boom := errors.New("broker gone")
	g := &fakeGroup{errs: []error{boom, boom, boom, nil}, cancel: cancel}
	c := &Consumer{group: g, topic: "verifications", logger: rec.Logger(), backoff: time.Millisecond}

	require.ErrorIs(t, c.Run(ctx), context.Canceled)

	var pauses []any
	for _, e := range rec.Find("kafka consume error") {
		d, _ := e.Field("restart_in")
		pauses = append(pauses, d)
	}
	require.Equal(t, []any{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, pauses)
}

func TestConsumer_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Consumer
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())
}
