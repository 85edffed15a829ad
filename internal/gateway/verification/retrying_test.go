package verifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"parcelhub/internal/retry"
	"parcelhub/internal/testutil/testlog"
)

type fakeGateway struct {
	fn func(context.Context, int64) (*Verification, error)
}

func (f *fakeGateway) GetByParcelID(ctx context.Context, id int64) (*Verification, error) {
	return f.fn(ctx, id)
}

type counterStub struct{ n int64 }

func (c *counterStub) Inc()         { atomic.AddInt64(&c.n, 1) }
func (c *counterStub) Count() int64 { return atomic.LoadInt64(&c.n) }

func TestNewRetryingGateway_NilNext(t *testing.T) {
	require.Nil(t, NewRetryingGateway(nil, testlog.New().Logger(), nil, retry.Config{}))
}

func TestRetryingGateway_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var calls int32
	next := &fakeGateway{fn: func(context.Context, int64) (*Verification, error) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return nil, status.Error(codes.Unavailable, "unavailable")
		case 2:
			return nil, status.Error(codes.DeadlineExceeded, "slow")
		default:
			return &Verification{ParcelID: 42}, nil
		}
	}}
	ctr := &counterStub{}
	g := NewRetryingGateway(next, rec.Logger(), ctr, retry.Config{MaxAttempts: 5})

	got, err := g.GetByParcelID(context.Background(), 42)
	require.NoError(t, err)
	require.EqualValues(t, 42, got.ParcelID)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.EqualValues(t, 2, ctr.Count())
	require.Len(t, rec.Find("verification gateway retry"), 2)
}

func TestRetryingGateway_NoRetryOnNonRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"invalid argument", status.Error(codes.InvalidArgument, "bad id")},
		{"plain error", errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			next := &fakeGateway{fn: func(context.Context, int64) (*Verification, error) {
				atomic.AddInt32(&calls, 1)
				return nil, tc.err
			}}
			ctr := &counterStub{}
			g := NewRetryingGateway(next, testlog.New().Logger(), ctr, retry.Config{MaxAttempts: 5})

			_, err := g.GetByParcelID(context.Background(), 1)
			require.ErrorIs(t, err, tc.err)
			require.EqualValues(t, 1, atomic.LoadInt32(&calls))
			require.Zero(t, ctr.Count())
		})
	}
}

func TestRetryingGateway_StopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls int32
	next := &fakeGateway{fn: func(context.Context, int64) (*Verification, error) {
		atomic.AddInt32(&calls, 1)
		return nil, status.Error(codes.ResourceExhausted, "busy")
	}}
	g := NewRetryingGateway(next, testlog.New().Logger(), nil, retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := g.GetByParcelID(context.Background(), 1)
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetryingGateway_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	next := &fakeGateway{fn: func(context.Context, int64) (*Verification, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return nil, status.Error(codes.Unavailable, "down")
	}}
	g := NewRetryingGateway(next, testlog.New().Logger(), nil, retry.Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})

	_, err := g.GetByParcelID(ctx, 1)
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
