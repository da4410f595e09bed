package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDeliveryFixture(t *testing.T, photos ...string) (*Order, *Deliverer) {
	t.Helper()
	o := &Order{ID: "o1", status: StatusAssigned}
	o.MergePhotos(photos)
	d := NewDeliverer(mapResolver{"o1": o}, zap.NewNop())
	d.sleep = func(ctx context.Context, dur time.Duration) error { return nil }
	return o, d
}

func noRetryPolicy() DeliveryPolicy {
	return DeliveryPolicy{SendTimeout: time.Second, RetryOnFailure: false, MaxRetries: 1}
}

func TestDeliver_OrderNotFound(t *testing.T) {
	d := NewDeliverer(mapResolver{}, zap.NewNop())
	_, err := d.Deliver(context.Background(), "missing", "dest-1", nil, noRetryPolicy())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeliver_NoPhotos(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	d := NewDeliverer(mapResolver{"o1": o}, zap.NewNop())
	_, err := d.Deliver(context.Background(), "o1", "dest-1", nil, noRetryPolicy())
	assert.ErrorIs(t, err, ErrNoPhotos)
}

func TestDeliver_AllSucceed(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg", "b.jpg")

	var sent []string
	send := func(ctx context.Context, destination, photo string) error {
		assert.Equal(t, "dest-1", destination)
		sent = append(sent, photo)
		return nil
	}

	summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, noRetryPolicy())
	require.NoError(t, err)
	assert.True(t, summary.AllDelivered())
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, sent, "photos go out sequentially in stored order")
}

func TestDeliver_PartialFailureIsSuccessWithWarning(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg", "b.jpg", "c.jpg")

	calls := 0
	send := func(ctx context.Context, destination, photo string) error {
		calls++
		if calls == 2 {
			return errors.New("connection reset")
		}
		return nil
	}

	summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, noRetryPolicy())
	require.NoError(t, err, "partial delivery is not an error")
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.Partial())
	assert.False(t, summary.AllDelivered())
}

func TestDeliver_TotalFailure(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg", "b.jpg")

	send := func(ctx context.Context, destination, photo string) error {
		return errors.New("network unreachable")
	}

	summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, noRetryPolicy())
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Delivered)
	assert.Equal(t, 2, summary.Failed)
}

func TestDeliver_ExponentialBackoffBetweenRetries(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg")
	d.backoffUnit = time.Millisecond

	var backoffs []time.Duration
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		backoffs = append(backoffs, dur)
		return nil
	}

	attempts := 0
	send := func(ctx context.Context, destination, photo string) error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout")
		}
		return nil
	}

	policy := DeliveryPolicy{SendTimeout: time.Second, RetryOnFailure: true, MaxRetries: 3}
	summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, policy)
	require.NoError(t, err)
	assert.True(t, summary.AllDelivered())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, backoffs)
}

func TestDeliver_SendBoundedByTimeout(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg")

	// A transport that ignores context entirely.
	send := func(ctx context.Context, destination, photo string) error {
		time.Sleep(5 * time.Second)
		return nil
	}

	policy := DeliveryPolicy{SendTimeout: 10 * time.Millisecond, RetryOnFailure: false, MaxRetries: 1}
	start := time.Now()
	summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, policy)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Failed)
	assert.Less(t, time.Since(start), time.Second, "a stuck send must not stall the run")
}

func TestDeliver_ReinvocationResendsEverything(t *testing.T) {
	_, d := newDeliveryFixture(t, "a.jpg", "b.jpg")

	var sent []string
	send := func(ctx context.Context, destination, photo string) error {
		sent = append(sent, photo)
		return nil
	}

	for i := 0; i < 2; i++ {
		summary, err := d.Deliver(context.Background(), "o1", "dest-1", send, noRetryPolicy())
		require.NoError(t, err)
		assert.True(t, summary.AllDelivered())
	}
	assert.Equal(t, []string{"a.jpg", "b.jpg", "a.jpg", "b.jpg"}, sent,
		"delivery is at-least-once, not idempotent")
}
