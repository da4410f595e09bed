package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapResolver map[string]*Order

func (m mapResolver) Resolve(orderID string) (*Order, bool) {
	o, ok := m[orderID]
	return o, ok
}

func fastPolicy() CollectPolicy {
	return CollectPolicy{Timeout: 5 * time.Second, RetryDelay: time.Millisecond, MaxRetries: 3}
}

func TestCollector_OrderNotFound(t *testing.T) {
	c := NewCollector(mapResolver{}, zap.NewNop())

	_, err := c.Collect(context.Background(), "missing", NewReply(7, 1, 0, "", time.Now(), []string{"a.jpg"}), fastPolicy())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCollector_MergeIsIdempotent(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	fresh, err := c.Collect(context.Background(), "o1", NewReply(7, 1, 0, "", time.Now(), []string{"a.jpg"}), fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, fresh)

	// Same reference again, different reply: silently dropped.
	fresh, err = c.Collect(context.Background(), "o1", NewReply(8, 2, 0, "", time.Now(), []string{"a.jpg", "b.jpg"}), fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, fresh)

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, o.Photos())
}

func TestCollector_ConcurrentDisjointCollects(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reply := NewReply(int64(i+1), int64(100+i), 0, "", time.Now(), []string{fmt.Sprintf("photo-%d.jpg", i)})
			_, errs[i] = c.Collect(context.Background(), "o1", reply, fastPolicy())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "collect %d", i)
	}
	assert.Len(t, o.Photos(), n, "no update may be lost")
}

func TestCollector_RetriesUntilPhotosArrive(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	reply := NewReply(7, 1, 0, "uploading, one moment", time.Now(), nil)
	sleeps := 0
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		// The upload completes while the collector is waiting.
		reply.AttachPhotos("late.jpg")
		return nil
	}

	fresh, err := c.Collect(context.Background(), "o1", reply, fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"late.jpg"}, fresh)
	assert.Equal(t, 1, sleeps)
}

func TestCollector_NoPhotosAfterRetries(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	o.MergePhotos([]string{"existing.jpg"})
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	sleeps := 0
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	_, err := c.Collect(context.Background(), "o1", NewReply(7, 1, 0, "still uploading", time.Now(), nil), fastPolicy())
	assert.ErrorIs(t, err, ErrNoPhotosFound)
	assert.Equal(t, 2, sleeps, "MaxRetries-1 waits before giving up")

	// Prior progress is untouched by the failed collection.
	assert.Equal(t, []string{"existing.jpg"}, o.Photos())
	assert.False(t, c.InFlight(1), "in-flight marker must be released")
}

func TestCollector_TimeoutWaitingForLock(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	// Another collection holds the order's lock.
	lock := c.orderLock("o1")
	lock <- struct{}{}
	defer func() { <-lock }()

	policy := CollectPolicy{Timeout: 10 * time.Millisecond, RetryDelay: time.Millisecond, MaxRetries: 3}
	_, err := c.Collect(context.Background(), "o1", NewReply(7, 1, 0, "", time.Now(), []string{"a.jpg"}), policy)
	assert.ErrorIs(t, err, ErrCollectTimeout)
	assert.False(t, c.InFlight(1))
}

func TestCollector_TimeoutDuringRetryWait(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	policy := CollectPolicy{Timeout: 10 * time.Millisecond, RetryDelay: time.Second, MaxRetries: 3}
	_, err := c.Collect(context.Background(), "o1", NewReply(7, 1, 0, "still uploading", time.Now(), nil), policy)
	assert.ErrorIs(t, err, ErrCollectTimeout)
	assert.False(t, c.InFlight(1), "marker released on the timeout path")
}

func TestCollector_MarksMessageInFlightDuringCollection(t *testing.T) {
	o := &Order{ID: "o1", status: StatusPending}
	c := NewCollector(mapResolver{"o1": o}, zap.NewNop())

	observed := make(chan bool, 4)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		observed <- c.InFlight(1)
		return nil
	}

	_, err := c.Collect(context.Background(), "o1", NewReply(7, 1, 0, "uploading", time.Now(), nil), fastPolicy())
	assert.ErrorIs(t, err, ErrNoPhotosFound)
	assert.True(t, <-observed, "message id is in flight inside the critical section")
	assert.False(t, c.InFlight(1), "and released afterwards")
}
