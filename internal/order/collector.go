package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/metrics"
)

// CollectPolicy bounds one collection attempt. Timeout covers lock wait plus
// the retry loop; RetryDelay/MaxRetries model the gap between a message
// arriving and its photo upload completing.
type CollectPolicy struct {
	Timeout    time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

// DefaultCollectPolicy mirrors the production timings.
var DefaultCollectPolicy = CollectPolicy{
	Timeout:    30 * time.Second,
	RetryDelay: 2 * time.Second,
	MaxRetries: 3,
}

// OrderResolver looks up a live order by id.
type OrderResolver interface {
	Resolve(orderID string) (*Order, bool)
}

// Collector merges photos from admitted replies into their orders. At most
// one collection per order runs at a time; collections on distinct orders
// proceed fully in parallel. Locks are created lazily per order id and never
// evicted, which is fine for process-lifetime-bounded usage.
type Collector struct {
	resolver OrderResolver

	mu    sync.Mutex
	locks map[string]chan struct{}

	inflightMu sync.Mutex
	inflight   map[int64]struct{}

	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

func NewCollector(resolver OrderResolver, logger *zap.Logger) *Collector {
	return &Collector{
		resolver: resolver,
		locks:    make(map[string]chan struct{}),
		inflight: make(map[int64]struct{}),
		sleep:    sleepCtx,
		logger:   logger,
	}
}

// InFlight reports whether the message id is currently inside a collection
// critical section. The admission filter uses this to refuse duplicate
// admission of the same physical message.
func (c *Collector) InFlight(messageID int64) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	_, ok := c.inflight[messageID]
	return ok
}

// Collect merges the reply's photos into the order exactly once.
//
// The whole operation, lock wait included, is bounded by policy.Timeout.
// While holding the order's lock the reply's message id is marked in flight;
// the mark is removed on every exit path. If the reply has no photos yet the
// loop waits policy.RetryDelay and re-checks, up to policy.MaxRetries times.
// Returns the genuinely new photo references; already-known references are
// dropped silently. Timeout and "no photos" are retryable results that never
// lose progress from earlier collections.
func (c *Collector) Collect(ctx context.Context, orderID string, reply *Reply, policy CollectPolicy) ([]string, error) {
	o, ok := c.resolver.Resolve(orderID)
	if !ok {
		return nil, fmt.Errorf("collect %s: %w", orderID, ErrOrderNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	lock := c.orderLock(orderID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		c.logger.Warn("collection timed out waiting for order lock",
			zap.String("order_id", orderID),
			zap.Int64("message_id", reply.MessageID))
		return nil, fmt.Errorf("collect %s: %w", orderID, ErrCollectTimeout)
	}
	defer func() { <-lock }()

	c.markInFlight(reply.MessageID)
	defer c.unmarkInFlight(reply.MessageID)

	var collected []string
	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if photos := reply.Photos(); len(photos) > 0 {
			collected = photos
			break
		}
		if attempt == policy.MaxRetries-1 {
			c.logger.Warn("no photos found after retries",
				zap.String("order_id", orderID),
				zap.Int("retries", policy.MaxRetries))
			break
		}
		c.logger.Debug("no photos yet, waiting before retry",
			zap.String("order_id", orderID),
			zap.Duration("retry_delay", policy.RetryDelay),
			zap.Int("attempt", attempt+1))
		if err := c.sleep(ctx, policy.RetryDelay); err != nil {
			return nil, fmt.Errorf("collect %s: %w", orderID, ErrCollectTimeout)
		}
	}

	if len(collected) == 0 {
		return nil, fmt.Errorf("collect %s: %w", orderID, ErrNoPhotosFound)
	}

	fresh := o.MergePhotos(collected)
	if len(fresh) > 0 {
		metrics.PhotosCollectedTotal.Add(float64(len(fresh)))
		c.logger.Info("photos merged into order",
			zap.String("order_id", orderID),
			zap.Int("new", len(fresh)),
			zap.Int("total", o.PhotoCount()))
	} else {
		c.logger.Debug("all photos already present",
			zap.String("order_id", orderID))
	}
	return fresh, nil
}

func (c *Collector) orderLock(orderID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[orderID]
	if !ok {
		lock = make(chan struct{}, 1)
		c.locks[orderID] = lock
		metrics.OrderLocksActive.Set(float64(len(c.locks)))
		c.logger.Debug("created collection lock", zap.String("order_id", orderID))
	}
	return lock
}

func (c *Collector) markInFlight(messageID int64) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	c.inflight[messageID] = struct{}{}
}

func (c *Collector) unmarkInFlight(messageID int64) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	delete(c.inflight, messageID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
