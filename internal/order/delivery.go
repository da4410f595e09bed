package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/metrics"
)

// SendFunc transmits one photo reference to a destination. Implementations
// are expected to honor ctx, but the engine bounds each call regardless.
type SendFunc func(ctx context.Context, destination, photo string) error

// DeliveryPolicy bounds each individual send.
type DeliveryPolicy struct {
	SendTimeout    time.Duration
	RetryOnFailure bool
	MaxRetries     int
}

// DefaultDeliveryPolicy mirrors the production timings.
var DefaultDeliveryPolicy = DeliveryPolicy{
	SendTimeout:    60 * time.Second,
	RetryOnFailure: true,
	MaxRetries:     3,
}

// DeliverySummary accounts for one delivery run.
type DeliverySummary struct {
	OrderID     string `json:"order_id"`
	Destination string `json:"destination"`
	Total       int    `json:"total"`
	Delivered   int    `json:"delivered"`
	Failed      int    `json:"failed"`
}

func (s *DeliverySummary) AllDelivered() bool { return s.Delivered == s.Total }
func (s *DeliverySummary) Partial() bool      { return s.Delivered > 0 && s.Failed > 0 }

// Deliverer pushes an order's collected photos to a destination, one at a
// time in stored order. Delivery is deliberately not transactional: a prefix
// may be delivered even if a later photo fails permanently, and re-invoking
// re-sends everything (at-least-once, duplicates at the destination are
// accepted).
type Deliverer struct {
	resolver OrderResolver
	sleep    func(ctx context.Context, d time.Duration) error

	// backoffUnit scales the 2^attempt wait between retries. Tests swap
	// it for zero.
	backoffUnit time.Duration
	logger      *zap.Logger
}

func NewDeliverer(resolver OrderResolver, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		resolver:    resolver,
		sleep:       sleepCtx,
		backoffUnit: time.Second,
		logger:      logger,
	}
}

// Deliver sends every collected photo of the order to destination via send.
// Each send is bounded by policy.SendTimeout; failures are retried with
// exponential backoff while retries remain and policy.RetryOnFailure is set,
// then counted as failed without aborting the rest. Zero delivered photos is
// ErrDeliveryFailed; a partial run is a success whose summary reports the
// failed count.
func (d *Deliverer) Deliver(ctx context.Context, orderID, destination string, send SendFunc, policy DeliveryPolicy) (*DeliverySummary, error) {
	o, ok := d.resolver.Resolve(orderID)
	if !ok {
		return nil, fmt.Errorf("deliver %s: %w", orderID, ErrOrderNotFound)
	}

	photos := o.Photos()
	if len(photos) == 0 {
		return nil, fmt.Errorf("deliver %s: %w", orderID, ErrNoPhotos)
	}

	summary := &DeliverySummary{
		OrderID:     orderID,
		Destination: destination,
		Total:       len(photos),
	}

	d.logger.Info("delivering photos",
		zap.String("order_id", orderID),
		zap.String("destination", destination),
		zap.Int("count", len(photos)))

	for idx, photo := range photos {
		if err := ctx.Err(); err != nil {
			summary.Failed = summary.Total - summary.Delivered
			return summary, fmt.Errorf("deliver %s: %w", orderID, err)
		}
		if d.deliverOne(ctx, destination, photo, idx, summary.Total, send, policy) {
			summary.Delivered++
			metrics.PhotosDeliveredTotal.Inc()
		} else {
			summary.Failed++
			metrics.PhotosFailedTotal.Inc()
		}
	}

	switch {
	case summary.Delivered == 0:
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		d.logger.Error("delivery failed for every photo", zap.String("order_id", orderID))
		return summary, fmt.Errorf("deliver %s: %w", orderID, ErrDeliveryFailed)
	case summary.Failed > 0:
		metrics.DeliveriesTotal.WithLabelValues("partial").Inc()
		d.logger.Warn("partial delivery",
			zap.String("order_id", orderID),
			zap.Int("delivered", summary.Delivered),
			zap.Int("failed", summary.Failed))
	default:
		metrics.DeliveriesTotal.WithLabelValues("success").Inc()
		d.logger.Info("all photos delivered",
			zap.String("order_id", orderID),
			zap.Int("delivered", summary.Delivered))
	}
	return summary, nil
}

func (d *Deliverer) deliverOne(ctx context.Context, destination, photo string, idx, total int, send SendFunc, policy DeliveryPolicy) bool {
	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		err := d.sendBounded(ctx, destination, photo, send, policy.SendTimeout)
		if err == nil {
			d.logger.Debug("photo delivered",
				zap.String("destination", destination),
				zap.Int("index", idx+1),
				zap.Int("total", total))
			return true
		}

		d.logger.Warn("photo send failed",
			zap.String("destination", destination),
			zap.Int("index", idx+1),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if !policy.RetryOnFailure || attempt == policy.MaxRetries-1 {
			return false
		}
		backoff := time.Duration(1<<uint(attempt+1)) * d.backoffUnit
		if err := d.sleep(ctx, backoff); err != nil {
			return false
		}
	}
	return false
}

// sendBounded runs send in its own goroutine so a transport that ignores
// context cannot stall the whole delivery run.
func (d *Deliverer) sendBounded(ctx context.Context, destination, photo string, send SendFunc, timeout time.Duration) error {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- send(sctx, destination, photo)
	}()

	select {
	case err := <-done:
		return err
	case <-sctx.Done():
		return sctx.Err()
	}
}
