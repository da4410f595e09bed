package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/metrics"
)

// Parser turns raw submitted text into a validated amount and category.
// Amount 0 / empty category mean "could not be determined"; the diagnostic
// is a human-readable message naming the missing pieces.
type Parser interface {
	ExtractOrder(text string) (amount int, category string, diagnostic string)
	IsWellFormed(text string) bool
}

// Manager owns all order and reply state and wires the admission filter,
// collector and deliverer together. It is the only component that creates or
// looks up orders; everything else borrows a reference under the order's
// lock.
type Manager struct {
	mu      sync.RWMutex
	orders  map[string]*Order
	replies map[string][]*Reply

	parser    Parser
	admission *AdmissionFilter
	collector *Collector
	deliverer *Deliverer

	collectPolicy CollectPolicy
	timeNow       func() time.Time
	logger        *zap.Logger
}

func NewManager(parser Parser, logger *zap.Logger) *Manager {
	m := &Manager{
		orders:        make(map[string]*Order),
		replies:       make(map[string][]*Reply),
		parser:        parser,
		collectPolicy: DefaultCollectPolicy,
		timeNow:       time.Now,
		logger:        logger,
	}
	m.collector = NewCollector(m, logger)
	m.admission = NewAdmissionFilter(m.collector, nil, logger)
	m.deliverer = NewDeliverer(m, logger)
	return m
}

// Resolve implements OrderResolver.
func (m *Manager) Resolve(orderID string) (*Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	return o, ok
}

// CreateOrder validates the submitted text and stores a new pending order.
// A reused id is ErrDuplicateOrder; text whose amount or category cannot be
// resolved is an InvalidOrderError naming exactly the missing fields.
func (m *Manager) CreateOrder(id, text string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; ok {
		m.logger.Warn("duplicate order id", zap.String("order_id", id))
		return nil, fmt.Errorf("order %s: %w", id, ErrDuplicateOrder)
	}

	amount, category, diagnostic := m.parser.ExtractOrder(text)
	if amount == 0 || category == "" {
		m.logger.Warn("order text did not validate",
			zap.String("order_id", id),
			zap.Bool("missing_amount", amount == 0),
			zap.Bool("missing_category", category == ""))
		return nil, &InvalidOrderError{
			MissingAmount:   amount == 0,
			MissingCategory: category == "",
			Diagnostic:      diagnostic,
		}
	}

	cat := Category(category)
	if !cat.Valid() {
		return nil, &InvalidOrderError{
			MissingCategory: true,
			Diagnostic:      fmt.Sprintf("unknown order category %q", category),
		}
	}

	if !m.parser.IsWellFormed(text) {
		return nil, &InvalidOrderError{
			Diagnostic: "invalid order format: expected at least 3 lines and a contact email",
		}
	}

	o := &Order{
		ID:        id,
		Text:      text,
		Amount:    amount,
		Category:  cat,
		CreatedAt: m.timeNow(),
		status:    StatusPending,
	}
	m.orders[id] = o

	metrics.OrdersCreatedTotal.Inc()
	m.logger.Info("order created",
		zap.String("order_id", id),
		zap.Int("amount", amount),
		zap.String("category", category))
	return o, nil
}

// Status returns a read-only snapshot of the order, or false if unknown.
func (m *Manager) Status(orderID string) (*StatusSnapshot, bool) {
	m.mu.RLock()
	o, ok := m.orders[orderID]
	replyCount := len(m.replies[orderID])
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return o.snapshot(replyCount), true
}

// UpdateStatus moves the order to an explicit lifecycle status.
func (m *Manager) UpdateStatus(orderID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("order %s: invalid status %q", orderID, status)
	}
	o, ok := m.Resolve(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	o.SetStatus(status)
	m.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// ExpectReplyTo records the outbound message id the order now waits on.
func (m *Manager) ExpectReplyTo(orderID string, messageID int64) error {
	o, ok := m.Resolve(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	o.ReplyMessageID = messageID
	return nil
}

// ProcessReply runs a worker reply through admission, assigns the worker on
// first acceptance, records the reply and, if it carries photos, hands it to
// the collector. An admission decline comes back as ReplyRejectedError — a
// normal outcome, distinct from system errors.
func (m *Manager) ProcessReply(ctx context.Context, orderID string, reply *Reply) (string, error) {
	o, ok := m.Resolve(orderID)
	if !ok {
		return "", fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}

	if rej := m.admission.Check(reply, o); rej != nil {
		return "", rej
	}
	metrics.RepliesAcceptedTotal.Inc()

	if o.AssignWorker(reply.UserID) {
		m.logger.Info("worker assigned to order",
			zap.String("order_id", orderID),
			zap.Int64("worker_id", reply.UserID))
	}

	m.mu.Lock()
	m.replies[orderID] = append(m.replies[orderID], reply)
	total := len(m.replies[orderID])
	m.mu.Unlock()
	m.logger.Debug("reply recorded",
		zap.String("order_id", orderID),
		zap.Int("replies", total))

	if !reply.HasPhotos() {
		return "reply recorded", nil
	}

	fresh, err := m.collector.Collect(ctx, orderID, reply, m.collectPolicy)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("collected %d new photos", len(fresh)), nil
}

// Collect exposes the collection coordinator for callers that manage their
// own policy.
func (m *Manager) Collect(ctx context.Context, orderID string, reply *Reply, policy CollectPolicy) ([]string, error) {
	return m.collector.Collect(ctx, orderID, reply, policy)
}

// Deliver pushes the order's collected photos to destination via send.
func (m *Manager) Deliver(ctx context.Context, orderID, destination string, send SendFunc, policy DeliveryPolicy) (*DeliverySummary, error) {
	return m.deliverer.Deliver(ctx, orderID, destination, send, policy)
}

// Replies returns the recorded reply history for an order, oldest first.
func (m *Manager) Replies(orderID string) []*Reply {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Reply, len(m.replies[orderID]))
	copy(out, m.replies[orderID])
	return out
}
