//go:generate mockgen -source ./storage.go -destination=./mocks/storage.go -package=mock_storage
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veligut/fulfillbot/internal/repository"
)

// OrderRecordRepository is the durable store of order bookkeeping rows.
type OrderRecordRepository interface {
	Create(ctx context.Context, rec *repository.OrderRecord) error
	GetByID(ctx context.Context, id string) (*repository.OrderRecord, error)
	Update(ctx context.Context, rec *repository.OrderRecord) error
	GetByUserID(ctx context.Context, userID string, limit int) ([]*repository.OrderRecord, error)
}

// UserRepository stores operator credentials.
type UserRepository interface {
	CreateUser(ctx context.Context, username, password string) error
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

// OrderRecord is the storage-layer view of a durable order row.
type OrderRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Amount     int       `json:"amount"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	WorkerID   int64     `json:"worker_id,omitempty"`
	PhotoCount int       `json:"photo_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordStore is the create/read/update record-store facade over the order
// repository. It carries no coordination logic; the live order state lives
// in the order manager.
type RecordStore struct {
	orderRepo OrderRecordRepository
	timeNow   func() time.Time
}

func NewRecordStore(orderRepo OrderRecordRepository) *RecordStore {
	return &RecordStore{
		orderRepo: orderRepo,
		timeNow:   time.Now,
	}
}

func (s *RecordStore) SaveOrder(ctx context.Context, rec OrderRecord) error {
	now := s.timeNow().UTC()
	repoRec := toRepoRecord(rec)
	repoRec.CreatedAt = now
	repoRec.UpdatedAt = now

	if err := s.orderRepo.Create(ctx, repoRec); err != nil {
		return fmt.Errorf("failed to save order record: %w", err)
	}
	return nil
}

func (s *RecordStore) GetOrder(ctx context.Context, orderID string) (*OrderRecord, error) {
	repoRec, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("order record %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to get order record: %w", err)
	}
	rec := fromRepoRecord(repoRec)
	return &rec, nil
}

// UpdateOrderProgress persists the latest lifecycle status, worker and photo
// count for an order.
func (s *RecordStore) UpdateOrderProgress(ctx context.Context, orderID, status string, workerID int64, photoCount int) error {
	repoRec, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return fmt.Errorf("order record %s not found", orderID)
		}
		return fmt.Errorf("failed to get order record: %w", err)
	}

	repoRec.Status = status
	repoRec.PhotoCount = photoCount
	repoRec.UpdatedAt = s.timeNow().UTC()
	if workerID != 0 {
		repoRec.WorkerID = &workerID
	}

	if err := s.orderRepo.Update(ctx, repoRec); err != nil {
		return fmt.Errorf("failed to update order record: %w", err)
	}
	return nil
}

func (s *RecordStore) GetUserOrders(ctx context.Context, userID string, lastN int) ([]OrderRecord, error) {
	repoRecs, err := s.orderRepo.GetByUserID(ctx, userID, lastN)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}

	recs := make([]OrderRecord, len(repoRecs))
	for i, repoRec := range repoRecs {
		recs[i] = fromRepoRecord(repoRec)
	}
	return recs, nil
}

func toRepoRecord(rec OrderRecord) *repository.OrderRecord {
	repoRec := &repository.OrderRecord{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Text:       rec.Text,
		Amount:     rec.Amount,
		Category:   rec.Category,
		Status:     rec.Status,
		PhotoCount: rec.PhotoCount,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if rec.WorkerID != 0 {
		workerID := rec.WorkerID
		repoRec.WorkerID = &workerID
	}
	return repoRec
}

func fromRepoRecord(repoRec *repository.OrderRecord) OrderRecord {
	rec := OrderRecord{
		ID:         repoRec.ID,
		UserID:     repoRec.UserID,
		Text:       repoRec.Text,
		Amount:     repoRec.Amount,
		Category:   repoRec.Category,
		Status:     repoRec.Status,
		PhotoCount: repoRec.PhotoCount,
		CreatedAt:  repoRec.CreatedAt,
		UpdatedAt:  repoRec.UpdatedAt,
	}
	if repoRec.WorkerID != nil {
		rec.WorkerID = *repoRec.WorkerID
	}
	return rec
}
