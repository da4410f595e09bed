package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/veligut/fulfillbot/internal/repository"
	mock_storage "github.com/veligut/fulfillbot/internal/storage/mocks"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRecordStore(t *testing.T) (*RecordStore, *mock_storage.MockOrderRecordRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mock_storage.NewMockOrderRecordRepository(ctrl)
	store := NewRecordStore(repo)
	store.timeNow = func() time.Time { return testNow }
	return store, repo
}

func TestRecordStore_SaveOrder(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *repository.OrderRecord) error {
			assert.Equal(t, "order-1", rec.ID)
			assert.Equal(t, "user-1", rec.UserID)
			assert.Equal(t, 5000, rec.Amount)
			assert.Equal(t, "unsafe", rec.Category)
			assert.Equal(t, testNow, rec.CreatedAt)
			assert.Equal(t, testNow, rec.UpdatedAt)
			assert.Nil(t, rec.WorkerID)
			return nil
		})

	err := store.SaveOrder(context.Background(), OrderRecord{
		ID:       "order-1",
		UserID:   "user-1",
		Text:     "Need 5000 cp unsafe",
		Amount:   5000,
		Category: "unsafe",
		Status:   "pending",
	})
	require.NoError(t, err)
}

func TestRecordStore_SaveOrder_RepoError(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(errors.New("connection refused"))

	err := store.SaveOrder(context.Background(), OrderRecord{ID: "order-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save order record")
}

func TestRecordStore_GetOrder(t *testing.T) {
	store, repo := newTestRecordStore(t)
	workerID := int64(42)

	repo.EXPECT().
		GetByID(gomock.Any(), "order-1").
		Return(&repository.OrderRecord{
			ID:         "order-1",
			UserID:     "user-1",
			Status:     "completed",
			WorkerID:   &workerID,
			PhotoCount: 3,
		}, nil)

	rec, err := store.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", rec.ID)
	assert.Equal(t, int64(42), rec.WorkerID)
	assert.Equal(t, 3, rec.PhotoCount)
}

func TestRecordStore_GetOrder_NotFound(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "missing").
		Return(nil, repository.ErrObjectNotFound)

	_, err := store.GetOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordStore_UpdateOrderProgress(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "order-1").
		Return(&repository.OrderRecord{
			ID:     "order-1",
			Status: "pending",
		}, nil)
	repo.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *repository.OrderRecord) error {
			assert.Equal(t, "assigned", rec.Status)
			assert.Equal(t, 2, rec.PhotoCount)
			require.NotNil(t, rec.WorkerID)
			assert.Equal(t, int64(7), *rec.WorkerID)
			assert.Equal(t, testNow, rec.UpdatedAt)
			return nil
		})

	err := store.UpdateOrderProgress(context.Background(), "order-1", "assigned", 7, 2)
	require.NoError(t, err)
}

func TestRecordStore_UpdateOrderProgress_ZeroWorkerLeftUnset(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "order-1").
		Return(&repository.OrderRecord{ID: "order-1"}, nil)
	repo.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *repository.OrderRecord) error {
			assert.Nil(t, rec.WorkerID)
			return nil
		})

	err := store.UpdateOrderProgress(context.Background(), "order-1", "completed", 0, 5)
	require.NoError(t, err)
}

func TestRecordStore_UpdateOrderProgress_NotFound(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "missing").
		Return(nil, repository.ErrObjectNotFound)

	err := store.UpdateOrderProgress(context.Background(), "missing", "assigned", 7, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordStore_GetUserOrders(t *testing.T) {
	store, repo := newTestRecordStore(t)

	repo.EXPECT().
		GetByUserID(gomock.Any(), "user-1", 2).
		Return([]*repository.OrderRecord{
			{ID: "order-2", UserID: "user-1"},
			{ID: "order-1", UserID: "user-1"},
		}, nil)

	recs, err := store.GetUserOrders(context.Background(), "user-1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "order-2", recs[0].ID)
	assert.Equal(t, "order-1", recs[1].ID)
}
