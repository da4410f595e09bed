package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/veligut/fulfillbot/internal/db/mocks"
	"github.com/veligut/fulfillbot/internal/repository"
	"github.com/veligut/fulfillbot/internal/repository/postgresql"
)

func TestOrderRepo_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		rec := &repository.OrderRecord{
			ID:         "order-1",
			UserID:     "user-1",
			Text:       "Need 5000 cp unsafe",
			Amount:     5000,
			Category:   "unsafe",
			Status:     "pending",
			PhotoCount: 0,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		mockDB.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(rec.ID),
			gomock.Eq(rec.UserID),
			gomock.Eq(rec.Text),
			gomock.Eq(rec.Amount),
			gomock.Eq(rec.Category),
			gomock.Eq(rec.Status),
			gomock.Nil(),
			gomock.Eq(rec.PhotoCount),
			gomock.Eq(rec.CreatedAt),
			gomock.Eq(rec.UpdatedAt),
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		assert.NoError(t, repo.Create(ctx, rec))
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection refused"))

		assert.Error(t, repo.Create(ctx, &repository.OrderRecord{ID: "order-1"}))
	})
}

func TestOrderRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("order-1")).
			DoAndReturn(func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				rec := dest.(*repository.OrderRecord)
				rec.ID = "order-1"
				rec.Status = "assigned"
				rec.PhotoCount = 2
				return nil
			})

		rec, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", rec.ID)
		assert.Equal(t, "assigned", rec.Status)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("missing")).
			Return(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestOrderRepo_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	workerID := int64(7)

	ctrl := gomock.NewController(t)
	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewOrderRepo(mockDB)

	mockDB.EXPECT().Exec(
		gomock.Any(),
		gomock.Any(),
		gomock.Eq("assigned"),
		gomock.Eq(&workerID),
		gomock.Eq(2),
		gomock.Eq(now),
		gomock.Eq("order-1"),
	).Return(pgconn.CommandTag("UPDATE 1"), nil)

	err := repo.Update(ctx, &repository.OrderRecord{
		ID:         "order-1",
		Status:     "assigned",
		WorkerID:   &workerID,
		PhotoCount: 2,
		UpdatedAt:  now,
	})
	assert.NoError(t, err)
}

func TestOrderRepo_GetByUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("without limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("user-1")).
			DoAndReturn(func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
				assert.NotContains(t, query, "LIMIT")
				recs := dest.(*[]*repository.OrderRecord)
				*recs = []*repository.OrderRecord{{ID: "order-2"}, {ID: "order-1"}}
				return nil
			})

		recs, err := repo.GetByUserID(ctx, "user-1", 0)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("with limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOrderRepo(mockDB)

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("user-1"), gomock.Eq(1)).
			DoAndReturn(func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
				assert.Contains(t, query, "LIMIT $2")
				recs := dest.(*[]*repository.OrderRecord)
				*recs = []*repository.OrderRecord{{ID: "order-2"}}
				return nil
			})

		recs, err := repo.GetByUserID(ctx, "user-1", 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}
