package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/veligut/fulfillbot/internal/db"
	"github.com/veligut/fulfillbot/internal/repository"
	"github.com/veligut/fulfillbot/internal/storage"
)

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) storage.OrderRecordRepository {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Create(ctx context.Context, rec *repository.OrderRecord) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO orders (
            id, user_id, text, amount, category, status, worker_id, photo_count, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, rec.ID, rec.UserID, rec.Text, rec.Amount, rec.Category, rec.Status, rec.WorkerID, rec.PhotoCount, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.OrderRecord, error) {
	var rec repository.OrderRecord
	err := r.db.Get(ctx, &rec, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *OrderRepo) Update(ctx context.Context, rec *repository.OrderRecord) error {
	_, err := r.db.Exec(ctx, `
        UPDATE orders
        SET
            status = $1,
            worker_id = $2,
            photo_count = $3,
            updated_at = $4
        WHERE id = $5
    `, rec.Status, rec.WorkerID, rec.PhotoCount, rec.UpdatedAt, rec.ID)
	return err
}

func (r *OrderRepo) GetByUserID(ctx context.Context, userID string, limit int) ([]*repository.OrderRecord, error) {
	query := "SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
	args := []interface{}{userID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var recs []*repository.OrderRecord
	err := r.db.Select(ctx, &recs, query, args...)
	return recs, err
}
