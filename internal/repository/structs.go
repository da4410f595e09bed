package repository

import (
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("not found")

// OrderRecord is the durable bookkeeping row for an order. The live
// coordination state (locks, in-flight replies) is process-local and never
// persisted; this record exists for history and reporting.
type OrderRecord struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Text       string    `db:"text"`
	Amount     int       `db:"amount"`
	Category   string    `db:"category"`
	Status     string    `db:"status"`
	WorkerID   *int64    `db:"worker_id"`
	PhotoCount int       `db:"photo_count"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}
