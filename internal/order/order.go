package order

import (
	"sync"
	"time"
)

// Category is the closed set of order kinds the parser can resolve.
type Category string

const (
	CategoryUnsafe   Category = "unsafe"
	CategoryFund     Category = "fund"
	CategorySafeSlow Category = "safe_slow"
	CategorySafeFast Category = "safe_fast"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryUnsafe, CategoryFund, CategorySafeSlow, CategorySafeFast:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Order is one unit of requested work. Identity fields are immutable after
// creation; lifecycle state (status, worker, photos) is guarded by the
// order's own mutex so a status snapshot never has to wait out a collection
// in progress.
type Order struct {
	ID        string
	Text      string
	Amount    int
	Category  Category
	CreatedAt time.Time

	// ReplyMessageID is the outbound message this order waits on replies
	// to. Zero means any reply target is acceptable.
	ReplyMessageID int64

	mu       sync.Mutex
	status   Status
	workerID int64
	photos   []string
}

func (o *Order) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Order) SetStatus(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = s
}

func (o *Order) WorkerID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.workerID
}

// AssignWorker sets the worker exactly once. The first accepted reply wins;
// later callers get false and the assignment is never changed.
func (o *Order) AssignWorker(userID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.workerID != 0 {
		return false
	}
	o.workerID = userID
	if o.status == StatusPending {
		o.status = StatusAssigned
	}
	return true
}

// Photos returns a copy of the collected photo references in arrival order.
func (o *Order) Photos() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.photos))
	copy(out, o.photos)
	return out
}

func (o *Order) PhotoCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.photos)
}

// MergePhotos appends the references not already present, preserving arrival
// order, and returns the genuinely new ones. Duplicates, including
// duplicates within refs itself, are silently dropped.
func (o *Order) MergePhotos(refs []string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	seen := make(map[string]struct{}, len(o.photos))
	for _, p := range o.photos {
		seen[p] = struct{}{}
	}
	var fresh []string
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		o.photos = append(o.photos, r)
		fresh = append(fresh, r)
	}
	return fresh
}

func (o *Order) snapshot(replyCount int) *StatusSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &StatusSnapshot{
		OrderID:    o.ID,
		Status:     o.status,
		Amount:     o.Amount,
		Category:   o.Category,
		WorkerID:   o.workerID,
		PhotoCount: len(o.photos),
		ReplyCount: replyCount,
		CreatedAt:  o.CreatedAt,
	}
}

// StatusSnapshot is a read-only view of one order, safe to hand to any
// presentation layer.
type StatusSnapshot struct {
	OrderID    string    `json:"order_id"`
	Status     Status    `json:"status"`
	Amount     int       `json:"amount"`
	Category   Category  `json:"category"`
	WorkerID   int64     `json:"worker_id,omitempty"`
	PhotoCount int       `json:"photo_count"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reply is a single inbound worker message referencing an order. Identity
// fields are set at construction and never change; the photo list may be
// appended to by the transport layer while a collection is polling it, so
// access goes through AttachPhotos/Photos.
type Reply struct {
	UserID           int64
	MessageID        int64
	ReplyToMessageID int64
	Text             string
	Timestamp        time.Time

	mu     sync.Mutex
	photos []string
}

// NewReply constructs a reply as handed over by the transport layer.
func NewReply(userID, messageID, replyToMessageID int64, text string, ts time.Time, photos []string) *Reply {
	r := &Reply{
		UserID:           userID,
		MessageID:        messageID,
		ReplyToMessageID: replyToMessageID,
		Text:             text,
		Timestamp:        ts,
	}
	r.photos = append(r.photos, photos...)
	return r
}

// AttachPhotos adds photo references that arrived after the reply itself,
// e.g. the remaining items of an album still uploading.
func (r *Reply) AttachPhotos(refs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, refs...)
}

func (r *Reply) Photos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.photos))
	copy(out, r.photos)
	return out
}

func (r *Reply) HasPhotos() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.photos) > 0
}
