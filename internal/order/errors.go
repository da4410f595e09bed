package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateOrder = errors.New("order already exists")
	ErrOrderNotFound  = errors.New("order not found")
	ErrCollectTimeout = errors.New("photo collection timed out")
	ErrNoPhotosFound  = errors.New("no photos found in reply")
	ErrNoPhotos       = errors.New("order has no photos to deliver")
	ErrDeliveryFailed = errors.New("no photos could be delivered")
)

// InvalidOrderError reports which fields could not be resolved from the
// submitted text. It is an expected validation outcome, not a fault.
type InvalidOrderError struct {
	MissingAmount   bool
	MissingCategory bool
	Diagnostic      string
}

func (e *InvalidOrderError) Error() string {
	if e.Diagnostic != "" {
		return e.Diagnostic
	}
	var parts []string
	if e.MissingAmount {
		parts = append(parts, "amount is missing or invalid")
	}
	if e.MissingCategory {
		parts = append(parts, "order category could not be determined")
	}
	if len(parts) == 0 {
		return "invalid order"
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// ReplyRejectedError is returned when the admission filter declines a reply.
// Frequent and expected; callers distinguish it from system errors with
// errors.As.
type ReplyRejectedError struct {
	MessageID int64
	Reason    string
}

func (e *ReplyRejectedError) Error() string {
	return fmt.Sprintf("reply %d rejected: %s", e.MessageID, e.Reason)
}
