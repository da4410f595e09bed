package order

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/metrics"
)

const (
	// Replies older than this are treated as stale leftovers from an
	// earlier conversation, never as an answer to a live order.
	defaultStaleAfter = 24 * time.Hour

	minReplyTextLen = 3
)

// Low-information acknowledgement phrases. A whole-line, case-insensitive
// match (optionally with a trailing period) means the message is chatter
// that accidentally landed as a reply.
var defaultChatterPhrases = []string{
	"ok", "yes", "no", "thank", "thanks", "hi", "hello", "bye",
}

// InFlightChecker reports whether a message id is currently being collected.
type InFlightChecker interface {
	InFlight(messageID int64) bool
}

// AdmissionFilter decides whether an inbound reply is a genuine, actionable
// response to an order. It never mutates state; rejections are advisory-
// logged only. False-positive suppression matters more than recall here: an
// order that never gets a good reply can be retried, a wrongly accepted
// chat aside corrupts the photo set.
type AdmissionFilter struct {
	inFlight   InFlightChecker
	chatter    map[string]struct{}
	staleAfter time.Duration
	timeNow    func() time.Time
	logger     *zap.Logger
}

// NewAdmissionFilter builds a filter. chatterPhrases overrides the built-in
// acknowledgement list when non-nil.
func NewAdmissionFilter(inFlight InFlightChecker, chatterPhrases []string, logger *zap.Logger) *AdmissionFilter {
	if chatterPhrases == nil {
		chatterPhrases = defaultChatterPhrases
	}
	chatter := make(map[string]struct{}, len(chatterPhrases))
	for _, p := range chatterPhrases {
		chatter[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &AdmissionFilter{
		inFlight:   inFlight,
		chatter:    chatter,
		staleAfter: defaultStaleAfter,
		timeNow:    time.Now,
		logger:     logger,
	}
}

// Admissible reports whether the reply should be processed for the order.
func (f *AdmissionFilter) Admissible(reply *Reply, o *Order) bool {
	return f.Check(reply, o) == nil
}

// Check returns nil when the reply is admissible, otherwise a
// ReplyRejectedError carrying the reason.
func (f *AdmissionFilter) Check(reply *Reply, o *Order) *ReplyRejectedError {
	if f.inFlight != nil && f.inFlight.InFlight(reply.MessageID) {
		return f.reject(reply, o, "duplicate", "message is already being processed")
	}

	if o.ReplyMessageID != 0 && reply.ReplyToMessageID != o.ReplyMessageID {
		return f.reject(reply, o, "wrong_target", "reply does not reference the order's message")
	}

	if age := f.timeNow().Sub(reply.Timestamp); age > f.staleAfter {
		return f.reject(reply, o, "stale", "reply is older than the staleness window")
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" && !reply.HasPhotos() {
		return f.reject(reply, o, "empty", "reply has no text and no photos")
	}

	if text != "" {
		lower := strings.ToLower(text)
		if len([]rune(lower)) < minReplyTextLen {
			return f.reject(reply, o, "too_short", "reply text too short to be meaningful")
		}
		if _, ok := f.chatter[strings.TrimSuffix(lower, ".")]; ok {
			return f.reject(reply, o, "chatter", "reply matches a known acknowledgement phrase")
		}
	}

	f.logger.Debug("reply admitted",
		zap.String("order_id", o.ID),
		zap.Int64("message_id", reply.MessageID),
		zap.Int64("user_id", reply.UserID))
	return nil
}

func (f *AdmissionFilter) reject(reply *Reply, o *Order, label, reason string) *ReplyRejectedError {
	f.logger.Debug("reply rejected",
		zap.String("order_id", o.ID),
		zap.Int64("message_id", reply.MessageID),
		zap.String("reason", label))
	metrics.RepliesRejectedTotal.WithLabelValues(label).Inc()
	return &ReplyRejectedError{MessageID: reply.MessageID, Reason: reason}
}
