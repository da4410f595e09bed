package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type staticInFlight map[int64]bool

func (s staticInFlight) InFlight(messageID int64) bool { return s[messageID] }

func newTestFilter(t *testing.T, inFlight InFlightChecker) *AdmissionFilter {
	t.Helper()
	f := NewAdmissionFilter(inFlight, nil, zap.NewNop())
	f.timeNow = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestAdmission_ChatterAlwaysRejected(t *testing.T) {
	f := newTestFilter(t, nil)
	o := &Order{ID: "o1", status: StatusPending}
	now := f.timeNow()

	for _, text := range []string{"ok", "OK", "Ok.", "yes", "YES", "thanks", "Thanks.", "no", "hi", "hello", "bye"} {
		t.Run(text, func(t *testing.T) {
			reply := NewReply(7, 100, 0, text, now, nil)
			assert.False(t, f.Admissible(reply, o), "chatter %q must be rejected", text)
		})
	}
}

func TestAdmission_StalenessBoundary(t *testing.T) {
	f := newTestFilter(t, nil)
	o := &Order{ID: "o1", status: StatusPending}
	now := f.timeNow()

	tests := []struct {
		name       string
		age        time.Duration
		admissible bool
	}{
		{"one second past the window", 24*time.Hour + time.Second, false},
		{"one minute inside the window", 23*time.Hour + 59*time.Minute, true},
		{"exactly at the window", 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := NewReply(7, 100, 0, "photos incoming, uploading now", now.Add(-tt.age), nil)
			assert.Equal(t, tt.admissible, f.Admissible(reply, o))
		})
	}
}

func TestAdmission_Rules(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expecting := &Order{ID: "o1", ReplyMessageID: 500, status: StatusPending}
	open := &Order{ID: "o2", status: StatusPending}

	tests := []struct {
		name       string
		order      *Order
		reply      *Reply
		inFlight   InFlightChecker
		admissible bool
		reason     string
	}{
		{
			name:       "valid reply to expected message",
			order:      expecting,
			reply:      NewReply(7, 100, 500, "done, see attached", now, []string{"a.jpg"}),
			admissible: true,
		},
		{
			name:       "wrong reply target",
			order:      expecting,
			reply:      NewReply(7, 100, 501, "done, see attached", now, []string{"a.jpg"}),
			admissible: false,
			reason:     "reply does not reference the order's message",
		},
		{
			name:       "no target required",
			order:      open,
			reply:      NewReply(7, 100, 0, "finished the batch", now, nil),
			admissible: true,
		},
		{
			name:       "message already in flight",
			order:      open,
			reply:      NewReply(7, 100, 0, "finished the batch", now, nil),
			inFlight:   staticInFlight{100: true},
			admissible: false,
			reason:     "message is already being processed",
		},
		{
			name:       "no text and no photos",
			order:      open,
			reply:      NewReply(7, 100, 0, "   ", now, nil),
			admissible: false,
			reason:     "reply has no text and no photos",
		},
		{
			name:       "photos with empty text",
			order:      open,
			reply:      NewReply(7, 100, 0, "", now, []string{"a.jpg"}),
			admissible: true,
		},
		{
			name:       "text too short",
			order:      open,
			reply:      NewReply(7, 100, 0, "hm", now, nil),
			admissible: false,
			reason:     "reply text too short to be meaningful",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(t, tt.inFlight)
			rej := f.Check(tt.reply, tt.order)
			if tt.admissible {
				assert.Nil(t, rej)
				return
			}
			if assert.NotNil(t, rej) {
				assert.Equal(t, tt.reason, rej.Reason)
				assert.Equal(t, tt.reply.MessageID, rej.MessageID)
			}
		})
	}
}

func TestAdmission_CustomChatterList(t *testing.T) {
	f := NewAdmissionFilter(nil, []string{"done"}, zap.NewNop())
	o := &Order{ID: "o1", status: StatusPending}

	assert.False(t, f.Admissible(NewReply(7, 1, 0, "Done", time.Now(), nil), o))
	// The built-in list is replaced, not extended.
	assert.True(t, f.Admissible(NewReply(7, 2, 0, "thanks", time.Now(), nil), o))
}
