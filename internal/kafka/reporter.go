package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veligut/fulfillbot/internal/order"
)

const (
	DefaultPhotoTopic  = "order_photos"
	DefaultReportTopic = "delivery_reports"
)

// DeliveryReport is published after every delivery run so downstream
// consumers can audit outcomes.
type DeliveryReport struct {
	ReportID    string    `json:"report_id"`
	OrderID     string    `json:"order_id"`
	Destination string    `json:"destination"`
	Total       int       `json:"total"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	ReportedAt  time.Time `json:"reported_at"`
}

// Reporter adapts a Producer to the delivery engine: photos go out on the
// photo topic keyed by destination, and summaries on the report topic.
type Reporter struct {
	producer    Producer
	photoTopic  string
	reportTopic string
}

func NewReporter(producer Producer) *Reporter {
	return &Reporter{
		producer:    producer,
		photoTopic:  DefaultPhotoTopic,
		reportTopic: DefaultReportTopic,
	}
}

// SendFunc returns the injected transport used by the delivery engine: one
// photo reference per message, keyed by destination so one destination's
// photos stay ordered within a partition.
func (r *Reporter) SendFunc() order.SendFunc {
	return func(ctx context.Context, destination, photo string) error {
		payload, err := json.Marshal(map[string]string{
			"destination": destination,
			"photo":       photo,
		})
		if err != nil {
			return fmt.Errorf("marshal photo message: %w", err)
		}
		return r.producer.SendMessage(ctx, r.photoTopic, []byte(destination), payload)
	}
}

// Report publishes the delivery summary. Reporting failure is returned but
// never affects the delivery outcome itself.
func (r *Reporter) Report(ctx context.Context, summary *order.DeliverySummary) error {
	report := DeliveryReport{
		ReportID:    uuid.NewString(),
		OrderID:     summary.OrderID,
		Destination: summary.Destination,
		Total:       summary.Total,
		Delivered:   summary.Delivered,
		Failed:      summary.Failed,
		ReportedAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal delivery report: %w", err)
	}
	return r.producer.SendMessage(ctx, r.reportTopic, []byte(report.ReportID), payload)
}
