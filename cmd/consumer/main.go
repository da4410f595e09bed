package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultBrokers = "localhost:9092"
	topic          = "delivery_reports"
	groupID        = "delivery-report-consumer-group"
)

type deliveryReport struct {
	ReportID    string    `json:"report_id"`
	OrderID     string    `json:"order_id"`
	Destination string    `json:"destination"`
	Total       int       `json:"total"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	ReportedAt  time.Time `json:"reported_at"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = defaultBrokers
	}

	log.Println("Starting delivery report consumer...")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		log.Println("Closing reader...")
		if err := r.Close(); err != nil {
			log.Printf("Error closing reader: %v", err)
		}
	}()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("Consumer stopped")
				return
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		var report deliveryReport
		if err := json.Unmarshal(msg.Value, &report); err != nil {
			log.Printf("Skipping malformed report at offset %d: %v", msg.Offset, err)
			continue
		}

		log.Printf("Delivery report %s: order=%s dest=%s delivered=%d/%d failed=%d",
			report.ReportID, report.OrderID, report.Destination,
			report.Delivered, report.Total, report.Failed)
	}
}
