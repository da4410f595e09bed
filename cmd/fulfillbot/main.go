package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veligut/fulfillbot/internal/db"
	"github.com/veligut/fulfillbot/internal/kafka"
	"github.com/veligut/fulfillbot/internal/logger"
	"github.com/veligut/fulfillbot/internal/order"
	"github.com/veligut/fulfillbot/internal/parse"
	"github.com/veligut/fulfillbot/internal/repository/postgresql"
	"github.com/veligut/fulfillbot/internal/routing"
	"github.com/veligut/fulfillbot/internal/server"
	"github.com/veligut/fulfillbot/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db.LoadEnv()
	zlog := logger.New()
	defer func() { _ = zlog.Sync() }()

	dbPool, err := db.NewDb(ctx)
	if err != nil {
		log.Fatalf("Database init error: %v", err)
	}

	orderRepo := postgresql.NewOrderRepo(dbPool)
	userRepo := postgresql.NewUserRepo(dbPool)
	records := storage.NewRecordStore(orderRepo)

	manager := order.NewManager(parse.TextParser{}, zlog)
	registry := routing.NewRegistry(zlog)

	producer := newProducer()
	defer func() {
		if err := producer.Close(); err != nil {
			log.Printf("Error closing producer: %v", err)
		}
	}()
	reporter := kafka.NewReporter(producer)

	srv := server.New(manager, records, registry, userRepo, reporter, reporter.SendFunc(), zlog)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "9000"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Printf("Server started on port %s", port)
	if err := g.Wait(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
	log.Println("Server gracefully stopped")
}

func newProducer() kafka.Producer {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return kafka.NewConsoleProducer()
	}
	return kafka.NewWriterProducer(strings.Split(brokers, ","))
}
