//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/order"
	"github.com/veligut/fulfillbot/internal/storage"
)

// Core is the order coordination surface the HTTP layer invokes. It is the
// order manager in production and a mock in tests.
type Core interface {
	CreateOrder(id, text string) (*order.Order, error)
	Status(orderID string) (*order.StatusSnapshot, bool)
	UpdateStatus(orderID string, status order.Status) error
	ProcessReply(ctx context.Context, orderID string, reply *order.Reply) (string, error)
	Deliver(ctx context.Context, orderID, destination string, send order.SendFunc, policy order.DeliveryPolicy) (*order.DeliverySummary, error)
}

// Records is the durable record store consumed for bookkeeping.
type Records interface {
	SaveOrder(ctx context.Context, rec storage.OrderRecord) error
	UpdateOrderProgress(ctx context.Context, orderID, status string, workerID int64, photoCount int) error
	GetUserOrders(ctx context.Context, userID string, lastN int) ([]storage.OrderRecord, error)
}

// Sources is the routing table supplying delivery destinations.
type Sources interface {
	AddSource(category, sourceID string) error
	RemoveSource(category, sourceID string) error
	PickSource(category string) (string, error)
	Stats() map[string]int
}

// UserRepo validates operator credentials for basic auth.
type UserRepo interface {
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

// Reporter publishes delivery summaries downstream.
type Reporter interface {
	Report(ctx context.Context, summary *order.DeliverySummary) error
}

type Server struct {
	core     Core
	records  Records
	sources  Sources
	userRepo UserRepo
	reporter Reporter
	send     order.SendFunc

	server *http.Server
	logger *zap.Logger
}

func New(core Core, records Records, sources Sources, userRepo UserRepo, reporter Reporter, send order.SendFunc, logger *zap.Logger) *Server {
	return &Server{
		core:     core,
		records:  records,
		sources:  sources,
		userRepo: userRepo,
		reporter: reporter,
		send:     send,
		logger:   logger,
	}
}

func (s *Server) Run(port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.logger.Info("server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.loggingMiddleware, s.basicAuthMiddleware)

	api.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.handleGetStatus).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", s.handleUpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/replies", s.handleSubmitReply).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/deliver", s.handleDeliver).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/orders", s.handleListUserOrders).Methods(http.MethodGet)

	api.HandleFunc("/routing/sources", s.handleAddSource).Methods(http.MethodPost)
	api.HandleFunc("/routing/sources/{category}/{sourceID}", s.handleRemoveSource).Methods(http.MethodDelete)
	api.HandleFunc("/routing/stats", s.handleRoutingStats).Methods(http.MethodGet)

	api.HandleFunc("/pricelist", s.handleParsePriceList).Methods(http.MethodPost)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		valid, err := s.userRepo.ValidateUser(r.Context(), username, password)
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
