package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/veligut/fulfillbot/internal/order"
	"github.com/veligut/fulfillbot/internal/pricing"
	"github.com/veligut/fulfillbot/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "Missing order ID")
		return
	}

	o, err := s.core.CreateOrder(req.ID, req.Text)
	if err != nil {
		var invalid *order.InvalidOrderError
		switch {
		case errors.Is(err, order.ErrDuplicateOrder):
			respondError(w, http.StatusConflict, err.Error())
		case errors.As(err, &invalid):
			respondError(w, http.StatusBadRequest, invalid.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	rec := storage.OrderRecord{
		ID:       o.ID,
		UserID:   req.UserID,
		Text:     o.Text,
		Amount:   o.Amount,
		Category: string(o.Category),
		Status:   string(o.Status()),
	}
	if err := s.records.SaveOrder(r.Context(), rec); err != nil {
		// The live order exists either way; the durable row is bookkeeping.
		s.logger.Error("failed to persist order record",
			zap.String("order_id", o.ID),
			zap.Error(err))
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Order created successfully",
		"id":       o.ID,
		"amount":   o.Amount,
		"category": o.Category,
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	snapshot, ok := s.core.Status(orderID)
	if !ok {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.core.UpdateStatus(orderID, order.Status(req.Status)); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Order status updated successfully",
	})
}

func (s *Server) handleSubmitReply(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req struct {
		UserID           int64    `json:"user_id"`
		MessageID        int64    `json:"message_id"`
		ReplyToMessageID int64    `json:"reply_to_message_id"`
		Text             string   `json:"text"`
		Timestamp        string   `json:"timestamp"`
		Photos           []string `json:"photos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid timestamp format. Use RFC 3339")
			return
		}
		ts = parsed
	}

	reply := order.NewReply(req.UserID, req.MessageID, req.ReplyToMessageID, req.Text, ts, req.Photos)

	message, err := s.core.ProcessReply(r.Context(), orderID, reply)
	if err != nil {
		var rejected *order.ReplyRejectedError
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &rejected):
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"rejected": rejected.Reason,
			})
		case errors.Is(err, order.ErrCollectTimeout):
			respondError(w, http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, order.ErrNoPhotosFound):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if snapshot, ok := s.core.Status(orderID); ok {
		if err := s.records.UpdateOrderProgress(r.Context(), orderID, string(snapshot.Status), snapshot.WorkerID, snapshot.PhotoCount); err != nil {
			s.logger.Error("failed to persist order progress",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req struct {
		Destination string `json:"destination"`
	}
	if r.Body != nil {
		// An empty body means "route by category".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	destination := req.Destination
	if destination == "" {
		snapshot, ok := s.core.Status(orderID)
		if !ok {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		picked, err := s.sources.PickSource(string(snapshot.Category))
		if err != nil {
			respondError(w, http.StatusBadRequest, "No destination available: "+err.Error())
			return
		}
		destination = picked
	}

	summary, err := s.core.Deliver(r.Context(), orderID, destination, s.send, order.DefaultDeliveryPolicy)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, order.ErrNoPhotos):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrDeliveryFailed):
			respondError(w, http.StatusBadGateway, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if s.reporter != nil {
		if err := s.reporter.Report(r.Context(), summary); err != nil {
			s.logger.Error("failed to publish delivery report",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	status := http.StatusOK
	response := map[string]interface{}{
		"order_id":  summary.OrderID,
		"total":     summary.Total,
		"delivered": summary.Delivered,
		"failed":    summary.Failed,
	}
	if summary.Partial() {
		response["warning"] = "some photos could not be delivered"
	}
	respondJSON(w, status, response)
}

func (s *Server) handleListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	lastN := 0
	if lastNStr := r.URL.Query().Get("last"); lastNStr != "" {
		var err error
		lastN, err = strconv.Atoi(lastNStr)
		if err != nil || lastN <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid value for 'last' parameter")
			return
		}
	}

	recs, err := s.records.GetUserOrders(r.Context(), userID, lastN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		SourceID string `json:"source_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.sources.AddSource(req.Category, req.SourceID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Source registered successfully",
	})
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.sources.RemoveSource(vars["category"], vars["sourceID"]); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Source removed successfully",
	})
}

func (s *Server) handleRoutingStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sources.Stats())
}

func (s *Server) handleParsePriceList(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	items := pricing.ParsePriceList(string(raw), s.logger)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":     items,
		"formatted": pricing.Format(items),
	})
}
