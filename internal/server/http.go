// Package server exposes the HTTP/JSON API and the gRPC endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"LimitBook/internal/book"
	"LimitBook/internal/event"
	"LimitBook/internal/marketdata"
	"LimitBook/internal/observability"
	"LimitBook/internal/query"
	"LimitBook/internal/tick"
)

// BookSource resolves live books; the engine satisfies it.
type BookSource interface {
	Book(instrument string) *book.Orderbook
	Instruments() []string
}

// HTTPServer serves book reads straight from the engine's books, trade
// history from Postgres, and an admin order-injection endpoint that
// feeds the same command channel as NATS.
type HTTPServer struct {
	server        *http.Server
	source        BookSource
	trades        *query.TradeQueryService
	commands      chan<- event.Command
	healthChecker *observability.HealthChecker
	metrics       *observability.Metrics
	log           zerolog.Logger
}

func NewHTTPServer(
	addr string,
	source BookSource,
	trades *query.TradeQueryService,
	commands chan<- event.Command,
	healthChecker *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		source:        source,
		trades:        trades,
		commands:      commands,
		healthChecker: healthChecker,
		metrics:       metrics,
		log:           log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/books/{instrument}/levels", s.handleLevels)
	mux.HandleFunc("GET /v1/books/{instrument}/size", s.handleSize)
	mux.HandleFunc("GET /v1/trades/{instrument}", s.handleTrades)
	mux.HandleFunc("POST /v1/orders", s.handleSubmitOrder)
	mux.HandleFunc("DELETE /v1/orders/{instrument}/{order_id}", s.handleCancelOrder)
	if healthChecker != nil {
		mux.HandleFunc("GET /healthz", healthChecker.LivenessHandler)
		mux.HandleFunc("GET /readyz", healthChecker.ReadinessHandler)
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the context is canceled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) handleLevels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	instrument := r.PathValue("instrument")

	b := s.source.Book(instrument)
	if b == nil {
		s.writeError(w, "levels", http.StatusNotFound, fmt.Sprintf("unknown instrument %q", instrument))
		return
	}

	topN := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, "levels", http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
		topN = n
	}

	s.writeJSON(w, "levels", start, marketdata.BuildDepth(instrument, b, topN))
}

func (s *HTTPServer) handleSize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	instrument := r.PathValue("instrument")

	b := s.source.Book(instrument)
	if b == nil {
		s.writeError(w, "size", http.StatusNotFound, fmt.Sprintf("unknown instrument %q", instrument))
		return
	}

	s.writeJSON(w, "size", start, map[string]interface{}{
		"instrument": instrument,
		"size":       b.Size(),
	})
}

func (s *HTTPServer) handleTrades(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	instrument := r.PathValue("instrument")

	if s.trades == nil {
		s.writeError(w, "trades", http.StatusServiceUnavailable, "trade history not available")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, "trades", http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var beforeSeq uint64
	if raw := r.URL.Query().Get("before_seq"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, "trades", http.StatusBadRequest, "before_seq must be a non-negative integer")
			return
		}
		beforeSeq = n
	}

	trades, err := s.trades.GetTrades(r.Context(), instrument, limit, beforeSeq)
	if err != nil {
		s.log.Error().Err(err).Str("instrument", instrument).Msg("trade query failed")
		s.writeError(w, "trades", http.StatusInternalServerError, "query failed")
		return
	}
	if trades == nil {
		trades = []query.TradeResponse{}
	}

	s.writeJSON(w, "trades", start, map[string]interface{}{
		"instrument": instrument,
		"trades":     trades,
	})
}

// submitOrderRequest mirrors the NATS wire format so operators can
// inject orders with curl using the exact same payloads.
type submitOrderRequest struct {
	Instrument string `json:"instrument"`
	OrderID    uint64 `json:"order_id"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Price      string `json:"price"`
	Quantity   uint64 `json:"quantity"`
}

func (s *HTTPServer) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.commands == nil {
		s.writeError(w, "submit", http.StatusServiceUnavailable, "order injection not available")
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "submit", http.StatusBadRequest, fmt.Sprintf("decode: %v", err))
		return
	}
	if req.Instrument == "" || req.OrderID == 0 {
		s.writeError(w, "submit", http.StatusBadRequest, "instrument and order_id are required")
		return
	}

	var side book.Side
	switch req.Side {
	case "buy":
		side = book.SideBuy
	case "sell":
		side = book.SideSell
	default:
		s.writeError(w, "submit", http.StatusBadRequest, fmt.Sprintf("unknown side %q", req.Side))
		return
	}

	var otype book.OrderType
	switch req.Type {
	case "gtc", "":
		otype = book.GoodTilCanceled
	case "fak":
		otype = book.FillAndKill
	default:
		s.writeError(w, "submit", http.StatusBadRequest, fmt.Sprintf("unknown type %q", req.Type))
		return
	}

	price, err := tick.PriceScale.Parse(req.Price)
	if err != nil {
		s.writeError(w, "submit", http.StatusBadRequest, err.Error())
		return
	}

	cmd := event.SubmitOrder{
		Market:   req.Instrument,
		OrderID:  req.OrderID,
		Side:     side,
		Type:     otype,
		Price:    price,
		Quantity: req.Quantity,
	}

	select {
	case s.commands <- cmd:
	case <-r.Context().Done():
		s.writeError(w, "submit", http.StatusServiceUnavailable, "request canceled")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "accepted",
		"order_id": req.OrderID,
	})
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues("submit", "accepted").Inc()
		s.metrics.QueryDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	}
}

func (s *HTTPServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.commands == nil {
		s.writeError(w, "cancel", http.StatusServiceUnavailable, "order injection not available")
		return
	}

	instrument := r.PathValue("instrument")
	orderID, err := strconv.ParseUint(r.PathValue("order_id"), 10, 64)
	if err != nil || orderID == 0 {
		s.writeError(w, "cancel", http.StatusBadRequest, "order_id must be a positive integer")
		return
	}
	if s.source.Book(instrument) == nil {
		s.writeError(w, "cancel", http.StatusNotFound, fmt.Sprintf("unknown instrument %q", instrument))
		return
	}

	cmd := event.CancelOrder{
		Market:  instrument,
		OrderID: book.OrderID(orderID),
	}

	select {
	case s.commands <- cmd:
	case <-r.Context().Done():
		s.writeError(w, "cancel", http.StatusServiceUnavailable, "request canceled")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "accepted",
		"order_id": orderID,
	})
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues("cancel", "accepted").Inc()
		s.metrics.QueryDuration.WithLabelValues("cancel").Observe(time.Since(start).Seconds())
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, endpoint string, start time.Time, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, endpoint string, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "error").Inc()
		s.metrics.QueryErrors.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}
