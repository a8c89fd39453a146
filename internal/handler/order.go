package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
)

// OrderHandler handles HTTP requests for order and trade endpoints.
type OrderHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(portfolioSvc *service.PortfolioService) *OrderHandler {
	return &OrderHandler{portfolioSvc: portfolioSvc}
}

// placeOrderRequest is the JSON request body for
// POST /sessions/{session_id}/orders.
type placeOrderRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Kind       string   `json:"kind"`
	Amount     float64  `json:"amount"`
	LimitPrice *float64 `json:"limit_price"`
}

// tradeResponse is one executed trade.
type tradeResponse struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Kind       string  `json:"kind"`
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
	ExecutedAt string  `json:"executed_at"`
}

// tradeListResponse is the JSON response for listing a session's trades.
type tradeListResponse struct {
	SessionID string          `json:"session_id"`
	Trades    []tradeResponse `json:"trades"`
}

// Place handles POST /sessions/{session_id}/orders.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	trade, err := h.portfolioSvc.PlaceOrder(sessionID, service.OrderInput{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Kind:       req.Kind,
		Amount:     req.Amount,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildTradeResponse(trade))
}

// ListTrades handles GET /sessions/{session_id}/trades with an optional
// since=RFC3339 filter.
func (h *OrderHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "since must be a valid RFC 3339 timestamp")
			return
		}
		since = &t
	}

	trades, err := h.portfolioSvc.Trades(sessionID, since)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	out := make([]tradeResponse, len(trades))
	for i, t := range trades {
		out[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, tradeListResponse{
		SessionID: sessionID,
		Trades:    out,
	})
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Kind:       string(t.Kind),
		Amount:     t.Amount,
		Price:      t.Price,
		Total:      t.Total,
		ExecutedAt: t.ExecutedAt.UTC().Format(time.RFC3339),
	}
}
