package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
)

// MarketHandler handles HTTP requests for market data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// quoteResponse is one symbol's latest quote.
type quoteResponse struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	ChangePct24h float64 `json:"change_pct_24h"`
	Volume24h    float64 `json:"volume_24h"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	ObservedAt   string  `json:"observed_at"`
}

// pricePointResponse is one entry in a symbol's price history.
type pricePointResponse struct {
	ObservedAt string  `json:"observed_at"`
	Price      float64 `json:"price"`
}

// historyResponse is the JSON response for GET /market/history/{symbol}.
type historyResponse struct {
	Symbol string               `json:"symbol"`
	Points []pricePointResponse `json:"points"`
}

// statusResponse is the JSON response for GET /market/status.
type statusResponse struct {
	State               string  `json:"state"`
	Degraded            bool    `json:"degraded"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	LastSuccess         *string `json:"last_success"`
	LastError           *string `json:"last_error"`
}

// Quotes handles GET /market/quotes.
func (h *MarketHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	quotes := h.marketSvc.Quotes()
	out := make([]quoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = buildQuoteResponse(q)
	}
	WriteJSON(w, http.StatusOK, out)
}

// Quote handles GET /market/quotes/{symbol}.
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	q, err := h.marketSvc.Quote(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuoteResponse(q))
}

// History handles GET /market/history/{symbol}.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	points, err := h.marketSvc.History(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	out := make([]pricePointResponse, len(points))
	for i, p := range points {
		out[i] = pricePointResponse{
			ObservedAt: p.ObservedAt.UTC().Format(time.RFC3339),
			Price:      p.Price,
		}
	}
	WriteJSON(w, http.StatusOK, historyResponse{Symbol: symbol, Points: out})
}

// Status handles GET /market/status.
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.marketSvc.Status()

	resp := statusResponse{
		State:               st.State.String(),
		Degraded:            st.Degraded,
		ConsecutiveFailures: st.ConsecutiveFailures,
	}
	if !st.LastSuccess.IsZero() {
		s := st.LastSuccess.UTC().Format(time.RFC3339)
		resp.LastSuccess = &s
	}
	if st.LastError != "" {
		resp.LastError = &st.LastError
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /market/refresh: requests an immediate refresh and
// returns 202 without waiting for it. A refresh already in flight or
// queued absorbs the request.
func (h *MarketHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.marketSvc.RequestRefresh()
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh_requested"})
}

func buildQuoteResponse(q domain.Quote) quoteResponse {
	return quoteResponse{
		Symbol:       q.Symbol,
		Price:        q.Price,
		ChangePct24h: q.ChangePct24h,
		Volume24h:    q.Volume24h,
		High24h:      q.High24h,
		Low24h:       q.Low24h,
		ObservedAt:   q.ObservedAt.UTC().Format(time.RFC3339),
	}
}
