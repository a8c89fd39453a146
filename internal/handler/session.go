package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
)

// SessionHandler handles HTTP requests for session endpoints.
type SessionHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(portfolioSvc *service.PortfolioService) *SessionHandler {
	return &SessionHandler{portfolioSvc: portfolioSvc}
}

// createSessionRequest is the JSON request body for POST /sessions.
type createSessionRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// sessionResponse is the JSON response for session creation.
type sessionResponse struct {
	SessionID     string  `json:"session_id"`
	WalletAddress *string `json:"wallet_address"`
	CreatedAt     string  `json:"created_at"`
	StartingCash  float64 `json:"starting_cash"`
	CashBalance   float64 `json:"cash_balance"`
}

// holdingResponse is a single position in the portfolio response.
type holdingResponse struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	AvgPrice  float64 `json:"avg_price"`
	TotalCost float64 `json:"total_cost"`
}

// portfolioResponse is the JSON response for GET /sessions/{session_id}.
type portfolioResponse struct {
	SessionID     string            `json:"session_id"`
	WalletAddress *string           `json:"wallet_address"`
	CreatedAt     string            `json:"created_at"`
	StartingCash  float64           `json:"starting_cash"`
	CashBalance   float64           `json:"cash_balance"`
	Holdings      []holdingResponse `json:"holdings"`
	TotalValue    float64           `json:"total_value"`
	UnrealizedPnL float64           `json:"unrealized_pnl"`
	PnLPercent    float64           `json:"pnl_percent"`
	TradeCount    int               `json:"trade_count"`
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	// The body is optional: a session without a wallet label needs none.
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	sess, err := h.portfolioSvc.CreateSession(service.CreateSessionRequest{
		Wallet: req.WalletAddress,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildSessionResponse(sess))
}

// Get handles GET /sessions/{session_id}: the portfolio view with
// mark-to-market valuation.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	view, err := h.portfolioSvc.Portfolio(sessionID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	holdings := make([]holdingResponse, len(view.Holdings))
	for i, p := range view.Holdings {
		holdings[i] = holdingResponse{
			Symbol:    p.Symbol,
			Amount:    p.Amount,
			AvgPrice:  p.AvgPrice,
			TotalCost: p.TotalCost,
		}
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{
		SessionID:     view.SessionID,
		WalletAddress: optionalString(view.Wallet),
		CreatedAt:     view.CreatedAt.UTC().Format(time.RFC3339),
		StartingCash:  view.StartingCash,
		CashBalance:   view.CashBalance,
		Holdings:      holdings,
		TotalValue:    view.Valuation.TotalValue,
		UnrealizedPnL: view.Valuation.UnrealizedPnL,
		PnLPercent:    view.Valuation.PnLPercent,
		TradeCount:    view.TradeCount,
	})
}

// Reset handles POST /sessions/{session_id}/reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if err := h.portfolioSvc.Reset(sessionID); err != nil {
		mapDomainError(w, err)
		return
	}

	sess, err := h.portfolioSvc.GetSession(sessionID)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildSessionResponse(sess))
}

func buildSessionResponse(sess *domain.Session) sessionResponse {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	return sessionResponse{
		SessionID:     sess.ID,
		WalletAddress: optionalString(sess.Wallet),
		CreatedAt:     sess.CreatedAt.UTC().Format(time.RFC3339),
		StartingCash:  sess.Ledger.StartingCash(),
		CashBalance:   sess.Ledger.Cash(),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
