package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/feed"
	"github.com/shardsim/paper-engine/internal/model"
	"github.com/shardsim/paper-engine/internal/portfolio"
	"github.com/shardsim/paper-engine/internal/prediction"
	"github.com/shardsim/paper-engine/internal/risk"
	"github.com/shardsim/paper-engine/internal/store"
)

// Service exposes the engine over HTTP. Business rules live in the Engine
// and the prediction Manager; handlers only decode, dispatch, and encode.
type Service struct {
	store           store.Store
	engine          *Engine
	manager         *prediction.Manager
	feed            *feed.Feed
	hub             *WSHub // optional
	startingBalance decimal.Decimal
}

// NewService creates the HTTP service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, engine *Engine, manager *prediction.Manager, f *feed.Feed, hub *WSHub, startingBalance decimal.Decimal) *Service {
	return &Service{
		store:           st,
		engine:          engine,
		manager:         manager,
		feed:            f,
		hub:             hub,
		startingBalance: startingBalance,
	}
}

// Routes mounts all API handlers on the router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/accounts", s.CreateAccount)
	r.Get("/accounts/{address}", s.GetAccount)

	r.Get("/prices", s.GetPrices)
	r.Get("/prices/history", s.GetPriceHistory)

	r.Post("/predictions", s.CreatePrediction)
	r.Post("/predictions/{predictionID}/resolve", s.ResolvePrediction)
	r.Get("/predictions/{address}", s.ListPredictions)

	r.Post("/trades", s.ExecuteTrade)
	r.Get("/trades/{address}", s.ListTrades)

	r.Get("/portfolio/{address}", s.GetPortfolio)
}

// --- Request/Response types ---

// CreateAccountRequest is the JSON body for POST /accounts.
type CreateAccountRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// AccountResponse is an account plus its derived accuracy.
type AccountResponse struct {
	model.Account
	Accuracy decimal.Decimal `json:"accuracy"`
}

// CreatePredictionRequest is the JSON body for POST /predictions.
// The entry price is snapshotted from the feed server-side.
type CreatePredictionRequest struct {
	WalletAddress string `json:"wallet_address"`
	Asset         string `json:"asset"`
	Direction     string `json:"direction"`
	Confidence    int    `json:"confidence"`
	Timeframe     string `json:"timeframe"`
	RequestID     string `json:"request_id,omitempty"`
}

// ResolvePredictionRequest is the JSON body for POST /predictions/{id}/resolve.
type ResolvePredictionRequest struct {
	Won bool `json:"won"`
}

// ResolvePredictionResponse reports the terminal prediction; AlreadyResolved
// is informational, not an error.
type ResolvePredictionResponse struct {
	Prediction      *model.Prediction `json:"prediction"`
	AlreadyResolved bool              `json:"already_resolved"`
}

// TradeRequest is the JSON body for POST /trades. The execution price is
// snapshotted from the feed server-side, never taken from the caller.
type TradeRequest struct {
	WalletAddress string          `json:"wallet_address"`
	Asset         string          `json:"asset"`
	Side          string          `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	RequestID     string          `json:"request_id,omitempty"`
}

// TradeResponse is the JSON body returned from POST /trades.
type TradeResponse struct {
	Trade   *model.Trade    `json:"trade"`
	Balance decimal.Decimal `json:"shm_tokens"`
}

// PortfolioResponse combines the account with its derived portfolio.
type PortfolioResponse struct {
	WalletAddress string            `json:"wallet_address"`
	Balance       decimal.Decimal   `json:"shm_tokens"`
	Summary       portfolio.Summary `json:"portfolio"`
}

// --- Account handlers ---

// CreateAccount handles POST /api/v1/accounts.
// Idempotent per wallet address: a repeat call returns the existing record.
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WalletAddress == "" {
		writeError(w, "wallet_address is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	candidate := &model.Account{
		ID:            uuid.New().String(),
		WalletAddress: req.WalletAddress,
		Balance:       s.startingBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	account, err := s.store.CreateAccount(r.Context(), candidate)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if account.ID == candidate.ID {
		status = http.StatusCreated
		slog.Info("account created",
			"wallet", account.WalletAddress, "starting_balance", account.Balance.String())
	}

	writeJSON(w, status, AccountResponse{Account: *account, Accuracy: account.Accuracy()})
}

// GetAccount handles GET /api/v1/accounts/{address}.
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	account, err := s.store.GetAccount(r.Context(), address)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{Account: *account, Accuracy: account.Accuracy()})
}

// --- Price handlers ---

// GetPrices handles GET /api/v1/prices.
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.feed.Prices())
}

// GetPriceHistory handles GET /api/v1/prices/history.
// Returns the bounded rolling history, oldest first.
func (s *Service) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	history := s.feed.History()
	if history == nil {
		history = []model.PricePoint{}
	}
	writeJSON(w, http.StatusOK, history)
}

// --- Prediction handlers ---

// CreatePrediction handles POST /api/v1/predictions.
func (s *Service) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req CreatePredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WalletAddress == "" {
		writeError(w, "wallet_address is required", http.StatusBadRequest)
		return
	}

	sym, err := asset.ParseSymbol(req.Asset)
	if err != nil {
		writeErr(w, err)
		return
	}
	entryPrice, err := s.feed.CurrentPrice(sym)
	if err != nil {
		writeErr(w, err)
		return
	}

	p, err := s.manager.Create(r.Context(), prediction.CreateParams{
		WalletAddress: req.WalletAddress,
		Asset:         sym,
		Direction:     asset.Direction(req.Direction),
		Confidence:    req.Confidence,
		EntryPrice:    entryPrice,
		Timeframe:     asset.Timeframe(req.Timeframe),
		RequestID:     req.RequestID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("prediction created",
		"id", p.ID,
		"wallet", req.WalletAddress,
		"asset", p.Asset,
		"direction", p.Direction,
		"confidence", p.Confidence,
		"entry_price", p.EntryPrice.String(),
		"reward", p.Reward.String(),
	)
	writeJSON(w, http.StatusCreated, p)
}

// ResolvePrediction handles POST /api/v1/predictions/{predictionID}/resolve.
// Demo/manual path; the sweeper is the usual resolver. Resolving a terminal
// prediction reports already_resolved without mutating anything.
func (s *Service) ResolvePrediction(w http.ResponseWriter, r *http.Request) {
	predictionID := chi.URLParam(r, "predictionID")

	var req ResolvePredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := s.manager.Resolve(r.Context(), predictionID, req.Won)
	if errors.Is(err, prediction.ErrAlreadyResolved) {
		writeJSON(w, http.StatusOK, ResolvePredictionResponse{Prediction: p, AlreadyResolved: true})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolvePredictionResponse{Prediction: p})
}

// ListPredictions handles GET /api/v1/predictions/{address}.
// Newest first.
func (s *Service) ListPredictions(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	predictions, err := s.manager.List(r.Context(), address)
	if err != nil {
		writeErr(w, err)
		return
	}
	if predictions == nil {
		predictions = []model.Prediction{}
	}
	writeJSON(w, http.StatusOK, predictions)
}

// --- Trade handlers ---

// ExecuteTrade handles POST /api/v1/trades.
func (s *Service) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WalletAddress == "" {
		writeError(w, "wallet_address is required", http.StatusBadRequest)
		return
	}

	sym, err := asset.ParseSymbol(req.Asset)
	if err != nil {
		writeErr(w, err)
		return
	}
	price, err := s.feed.CurrentPrice(sym)
	if err != nil {
		writeErr(w, err)
		return
	}

	t, err := s.engine.Execute(r.Context(), ExecuteParams{
		WalletAddress: req.WalletAddress,
		Asset:         sym,
		Side:          asset.Side(req.Side),
		Amount:        req.Amount,
		Price:         price,
		RequestID:     req.RequestID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	account, err := s.store.GetAccount(r.Context(), req.WalletAddress)
	if err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("trade executed",
		"trade_id", t.ID,
		"wallet", req.WalletAddress,
		"asset", t.Asset,
		"side", t.Side,
		"amount", t.Amount.String(),
		"price", t.Price.String(),
		"cost", t.TotalCost.String(),
	)

	if s.hub != nil {
		s.hub.TradeExecuted(t)
	}

	writeJSON(w, http.StatusOK, TradeResponse{Trade: t, Balance: account.Balance})
}

// ListTrades handles GET /api/v1/trades/{address}.
// Newest first.
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	account, err := s.store.GetAccount(r.Context(), address)
	if err != nil {
		writeErr(w, err)
		return
	}
	trades, err := s.store.ListTrades(r.Context(), account.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetPortfolio handles GET /api/v1/portfolio/{address}.
// Everything here is re-derived from the trade ledger and current prices.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	account, summary, err := s.engine.Portfolio(r.Context(), address, s.feed.Prices())
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PortfolioResponse{
		WalletAddress: account.WalletAddress,
		Balance:       account.Balance,
		Summary:       summary,
	})
}

// --- Helpers ---

// writeErr maps domain errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, asset.ErrUnsupportedAsset),
		errors.Is(err, asset.ErrInvalidDirection),
		errors.Is(err, asset.ErrInvalidSide),
		errors.Is(err, asset.ErrInvalidTimeframe),
		errors.Is(err, prediction.ErrConfidenceRange):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientHoldings),
		errors.Is(err, risk.ErrPerAssetLimitExceeded),
		errors.Is(err, risk.ErrInvestedLimitExceeded):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrVersionConflict):
		// Retries exhausted; the caller may safely replay with the same
		// request ID.
		writeError(w, "transient conflict, retry the request", http.StatusConflict)
	case errors.Is(err, feed.ErrNoPrice):
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
