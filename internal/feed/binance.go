package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
)

// staleAfter marks a streamed price stale once no update arrived for this
// long; stale symbols are reported as missing so the feed falls back.
const staleAfter = 15 * time.Second

// BinanceSource streams bookTicker mid-prices for each supported asset over
// the Binance WebSocket API. Run must be started before Prices returns data.
type BinanceSource struct {
	baseURL string

	mu      sync.RWMutex
	mids    map[asset.Symbol]decimal.Decimal
	updated map[asset.Symbol]time.Time
}

// NewBinanceSource creates a Binance-backed price source.
func NewBinanceSource(baseURL string) *BinanceSource {
	if baseURL == "" {
		baseURL = "wss://stream.binance.com:9443/ws"
	}
	return &BinanceSource{
		baseURL: baseURL,
		mids:    make(map[asset.Symbol]decimal.Decimal),
		updated: make(map[asset.Symbol]time.Time),
	}
}

func (s *BinanceSource) Name() string { return "binance" }

// Prices returns the latest non-stale mid-price per asset. Symbols with no
// fresh quote are omitted; an error is returned only when nothing is fresh.
func (s *BinanceSource) Prices(_ context.Context) (map[asset.Symbol]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[asset.Symbol]decimal.Decimal)
	now := time.Now()
	for sym, mid := range s.mids {
		if now.Sub(s.updated[sym]) <= staleAfter && mid.IsPositive() {
			out[sym] = mid
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("binance: no fresh quotes")
	}
	return out, nil
}

// Run opens one stream per supported asset and reconnects on failure until
// the context is done.
func (s *BinanceSource) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sym := range asset.Symbols() {
		wg.Add(1)
		go func(sym asset.Symbol) {
			defer wg.Done()
			s.stream(ctx, sym)
		}(sym)
	}
	wg.Wait()
}

func (s *BinanceSource) stream(ctx context.Context, sym asset.Symbol) {
	url := fmt.Sprintf("%s/%susdt@bookTicker", s.baseURL, strings.ToLower(string(sym)))

	for {
		if err := s.connect(ctx, url, sym); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("binance ws disconnected", "asset", sym, "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
			slog.Info("binance reconnecting", "asset", sym)
		}
	}
}

type bookTicker struct {
	BestBidPrice string `json:"b"`
	BestAskPrice string `json:"a"`
}

func (s *BinanceSource) connect(ctx context.Context, url string, sym asset.Symbol) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ticker bookTicker
		if err := json.Unmarshal(msg, &ticker); err != nil {
			continue
		}

		bid, err1 := decimal.NewFromString(ticker.BestBidPrice)
		ask, err2 := decimal.NewFromString(ticker.BestAskPrice)
		if err1 != nil || err2 != nil {
			continue
		}

		mid := bid.Add(ask).Div(decimal.NewFromInt(2))
		s.mu.Lock()
		s.mids[sym] = mid
		s.updated[sym] = time.Now()
		s.mu.Unlock()
	}
}
