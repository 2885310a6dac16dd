// Package httpapi serves the watchlist REST API and the price WebSocket.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"tickwatch/internal/dashboard"
	"tickwatch/internal/domain"
	"tickwatch/internal/prices"
	"tickwatch/internal/store"
)

// Server serves the dashboard HTTP API.
type Server struct {
	tickers  store.TickerStore
	trades   store.TradeStore
	priceLog *store.ParquetPriceLog
	hub      *prices.Hub
	log      *slog.Logger
}

// NewServer creates an API server over the given stores and price hub.
func NewServer(tickers store.TickerStore, trades store.TradeStore, priceLog *store.ParquetPriceLog, hub *prices.Hub, log *slog.Logger) *Server {
	return &Server{
		tickers:  tickers,
		trades:   trades,
		priceLog: priceLog,
		hub:      hub,
		log:      log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tickers/latest", s.handleListTickers)
	mux.HandleFunc("POST /api/tickers", s.handleCreateTicker)
	mux.HandleFunc("DELETE /api/tickers/{id}", s.handleDeleteTicker)
	mux.HandleFunc("PATCH /api/tickers/{id}/thresholds", s.handlePatchThresholds)
	mux.HandleFunc("POST /api/trades", s.handleCreateTrade)
	mux.HandleFunc("GET /api/trades", s.handleListTrades)
	mux.HandleFunc("DELETE /api/trades/{id}", s.handleDeleteTrade)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /ws/prices", s.hub.HandleWS)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Tickers
// ---------------------------------------------------------------------------

func (s *Server) handleListTickers(w http.ResponseWriter, r *http.Request) {
	market := domain.Market(r.URL.Query().Get("market"))
	class := domain.StockClass(r.URL.Query().Get("class"))

	tickers, err := s.tickers.ListTickers(r.Context(), market, class)
	if err != nil {
		s.log.Error("listing tickers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}
	if tickers == nil {
		tickers = []domain.TickerSnapshot{}
	}
	writeJSON(w, TickersResponse{Tickers: tickers})
}

func (s *Server) handleCreateTicker(w http.ResponseWriter, r *http.Request) {
	var t domain.TickerSnapshot
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticker body")
		return
	}
	if t.Symbol == "" || t.Market == "" {
		writeError(w, http.StatusBadRequest, "symbol and market required")
		return
	}
	t.Symbol = strings.ToUpper(t.Symbol)

	if res := dashboard.ValidateThresholds(t.Thresholds); !res.Ok {
		writeThresholdErrors(w, res)
		return
	}

	if err := s.tickers.CreateTicker(r.Context(), &t); err != nil {
		s.log.Error("creating ticker", "symbol", t.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create %s", t.Symbol))
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, t)
}

func (s *Server) handleDeleteTicker(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.tickers.DeleteTicker(r.Context(), id); err != nil {
		s.log.Error("deleting ticker", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete ticker")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchThresholds(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ThresholdPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch body")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "empty patch")
		return
	}

	current, err := s.tickers.GetTicker(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "ticker not found")
		return
	}

	patch := make(map[domain.ThresholdKey]float64, len(req))
	next := current.Thresholds
	for k, v := range req {
		key := domain.ThresholdKey(k)
		switch key {
		case domain.ThresholdGreen, domain.ThresholdCyan, domain.ThresholdOrange, domain.ThresholdRed:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown threshold key %q", k))
			return
		}
		patch[key] = v
		next = next.With(key, v)
	}

	if res := dashboard.ValidateThresholds(next); !res.Ok {
		writeThresholdErrors(w, res)
		return
	}

	if err := s.tickers.PatchThresholds(r.Context(), id, patch); err != nil {
		s.log.Error("patching thresholds", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to patch thresholds")
		return
	}
	writeJSON(w, next)
}

func writeThresholdErrors(w http.ResponseWriter, res dashboard.ValidationResult) {
	fields := make(map[string]string, len(res.Errors))
	for k, msg := range res.Errors {
		fields[string(k)] = msg
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(ThresholdErrorResponse{Error: "invalid thresholds", Fields: fields})
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req CreateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade body")
		return
	}
	if req.TickerID == "" || req.Broker == "" {
		writeError(w, http.StatusBadRequest, "tickerId and broker required")
		return
	}
	if req.Type != domain.TradeBuy && req.Type != domain.TradeSell {
		writeError(w, http.StatusBadRequest, "type must be buy or sell")
		return
	}
	if req.Rate <= 0 || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "rate and quantity must be positive")
		return
	}

	ticker, err := s.tickers.GetTicker(r.Context(), req.TickerID)
	if err != nil {
		writeError(w, http.StatusNotFound, "ticker not found")
		return
	}

	executedAt := req.ExecutedAt
	if executedAt == "" {
		executedAt = time.Now().UTC().Format(time.RFC3339)
	}

	pos := ticker.PositionsByBroker[req.Broker]
	newPos, profit := applyTradeToPosition(pos, req.Type, req.Rate, req.Quantity)

	trade := domain.Trade{
		TickerID:   req.TickerID,
		Symbol:     ticker.Symbol,
		Type:       req.Type,
		Rate:       req.Rate,
		Quantity:   req.Quantity,
		Broker:     req.Broker,
		ExecutedAt: executedAt,
		Profit:     profit,
	}
	if err := s.trades.SaveTrade(r.Context(), &trade); err != nil {
		s.log.Error("saving trade", "symbol", ticker.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save trade")
		return
	}
	if err := s.tickers.UpsertPosition(r.Context(), req.TickerID, req.Broker, newPos); err != nil {
		s.log.Error("updating position", "symbol", ticker.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update position")
		return
	}

	// Push the position patch to every connected dashboard.
	s.hub.BroadcastTrade(domain.TradeEvent{
		Symbol: ticker.Symbol,
		Patch: domain.PositionPatch{
			Broker:          req.Broker,
			AvgBookCost:     newPos.AvgBookCost,
			QuantityHolding: newPos.QuantityHolding,
		},
		TS: executedAt,
	})

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, TradeResponse{Trade: trade, Position: newPos})
}

// applyTradeToPosition folds one trade into a broker position. Buys blend
// the average book cost; sells reduce quantity and report realized profit
// against the held cost basis.
func applyTradeToPosition(pos domain.BrokerPosition, tt domain.TradeType, rate, qty float64) (domain.BrokerPosition, *float64) {
	held := 0.0
	if pos.QuantityHolding != nil {
		held = *pos.QuantityHolding
	}
	avg := 0.0
	if pos.AvgBookCost != nil {
		avg = *pos.AvgBookCost
	}

	if tt == domain.TradeBuy {
		newQty := held + qty
		newAvg := (avg*held + rate*qty) / newQty
		return domain.BrokerPosition{
			AvgBookCost:     domain.Float(newAvg),
			QuantityHolding: domain.Float(newQty),
		}, nil
	}

	sold := qty
	if sold > held {
		sold = held
	}
	newQty := held - sold
	profit := (rate - avg) * sold
	newPos := domain.BrokerPosition{
		AvgBookCost:     domain.Float(avg),
		QuantityHolding: domain.Float(newQty),
	}
	if newQty == 0 {
		newPos.AvgBookCost = nil
	}
	return newPos, domain.Float(profit)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	tickerID := r.URL.Query().Get("tickerId")
	if tickerID == "" {
		writeError(w, http.StatusBadRequest, "tickerId required")
		return
	}
	trades, err := s.trades.ListTrades(r.Context(), tickerID)
	if err != nil {
		s.log.Error("listing trades", "tickerId", tickerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, TradesResponse{Trades: trades})
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.trades.DeleteTrade(r.Context(), id); err != nil {
		s.log.Error("deleting trade", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Chart and options
// ---------------------------------------------------------------------------

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	market := domain.Market(r.URL.Query().Get("market"))
	if market == "" {
		writeError(w, http.StatusBadRequest, "market required")
		return
	}

	symbolsParam := r.URL.Query().Get("symbols")
	if symbolsParam == "" {
		writeError(w, http.StatusBadRequest, "symbols required")
		return
	}
	var symbols []string
	for _, sym := range strings.Split(symbolsParam, ",") {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			symbols = append(symbols, sym)
		}
	}

	day := r.URL.Query().Get("day")
	if day == "" {
		day = s.priceLog.LatestDay(market)
	}
	if day == "" {
		writeJSON(w, ChartResponse{Market: market, Day: "", Series: map[string][]domain.SeriesPoint{}})
		return
	}

	series, err := s.priceLog.ReadDaySeries(r.Context(), market, day, symbols)
	if err != nil {
		s.log.Error("reading day series", "market", market, "day", day, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read chart data")
		return
	}
	writeJSON(w, ChartResponse{Market: market, Day: day, Series: series})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	market := domain.Market(r.URL.Query().Get("market"))

	tickers, err := s.tickers.ListTickers(r.Context(), market, "")
	if err != nil {
		s.log.Error("listing tickers for options", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list options")
		return
	}

	symbolSet := make(map[string]bool)
	industrySet := make(map[string]bool)
	for i := range tickers {
		symbolSet[tickers[i].Symbol] = true
		if tickers[i].Industry != "" {
			industrySet[tickers[i].Industry] = true
		}
	}

	resp := OptionsResponse{
		Symbols:      sortedKeys(symbolSet),
		Industries:   sortedKeys(industrySet),
		StockClasses: []domain.StockClass{domain.ClassDividend, domain.ClassTrade, domain.ClassLongTerm},
		Buckets:      []domain.Bucket{domain.BucketCore, domain.BucketWatch, domain.BucketOnce, domain.BucketAvoid},
		Brokers:      domain.Brokers,
	}
	writeJSON(w, resp)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
