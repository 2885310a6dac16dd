package httpapi

import (
	"tickwatch/internal/domain"
)

// TickersResponse is the payload of GET /api/tickers/latest.
type TickersResponse struct {
	Tickers []domain.TickerSnapshot `json:"tickers"`
}

// ThresholdPatchRequest is the body of PATCH /api/tickers/{id}/thresholds.
// Only the keys present are updated.
type ThresholdPatchRequest map[string]float64

// ThresholdErrorResponse reports per-key validation failures.
type ThresholdErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// CreateTradeRequest is the body of POST /api/trades.
type CreateTradeRequest struct {
	TickerID   string           `json:"tickerId"`
	Broker     domain.Broker    `json:"broker"`
	Type       domain.TradeType `json:"type"`
	Rate       float64          `json:"rate"`
	Quantity   float64          `json:"quantity"`
	ExecutedAt string           `json:"executedAt,omitempty"`
}

// TradeResponse is the payload of POST /api/trades: the saved trade plus the
// broker position after applying it.
type TradeResponse struct {
	Trade    domain.Trade          `json:"trade"`
	Position domain.BrokerPosition `json:"position"`
}

// TradesResponse is the payload of GET /api/trades.
type TradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// ChartResponse is the payload of GET /api/chart: one intraday series per
// requested symbol for a single day.
type ChartResponse struct {
	Market domain.Market                   `json:"market"`
	Day    string                          `json:"day"`
	Series map[string][]domain.SeriesPoint `json:"series"`
}

// OptionsResponse is the payload of GET /api/options: the distinct values the
// dashboard offers in its filter dropdowns.
type OptionsResponse struct {
	Symbols      []string            `json:"symbols"`
	Industries   []string            `json:"industries"`
	StockClasses []domain.StockClass `json:"stockClasses"`
	Buckets      []domain.Bucket     `json:"buckets"`
	Brokers      []domain.Broker     `json:"brokers"`
}
