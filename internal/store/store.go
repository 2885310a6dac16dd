// Package store persists the watchlist: tickers, broker positions, and
// trades in SQLite, intraday price logs in parquet day-files, and the
// client-side silenced prefs in a JSON file.
package store

import (
	"context"

	"tickwatch/internal/domain"
)

// TickerStore persists tickers, their thresholds, and per-broker positions.
type TickerStore interface {
	// ListTickers returns tickers matching the market/class filter, with
	// positions attached. Empty filter values match everything.
	ListTickers(ctx context.Context, market domain.Market, class domain.StockClass) ([]domain.TickerSnapshot, error)

	// GetTicker retrieves one ticker by id.
	GetTicker(ctx context.Context, id string) (*domain.TickerSnapshot, error)

	// CreateTicker inserts a ticker row, assigning an id if empty.
	CreateTicker(ctx context.Context, t *domain.TickerSnapshot) error

	// DeleteTicker removes a ticker and its positions and trades.
	DeleteTicker(ctx context.Context, id string) error

	// PatchThresholds updates a subset of a ticker's thresholds.
	PatchThresholds(ctx context.Context, id string, patch map[domain.ThresholdKey]float64) error

	// UpsertPosition writes one broker's position on a ticker.
	UpsertPosition(ctx context.Context, tickerID string, broker domain.Broker, pos domain.BrokerPosition) error
}

// TradeStore persists manually recorded trades.
type TradeStore interface {
	// SaveTrade inserts a trade, assigning an id if empty.
	SaveTrade(ctx context.Context, trade *domain.Trade) error

	// ListTrades returns trades for a ticker, newest first.
	ListTrades(ctx context.Context, tickerID string) ([]domain.Trade, error)

	// DeleteTrade removes a trade by id.
	DeleteTrade(ctx context.Context, id string) error
}

// PriceLogStore persists intraday price points and serves day series for the
// chart wall.
type PriceLogStore interface {
	// AppendPrices records price observations for the current day.
	AppendPrices(ctx context.Context, market domain.Market, updates []domain.PriceUpdate) error

	// ReadDaySeries returns the day's series for each requested symbol.
	ReadDaySeries(ctx context.Context, market domain.Market, day string, symbols []string) (map[string][]domain.SeriesPoint, error)
}
