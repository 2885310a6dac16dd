// Package feed produces live price batches for the watchlist and publishes
// them to the WebSocket hub and the intraday price log.
package feed

import (
	"context"
	"log/slog"

	"tickwatch/internal/domain"
	"tickwatch/internal/store"
)

// Publisher receives the price batches a source produces.
type Publisher interface {
	BroadcastPriceBatch(batch []domain.PriceUpdate)
}

// Source is a long-running price producer. Run blocks until ctx is
// cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// publish fans one batch out to the hub and appends it to the price log.
func publish(ctx context.Context, log *slog.Logger, pub Publisher, plog store.PriceLogStore, market domain.Market, batch []domain.PriceUpdate) {
	if len(batch) == 0 {
		return
	}
	pub.BroadcastPriceBatch(batch)
	if plog == nil {
		return
	}
	if err := plog.AppendPrices(ctx, market, batch); err != nil {
		log.Warn("appending prices to log", "error", err)
	}
}

// watchedSymbols lists the symbols of every ticker in a market.
func watchedSymbols(ctx context.Context, tickers store.TickerStore, market domain.Market) ([]domain.TickerSnapshot, error) {
	return tickers.ListTickers(ctx, market, "")
}
