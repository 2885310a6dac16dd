package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tickwatch/internal/domain"
	"tickwatch/internal/store"
	"tickwatch/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaPoller)(nil)

// AlpacaPoller polls the Alpaca market-data snapshot endpoint for the
// watched symbols and republishes them as price batches.
type AlpacaPoller struct {
	client   *marketdata.Client
	tickers  store.TickerStore
	priceLog store.PriceLogStore
	pub      Publisher
	market   domain.Market
	interval time.Duration
	limiter  *util.RateLimiter
	log      *slog.Logger
}

// NewAlpacaPoller creates a poller configured with the given Alpaca
// credentials. rateLimitPerMin bounds snapshot requests across polls.
func NewAlpacaPoller(apiKey, apiSecret, dataURL string, tickers store.TickerStore, priceLog store.PriceLogStore, pub Publisher, market domain.Market, interval time.Duration, rateLimitPerMin int) *AlpacaPoller {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaPoller{
		client:   marketdata.NewClient(opts),
		tickers:  tickers,
		priceLog: priceLog,
		pub:      pub,
		market:   market,
		interval: interval,
		limiter:  util.NewRateLimiter(rateLimitPerMin),
		log:      slog.Default().With("source", "alpaca"),
	}
}

// Name returns the source identifier.
func (p *AlpacaPoller) Name() string { return "alpaca" }

// Run polls until ctx is cancelled.
func (p *AlpacaPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("alpaca feed started", "market", p.market, "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			batch, err := p.poll(ctx)
			if err != nil {
				p.log.Warn("polling snapshots", "error", err)
				continue
			}
			publish(ctx, p.log, p.pub, p.priceLog, p.market, batch)
		}
	}
}

// poll fetches one snapshot per watched symbol and converts it to a batch.
func (p *AlpacaPoller) poll(ctx context.Context) ([]domain.PriceUpdate, error) {
	watched, err := watchedSymbols(ctx, p.tickers, p.market)
	if err != nil {
		return nil, err
	}
	if len(watched) == 0 {
		return nil, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(watched))
	idBySymbol := make(map[string]int64, len(watched))
	for _, t := range watched {
		symbols = append(symbols, t.Symbol)
		idBySymbol[t.Symbol] = t.SymbolID
	}

	var snapshots map[string]*marketdata.Snapshot
	err = util.Retry(ctx, 3, time.Second, func() error {
		snapshots, err = p.client.GetSnapshots(symbols, marketdata.GetSnapshotRequest{})
		return err
	})
	if err != nil {
		return nil, err
	}

	batch := make([]domain.PriceUpdate, 0, len(snapshots))
	for symbol, snap := range snapshots {
		if snap == nil {
			continue
		}
		u := domain.PriceUpdate{Symbol: symbol, SymbolID: idBySymbol[symbol]}
		if snap.LatestTrade != nil {
			u.Last = domain.Float(snap.LatestTrade.Price)
			u.TradeDatetime = snap.LatestTrade.Timestamp.UTC().Format(time.RFC3339)
		}
		if snap.LatestQuote != nil {
			u.Bid = domain.Float(snap.LatestQuote.BidPrice)
			u.Ask = domain.Float(snap.LatestQuote.AskPrice)
		}
		if snap.DailyBar != nil {
			u.Volume = domain.Float(float64(snap.DailyBar.Volume))
		}
		if u.Last == nil && u.Bid == nil && u.Ask == nil {
			continue
		}
		batch = append(batch, u)
	}
	return batch, nil
}
