package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"tickwatch/internal/domain"
	"tickwatch/internal/store"
)

// Compile-time interface check.
var _ Source = (*Simulator)(nil)

// Simulator emits random-walk price batches for every watched ticker. It is
// the default source for local development, where no market data credentials
// are available.
type Simulator struct {
	tickers  store.TickerStore
	priceLog store.PriceLogStore
	pub      Publisher
	market   domain.Market
	interval time.Duration
	log      *slog.Logger

	rng    *rand.Rand
	prices map[string]float64
}

// NewSimulator creates a simulator publishing a batch every interval.
func NewSimulator(tickers store.TickerStore, priceLog store.PriceLogStore, pub Publisher, market domain.Market, interval time.Duration) *Simulator {
	return &Simulator{
		tickers:  tickers,
		priceLog: priceLog,
		pub:      pub,
		market:   market,
		interval: interval,
		log:      slog.Default().With("source", "simulator"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		prices:   make(map[string]float64),
	}
}

// Name returns the source identifier.
func (s *Simulator) Name() string { return "simulator" }

// Run emits batches until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("simulator feed started", "market", s.market, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			batch, err := s.step(ctx)
			if err != nil {
				s.log.Warn("listing watched tickers", "error", err)
				continue
			}
			publish(ctx, s.log, s.pub, s.priceLog, s.market, batch)
		}
	}
}

// step advances every symbol's random walk and builds one batch. Fields are
// dropped at random so downstream merge paths see partial updates, as a real
// quote feed produces.
func (s *Simulator) step(ctx context.Context) ([]domain.PriceUpdate, error) {
	watched, err := watchedSymbols(ctx, s.tickers, s.market)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	batch := make([]domain.PriceUpdate, 0, len(watched))
	for _, t := range watched {
		last := s.next(t.Symbol, t.Thresholds.Green)
		u := domain.PriceUpdate{
			Symbol:        t.Symbol,
			SymbolID:      t.SymbolID,
			Last:          domain.Float(last),
			TradeDatetime: now,
		}
		if s.rng.Float64() < 0.8 {
			u.Bid = domain.Float(last * (1 - 0.0005*s.rng.Float64()))
			u.Ask = domain.Float(last * (1 + 0.0005*s.rng.Float64()))
		}
		if s.rng.Float64() < 0.5 {
			u.Volume = domain.Float(float64(s.rng.Intn(10_000)))
		}
		batch = append(batch, u)
	}
	return batch, nil
}

// next moves one symbol's walk by up to ±1%, seeding new symbols near the
// green threshold so crossings actually happen.
func (s *Simulator) next(symbol string, green float64) float64 {
	p, ok := s.prices[symbol]
	if !ok {
		p = green
		if p <= 0 {
			p = 10 + 90*s.rng.Float64()
		}
	}
	p *= 1 + (s.rng.Float64()-0.5)*0.02
	if p < 0.01 {
		p = 0.01
	}
	s.prices[symbol] = p
	return p
}
