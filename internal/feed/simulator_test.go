package feed

import (
	"context"
	"testing"
	"time"

	"tickwatch/internal/domain"
)

type fakeTickerStore struct {
	tickers []domain.TickerSnapshot
}

func (f *fakeTickerStore) ListTickers(context.Context, domain.Market, domain.StockClass) ([]domain.TickerSnapshot, error) {
	return f.tickers, nil
}
func (f *fakeTickerStore) GetTicker(context.Context, string) (*domain.TickerSnapshot, error) {
	return nil, nil
}
func (f *fakeTickerStore) CreateTicker(context.Context, *domain.TickerSnapshot) error { return nil }
func (f *fakeTickerStore) DeleteTicker(context.Context, string) error                 { return nil }
func (f *fakeTickerStore) PatchThresholds(context.Context, string, map[domain.ThresholdKey]float64) error {
	return nil
}
func (f *fakeTickerStore) UpsertPosition(context.Context, string, domain.Broker, domain.BrokerPosition) error {
	return nil
}

type captorPublisher struct {
	batches [][]domain.PriceUpdate
}

func (c *captorPublisher) BroadcastPriceBatch(batch []domain.PriceUpdate) {
	c.batches = append(c.batches, batch)
}

func TestSimulatorStep(t *testing.T) {
	ts := &fakeTickerStore{tickers: []domain.TickerSnapshot{
		{ID: "1", Symbol: "AAPL", Thresholds: domain.Thresholds{Green: 150}},
		{ID: "2", Symbol: "TSLA", Thresholds: domain.Thresholds{Green: 200}},
	}}
	sim := NewSimulator(ts, nil, &captorPublisher{}, domain.MarketUSA, time.Second)

	batch, err := sim.step(context.Background())
	if err != nil {
		t.Fatalf("step returned error: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(batch))
	}
	for _, u := range batch {
		if u.Last == nil || *u.Last <= 0 {
			t.Errorf("%s: missing or non-positive last price", u.Symbol)
		}
		if _, err := time.Parse(time.RFC3339, u.TradeDatetime); err != nil {
			t.Errorf("%s: bad trade datetime %q", u.Symbol, u.TradeDatetime)
		}
	}
}

func TestSimulatorWalkStaysPositive(t *testing.T) {
	ts := &fakeTickerStore{tickers: []domain.TickerSnapshot{
		{ID: "1", Symbol: "PENNY", Thresholds: domain.Thresholds{Green: 0.02}},
	}}
	sim := NewSimulator(ts, nil, &captorPublisher{}, domain.MarketUSA, time.Second)

	for i := 0; i < 500; i++ {
		batch, err := sim.step(context.Background())
		if err != nil {
			t.Fatalf("step returned error: %v", err)
		}
		if v := *batch[0].Last; v < 0.01 {
			t.Fatalf("walk dropped below floor: %v", v)
		}
	}
}
