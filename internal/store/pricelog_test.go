package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tickwatch/internal/domain"
)

func logUpdate(symbol string, last float64, ts string) domain.PriceUpdate {
	return domain.PriceUpdate{Symbol: symbol, Last: domain.Float(last), TradeDatetime: ts}
}

func TestPriceLogRoundTrip(t *testing.T) {
	p := NewParquetPriceLog(t.TempDir(), 0)
	ctx := context.Background()

	updates := []domain.PriceUpdate{
		logUpdate("AAPL", 101, "2026-08-28T14:30:00Z"),
		logUpdate("AAPL", 102, "2026-08-28T14:31:00Z"),
		logUpdate("TSLA", 250, "2026-08-28T14:30:30Z"),
	}
	if err := p.AppendPrices(ctx, domain.MarketUSA, updates); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}

	// ReadDaySeries flushes the pending buffer before reading.
	series, err := p.ReadDaySeries(ctx, domain.MarketUSA, "2026-08-28", []string{"AAPL", "TSLA", "GHOST"})
	if err != nil {
		t.Fatalf("ReadDaySeries: %v", err)
	}
	if len(series["AAPL"]) != 2 {
		t.Errorf("AAPL points = %d", len(series["AAPL"]))
	}
	if series["AAPL"][0].V != 101 || series["AAPL"][1].V != 102 {
		t.Errorf("AAPL series = %+v", series["AAPL"])
	}
	if series["AAPL"][0].T >= series["AAPL"][1].T {
		t.Error("series not time-sorted")
	}
	if len(series["TSLA"]) != 1 {
		t.Errorf("TSLA points = %d", len(series["TSLA"]))
	}
	if pts, ok := series["GHOST"]; !ok || len(pts) != 0 {
		t.Errorf("GHOST should be present and empty, got %v %v", pts, ok)
	}
}

func TestPriceLogSkipsUnusableUpdates(t *testing.T) {
	p := NewParquetPriceLog(t.TempDir(), 0)
	ctx := context.Background()

	updates := []domain.PriceUpdate{
		{Symbol: "NOLAST", TradeDatetime: "2026-08-28T14:30:00Z"},
		logUpdate("BADTIME", 10, "yesterday-ish"),
		logUpdate("GOOD", 10, "2026-08-28T14:30:00Z"),
	}
	if err := p.AppendPrices(ctx, domain.MarketUSA, updates); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}

	series, err := p.ReadDaySeries(ctx, domain.MarketUSA, "2026-08-28", []string{"NOLAST", "BADTIME", "GOOD"})
	if err != nil {
		t.Fatalf("ReadDaySeries: %v", err)
	}
	if len(series["GOOD"]) != 1 || len(series["NOLAST"]) != 0 || len(series["BADTIME"]) != 0 {
		t.Errorf("series = %+v", series)
	}
}

func TestPriceLogMissingDay(t *testing.T) {
	p := NewParquetPriceLog(t.TempDir(), 0)
	series, err := p.ReadDaySeries(context.Background(), domain.MarketUSA, "2026-01-01", []string{"AAPL"})
	if err != nil {
		t.Fatalf("ReadDaySeries: %v", err)
	}
	if len(series["AAPL"]) != 0 {
		t.Errorf("missing day returned data: %+v", series)
	}
}

func TestPriceLogFlushMergesExistingFile(t *testing.T) {
	dir := t.TempDir()
	p := NewParquetPriceLog(dir, 0)
	ctx := context.Background()

	if err := p.AppendPrices(ctx, domain.MarketUSA, []domain.PriceUpdate{
		logUpdate("AAPL", 100, "2026-08-28T14:00:00Z"),
	}); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A second flush appends to the same day file.
	if err := p.AppendPrices(ctx, domain.MarketUSA, []domain.PriceUpdate{
		logUpdate("AAPL", 101, "2026-08-28T15:00:00Z"),
	}); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series, err := p.ReadDaySeries(ctx, domain.MarketUSA, "2026-08-28", []string{"AAPL"})
	if err != nil {
		t.Fatalf("ReadDaySeries: %v", err)
	}
	if len(series["AAPL"]) != 2 {
		t.Errorf("merged points = %d, want 2", len(series["AAPL"]))
	}

	if _, err := os.Stat(filepath.Join(dir, "usa", "price-log", "2026-08-28.parquet")); err != nil {
		t.Errorf("day file missing: %v", err)
	}
}

func TestPriceLogAutoFlushAtThreshold(t *testing.T) {
	dir := t.TempDir()
	p := NewParquetPriceLog(dir, 2)
	ctx := context.Background()

	if err := p.AppendPrices(ctx, domain.MarketUSA, []domain.PriceUpdate{
		logUpdate("AAPL", 100, "2026-08-28T14:00:00Z"),
		logUpdate("AAPL", 101, "2026-08-28T14:01:00Z"),
	}); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}

	// Threshold reached: the file exists without an explicit Flush.
	if _, err := os.Stat(filepath.Join(dir, "usa", "price-log", "2026-08-28.parquet")); err != nil {
		t.Errorf("auto-flush did not write the day file: %v", err)
	}
}

func TestLatestDay(t *testing.T) {
	p := NewParquetPriceLog(t.TempDir(), 0)
	ctx := context.Background()

	if got := p.LatestDay(domain.MarketUSA); got != "" {
		t.Errorf("LatestDay on empty dir = %q", got)
	}

	for _, day := range []string{"2026-08-26", "2026-08-28", "2026-08-27"} {
		if err := p.AppendPrices(ctx, domain.MarketUSA, []domain.PriceUpdate{
			logUpdate("AAPL", 100, day+"T14:00:00Z"),
		}); err != nil {
			t.Fatalf("AppendPrices: %v", err)
		}
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := p.LatestDay(domain.MarketUSA); got != "2026-08-28" {
		t.Errorf("LatestDay = %q, want 2026-08-28", got)
	}
}
