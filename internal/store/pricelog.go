package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"tickwatch/internal/domain"
)

// Compile-time interface check.
var _ PriceLogStore = (*ParquetPriceLog)(nil)

// PriceRecord is the parquet schema for one intraday price observation.
type PriceRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
}

// ParquetPriceLog stores intraday last-price observations in one parquet
// file per market per day:
//
//	<DataDir>/<market>/price-log/<YYYY-MM-DD>.parquet
//
// Appends buffer in memory and flush to disk once flushAt records accumulate
// for a day, or explicitly via Flush.
type ParquetPriceLog struct {
	DataDir string

	mu      sync.Mutex
	pending map[string][]PriceRecord // "<market>/<day>" → buffered records
	flushAt int
}

// NewParquetPriceLog creates a price log rooted at dataDir, flushing each
// day buffer once it reaches flushAt records (default 512 when <= 0).
func NewParquetPriceLog(dataDir string, flushAt int) *ParquetPriceLog {
	if flushAt <= 0 {
		flushAt = 512
	}
	return &ParquetPriceLog{
		DataDir: dataDir,
		pending: make(map[string][]PriceRecord),
		flushAt: flushAt,
	}
}

// AppendPrices buffers the last-price observations from a batch. Updates
// without a last price or a parseable timestamp are skipped.
func (p *ParquetPriceLog) AppendPrices(_ context.Context, market domain.Market, updates []domain.PriceUpdate) error {
	var toFlush map[string][]PriceRecord

	p.mu.Lock()
	for i := range updates {
		u := &updates[i]
		if u.Last == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, u.TradeDatetime)
		if err != nil {
			continue
		}
		key := string(market) + "/" + ts.UTC().Format("2006-01-02")
		p.pending[key] = append(p.pending[key], PriceRecord{
			Symbol:    u.Symbol,
			Timestamp: ts.UnixMilli(),
			Price:     *u.Last,
		})
		if len(p.pending[key]) >= p.flushAt {
			if toFlush == nil {
				toFlush = make(map[string][]PriceRecord)
			}
			toFlush[key] = p.pending[key]
			delete(p.pending, key)
		}
	}
	p.mu.Unlock()

	for key, records := range toFlush {
		if err := p.flushKey(key, records); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes every buffered record to disk.
func (p *ParquetPriceLog) Flush() error {
	p.mu.Lock()
	toFlush := p.pending
	p.pending = make(map[string][]PriceRecord)
	p.mu.Unlock()

	for key, records := range toFlush {
		if err := p.flushKey(key, records); err != nil {
			return err
		}
	}
	return nil
}

// ReadDaySeries returns the day's sorted series for each requested symbol.
// A missing day file yields empty series, not an error.
func (p *ParquetPriceLog) ReadDaySeries(_ context.Context, market domain.Market, day string, symbols []string) (map[string][]domain.SeriesPoint, error) {
	// Make buffered records for the day visible to readers.
	key := string(market) + "/" + day
	p.mu.Lock()
	buffered := p.pending[key]
	delete(p.pending, key)
	p.mu.Unlock()
	if len(buffered) > 0 {
		if err := p.flushKey(key, buffered); err != nil {
			return nil, err
		}
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	out := make(map[string][]domain.SeriesPoint, len(symbols))
	for _, s := range symbols {
		out[s] = nil
	}

	records, err := parquet.ReadFile[PriceRecord](p.dayPath(market, day))
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("reading price log %s/%s: %w", market, day, err)
	}

	for _, r := range records {
		if !want[r.Symbol] {
			continue
		}
		out[r.Symbol] = append(out[r.Symbol], domain.SeriesPoint{T: r.Timestamp, V: r.Price})
	}
	for sym := range out {
		sort.Slice(out[sym], func(i, j int) bool { return out[sym][i].T < out[sym][j].T })
	}
	return out, nil
}

// LatestDay returns the most recent day file for a market, or "" when none
// exists.
func (p *ParquetPriceLog) LatestDay(market domain.Market) string {
	dir := filepath.Join(p.DataDir, string(market), "price-log")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var latest string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".parquet" {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return ""
	}
	return latest[:len(latest)-len(".parquet")]
}

func (p *ParquetPriceLog) dayPath(market domain.Market, day string) string {
	return filepath.Join(p.DataDir, string(market), "price-log", day+".parquet")
}

// flushKey merges records into the day file. key is "<market>/<day>".
func (p *ParquetPriceLog) flushKey(key string, records []PriceRecord) error {
	market, day, _ := splitKey(key)
	path := p.dayPath(domain.Market(market), day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	existing, err := parquet.ReadFile[PriceRecord](path)
	if err != nil && !os.IsNotExist(err) {
		existing = nil
	}
	merged := append(existing, records...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Symbol < merged[j].Symbol
	})

	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("writing price log %s: %w", path, err)
	}
	return nil
}

func splitKey(key string) (market, day string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}
