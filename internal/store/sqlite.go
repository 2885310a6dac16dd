package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"tickwatch/internal/domain"
)

// Compile-time interface checks.
var _ TickerStore = (*SQLiteStore)(nil)
var _ TradeStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS tickers (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL UNIQUE,
	symbol_id        INTEGER NOT NULL DEFAULT 0,
	company_name     TEXT NOT NULL DEFAULT '',
	market           TEXT NOT NULL,
	stock_classes    TEXT NOT NULL DEFAULT '',
	industry         TEXT NOT NULL DEFAULT '',
	bucket           TEXT NOT NULL DEFAULT 'watch',
	threshold_green  REAL NOT NULL DEFAULT 0,
	threshold_cyan   REAL NOT NULL DEFAULT 0,
	threshold_orange REAL NOT NULL DEFAULT 0,
	threshold_red    REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS positions (
	ticker_id        TEXT NOT NULL REFERENCES tickers(id),
	broker           TEXT NOT NULL,
	avg_book_cost    REAL,
	quantity_holding REAL,
	PRIMARY KEY (ticker_id, broker)
);
CREATE TABLE IF NOT EXISTS trades (
	id          TEXT PRIMARY KEY,
	ticker_id   TEXT NOT NULL REFERENCES tickers(id),
	symbol      TEXT NOT NULL,
	type        TEXT NOT NULL,
	rate        REAL NOT NULL,
	quantity    REAL NOT NULL,
	broker      TEXT NOT NULL,
	executed_at TEXT NOT NULL,
	profit      REAL
);
CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker_id, executed_at);
`

// SQLiteStore implements TickerStore and TradeStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// TickerStore implementation
// ---------------------------------------------------------------------------

// ListTickers returns tickers matching the market/class filter with their
// per-broker positions attached.
func (s *SQLiteStore) ListTickers(ctx context.Context, market domain.Market, class domain.StockClass) ([]domain.TickerSnapshot, error) {
	query := `SELECT id, symbol, symbol_id, company_name, market, stock_classes, industry, bucket,
		threshold_green, threshold_cyan, threshold_orange, threshold_red FROM tickers`
	var conds []string
	var args []any
	if market != "" {
		conds = append(conds, "market = ?")
		args = append(args, string(market))
	}
	if class != "" {
		conds = append(conds, "instr(',' || stock_classes || ',', ',' || ? || ',') > 0")
		args = append(args, string(class))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY symbol"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TickerSnapshot
	byID := make(map[string]*domain.TickerSnapshot)
	for rows.Next() {
		t, err := scanTicker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
		byID[t.ID] = &out[len(out)-1]
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return out, nil
	}
	if err := s.attachPositions(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTicker retrieves one ticker by id, positions included.
func (s *SQLiteStore) GetTicker(ctx context.Context, id string) (*domain.TickerSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, symbol, symbol_id, company_name, market, stock_classes,
		industry, bucket, threshold_green, threshold_cyan, threshold_orange, threshold_red
		FROM tickers WHERE id = ?`, id)
	t, err := scanTicker(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticker %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachPositions(ctx, map[string]*domain.TickerSnapshot{t.ID: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTicker inserts a ticker row, assigning a UUID when the id is empty.
func (s *SQLiteStore) CreateTicker(ctx context.Context, t *domain.TickerSnapshot) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	classes := make([]string, len(t.StockClasses))
	for i, c := range t.StockClasses {
		classes[i] = string(c)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tickers
		(id, symbol, symbol_id, company_name, market, stock_classes, industry, bucket,
		 threshold_green, threshold_cyan, threshold_orange, threshold_red)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.SymbolID, t.CompanyName, string(t.Market), strings.Join(classes, ","),
		t.Industry, string(t.Bucket),
		t.Thresholds.Green, t.Thresholds.Cyan, t.Thresholds.Orange, t.Thresholds.Red)
	if err != nil {
		return fmt.Errorf("inserting ticker %s: %w", t.Symbol, err)
	}
	return nil
}

// DeleteTicker removes a ticker together with its positions and trades.
func (s *SQLiteStore) DeleteTicker(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE ticker_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE ticker_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickers WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// threshold key → column, closed set.
var thresholdColumns = map[domain.ThresholdKey]string{
	domain.ThresholdGreen:  "threshold_green",
	domain.ThresholdCyan:   "threshold_cyan",
	domain.ThresholdOrange: "threshold_orange",
	domain.ThresholdRed:    "threshold_red",
}

// PatchThresholds updates a subset of a ticker's threshold columns.
func (s *SQLiteStore) PatchThresholds(ctx context.Context, id string, patch map[domain.ThresholdKey]float64) error {
	if len(patch) == 0 {
		return nil
	}
	var sets []string
	var args []any
	for key, value := range patch {
		col, ok := thresholdColumns[key]
		if !ok {
			return fmt.Errorf("unknown threshold key %q", key)
		}
		sets = append(sets, col+" = ?")
		args = append(args, value)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE tickers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticker %s not found", id)
	}
	return nil
}

// UpsertPosition writes one broker's position on a ticker.
func (s *SQLiteStore) UpsertPosition(ctx context.Context, tickerID string, broker domain.Broker, pos domain.BrokerPosition) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO positions (ticker_id, broker, avg_book_cost, quantity_holding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker_id, broker) DO UPDATE SET
			avg_book_cost = excluded.avg_book_cost,
			quantity_holding = excluded.quantity_holding`,
		tickerID, string(broker), nullableFloat(pos.AvgBookCost), nullableFloat(pos.QuantityHolding))
	return err
}

// ---------------------------------------------------------------------------
// TradeStore implementation
// ---------------------------------------------------------------------------

// SaveTrade inserts a trade, assigning a UUID when the id is empty.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO trades
		(id, ticker_id, symbol, type, rate, quantity, broker, executed_at, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.TickerID, trade.Symbol, string(trade.Type), trade.Rate, trade.Quantity,
		string(trade.Broker), trade.ExecutedAt, nullableFloat(trade.Profit))
	if err != nil {
		return fmt.Errorf("inserting trade for %s: %w", trade.Symbol, err)
	}
	return nil
}

// ListTrades returns trades for a ticker, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, tickerID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ticker_id, symbol, type, rate, quantity, broker, executed_at, profit
		FROM trades WHERE ticker_id = ? ORDER BY executed_at DESC`, tickerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var profit sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.TickerID, &t.Symbol, &t.Type, &t.Rate, &t.Quantity, &t.Broker, &t.ExecutedAt, &profit); err != nil {
			return nil, err
		}
		if profit.Valid {
			t.Profit = domain.Float(profit.Float64)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTrade removes a trade by id.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trade %s not found", id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicker(row rowScanner) (*domain.TickerSnapshot, error) {
	var t domain.TickerSnapshot
	var classes string
	err := row.Scan(&t.ID, &t.Symbol, &t.SymbolID, &t.CompanyName, &t.Market, &classes,
		&t.Industry, &t.Bucket,
		&t.Thresholds.Green, &t.Thresholds.Cyan, &t.Thresholds.Orange, &t.Thresholds.Red)
	if err != nil {
		return nil, err
	}
	for _, c := range strings.Split(classes, ",") {
		if c != "" {
			t.StockClasses = append(t.StockClasses, domain.StockClass(c))
		}
	}
	t.PositionsByBroker = make(map[domain.Broker]domain.BrokerPosition)
	return &t, nil
}

// attachPositions loads positions for the given tickers in one query.
func (s *SQLiteStore) attachPositions(ctx context.Context, byID map[string]*domain.TickerSnapshot) error {
	ids := make([]string, 0, len(byID))
	args := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, "?")
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ticker_id, broker, avg_book_cost, quantity_holding
		FROM positions WHERE ticker_id IN (`+strings.Join(ids, ",")+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tickerID, broker string
		var avg, qty sql.NullFloat64
		if err := rows.Scan(&tickerID, &broker, &avg, &qty); err != nil {
			return err
		}
		t, ok := byID[tickerID]
		if !ok {
			continue
		}
		var pos domain.BrokerPosition
		if avg.Valid {
			pos.AvgBookCost = domain.Float(avg.Float64)
		}
		if qty.Valid {
			pos.QuantityHolding = domain.Float(qty.Float64)
		}
		t.PositionsByBroker[domain.Broker(broker)] = pos
	}
	return rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
