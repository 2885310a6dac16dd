package domain

// PriceUpdate is a single live quote for one symbol. Optional fields are nil
// when the feed did not observe them this tick; the dashboard store merges
// only the fields that are present.
type PriceUpdate struct {
	Symbol        string   `json:"symbol"`
	SymbolID      int64    `json:"symbolId,omitempty"`
	Last          *float64 `json:"last,omitempty"`
	Bid           *float64 `json:"bid,omitempty"`
	Ask           *float64 `json:"ask,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	TradeDatetime string   `json:"tradeDatetime"`
}

// PositionPatch is a partial update to one broker's position on one ticker,
// pushed after a trade is recorded. Nil fields are left untouched.
type PositionPatch struct {
	Broker          Broker   `json:"broker"`
	AvgBookCost     *float64 `json:"avgBookCost,omitempty"`
	QuantityHolding *float64 `json:"quantityHolding,omitempty"`
}

// TradeEvent is the trade-patch message broadcast on the price WebSocket.
type TradeEvent struct {
	Symbol string        `json:"symbol"`
	Patch  PositionPatch `json:"patch"`
	TS     string        `json:"ts,omitempty"`
}

// TradeType is the side of a recorded trade.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is a manually recorded buy or sell against one broker account.
type Trade struct {
	ID         string    `json:"id"`
	TickerID   string    `json:"tickerId"`
	Symbol     string    `json:"symbol"`
	Type       TradeType `json:"type"`
	Rate       float64   `json:"rate"`
	Quantity   float64   `json:"quantity"`
	Broker     Broker    `json:"broker"`
	ExecutedAt string    `json:"executedAt"`
	Profit     *float64  `json:"profit,omitempty"`
}

// SeriesPoint is one observation in a symbol's intraday price series.
type SeriesPoint struct {
	T int64   `json:"t"` // Unix ms
	V float64 `json:"v"`
}
