// Package domain defines the core watchlist types shared across the system:
// ticker snapshots, broker positions, and the wire DTOs carried over the
// price WebSocket and the REST API.
package domain

// Market identifies the exchange region a ticker trades in.
type Market string

const (
	MarketCanada Market = "canada"
	MarketUSA    Market = "usa"
	MarketIndia  Market = "india"
)

// StockClass is a classification tag applied to a ticker. A ticker can carry
// several classes at once (e.g. both dividend and longTerm).
type StockClass string

const (
	ClassDividend StockClass = "dividend"
	ClassTrade    StockClass = "trade"
	ClassLongTerm StockClass = "longTerm"
)

// Bucket is the manually curated priority tag used as a sort tie-breaker.
type Bucket string

const (
	BucketCore  Bucket = "core"
	BucketWatch Bucket = "watch"
	BucketOnce  Bucket = "once"
	BucketAvoid Bucket = "avoid"
)

// Broker identifies one of the known brokerage accounts.
type Broker string

const (
	BrokerWealthsimple Broker = "wealthsimple"
	BrokerQuestrade    Broker = "questrade"
	BrokerIBKR         Broker = "ibkr"
)

// DefaultBroker is preferred by broker auto-selection when it holds shares,
// and is the fallback when no broker holds any.
const DefaultBroker = BrokerWealthsimple

// Brokers lists the known brokers in a fixed order. Broker auto-selection
// scans this slice rather than a map so the result is deterministic.
var Brokers = []Broker{BrokerWealthsimple, BrokerQuestrade, BrokerIBKR}

// BrokerPosition is the cost-basis position held at a single broker.
// Fields are nil until a trade establishes them.
type BrokerPosition struct {
	AvgBookCost     *float64 `json:"avgBookCost"`
	QuantityHolding *float64 `json:"quantityHolding"`
}

// ThresholdKey names one of the four alert thresholds on a ticker.
type ThresholdKey string

const (
	ThresholdGreen  ThresholdKey = "thresholdGreen"
	ThresholdCyan   ThresholdKey = "thresholdCyan"
	ThresholdOrange ThresholdKey = "thresholdOrange"
	ThresholdRed    ThresholdKey = "thresholdRed"
)

// ThresholdKeys lists the threshold keys from highest to lowest.
var ThresholdKeys = []ThresholdKey{ThresholdGreen, ThresholdCyan, ThresholdOrange, ThresholdRed}

// Thresholds is the ordered alert quadruple. A valid quadruple satisfies
// Green > Cyan > Orange > Red >= 0.01.
type Thresholds struct {
	Green  float64 `json:"thresholdGreen"`
	Cyan   float64 `json:"thresholdCyan"`
	Orange float64 `json:"thresholdOrange"`
	Red    float64 `json:"thresholdRed"`
}

// Get returns the value stored under key. Unknown keys return 0.
func (t Thresholds) Get(key ThresholdKey) float64 {
	switch key {
	case ThresholdGreen:
		return t.Green
	case ThresholdCyan:
		return t.Cyan
	case ThresholdOrange:
		return t.Orange
	case ThresholdRed:
		return t.Red
	}
	return 0
}

// With returns a copy of t with key replaced by value.
func (t Thresholds) With(key ThresholdKey, value float64) Thresholds {
	switch key {
	case ThresholdGreen:
		t.Green = value
	case ThresholdCyan:
		t.Cyan = value
	case ThresholdOrange:
		t.Orange = value
	case ThresholdRed:
		t.Red = value
	}
	return t
}

// TickerSnapshot is the authoritative per-ticker state held by the dashboard
// store. Live market fields stay nil until the first price event arrives.
// AvgBookCost, QuantityHolding, and TotalReturn are derived: they always
// mirror the position of UISelectedBroker and are recomputed whenever
// PositionsByBroker, UISelectedBroker, or LastPrice changes.
type TickerSnapshot struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	SymbolID     int64        `json:"symbolId,omitempty"`
	CompanyName  string       `json:"companyName"`
	Market       Market       `json:"market"`
	StockClasses []StockClass `json:"stockClasses"`
	Industry     string       `json:"industry,omitempty"`
	Bucket       Bucket       `json:"bucket"`

	LastPrice  *float64 `json:"lastPrice"`
	BidPrice   *float64 `json:"bidPrice"`
	AskPrice   *float64 `json:"askPrice"`
	Volume     *float64 `json:"volume"`
	UpdateTime string   `json:"updateDatetime,omitempty"`
	TradeTime  string   `json:"tradeDatetime,omitempty"`

	Thresholds Thresholds `json:"thresholds"`

	PositionsByBroker map[Broker]BrokerPosition `json:"positionsByBroker"`

	UISelectedBroker Broker   `json:"uiSelectedBroker,omitempty"`
	AvgBookCost      *float64 `json:"avgBookCost"`
	QuantityHolding  *float64 `json:"quantityHolding"`
	TotalReturn      float64  `json:"totalReturn"`
}

// HasClass reports whether the ticker carries the given class tag.
func (t *TickerSnapshot) HasClass(class StockClass) bool {
	for _, c := range t.StockClasses {
		if c == class {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the snapshot, including the positions map.
func (t *TickerSnapshot) Clone() *TickerSnapshot {
	c := *t
	c.StockClasses = append([]StockClass(nil), t.StockClasses...)
	c.PositionsByBroker = make(map[Broker]BrokerPosition, len(t.PositionsByBroker))
	for b, p := range t.PositionsByBroker {
		c.PositionsByBroker[b] = BrokerPosition{
			AvgBookCost:     copyFloat(p.AvgBookCost),
			QuantityHolding: copyFloat(p.QuantityHolding),
		}
	}
	c.LastPrice = copyFloat(t.LastPrice)
	c.BidPrice = copyFloat(t.BidPrice)
	c.AskPrice = copyFloat(t.AskPrice)
	c.Volume = copyFloat(t.Volume)
	c.AvgBookCost = copyFloat(t.AvgBookCost)
	c.QuantityHolding = copyFloat(t.QuantityHolding)
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for building optional fields in literals.
func Float(v float64) *float64 { return &v }
