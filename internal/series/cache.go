// Package series holds the chart wall's per-symbol intraday series cache:
// fetch-on-demand with in-flight dedup, latest-quote fan-out to subscribers,
// and tab/rotation windowing over the selected symbols.
package series

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tickwatch/internal/domain"
)

// Series is one symbol's time/value arrays for the loaded day.
type Series struct {
	T []int64
	V []float64
}

// Latest is the most recent live quote pushed for a symbol.
type Latest struct {
	Price float64
	Time  string
}

// FetchFunc loads day series for a set of symbols from the chart collaborator.
// It returns the loaded day, its timezone, and a series per symbol.
type FetchFunc func(ctx context.Context, market domain.Market, symbols []string) (day, tz string, series map[string]Series, err error)

// Cache owns the symbol→series map for one market at a time. Structurally it
// mirrors the dashboard store: an owned keyed map, single mutation path per
// concern, and subscriber registries with deterministic add/remove.
type Cache struct {
	fetch FetchFunc
	log   *slog.Logger

	mu         sync.Mutex
	market     domain.Market
	series     map[string]Series
	latest     map[string]Latest
	inFlight   map[string]bool
	loadedDay  string
	loadedTz   string
	nextSubID  int
	latestSubs map[string]map[int]func(Latest)
	seriesSubs map[string]map[int]func()
}

// NewCache creates an empty cache for the given market.
func NewCache(market domain.Market, fetch FetchFunc, log *slog.Logger) *Cache {
	return &Cache{
		fetch:      fetch,
		log:        log,
		market:     market,
		series:     make(map[string]Series),
		latest:     make(map[string]Latest),
		inFlight:   make(map[string]bool),
		latestSubs: make(map[string]map[int]func(Latest)),
		seriesSubs: make(map[string]map[int]func()),
	}
}

// SetMarket switches markets, dropping every cached series and the loaded
// day. Subscriptions survive; subscribers see fresh data after the next
// EnsureSeries.
func (c *Cache) SetMarket(market domain.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if market == c.market {
		return
	}
	c.market = market
	c.series = make(map[string]Series)
	c.inFlight = make(map[string]bool)
	c.loadedDay = ""
	c.loadedTz = ""
}

// Get returns the cached series for a symbol, if loaded.
func (c *Cache) Get(symbol string) (Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.series[symbol]
	return s, ok
}

// LoadedDay reports which trading day the cached series cover.
func (c *Cache) LoadedDay() (day, tz string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedDay, c.loadedTz
}

// PublishLatest records a live quote and fans it out to that symbol's
// subscribers. Wired to the price WebSocket: the first present field of
// last/bid/ask wins.
func (c *Cache) PublishLatest(u domain.PriceUpdate) {
	price := u.Last
	if price == nil {
		price = u.Bid
	}
	if price == nil {
		price = u.Ask
	}
	if price == nil {
		return
	}

	payload := Latest{Price: *price, Time: u.TradeDatetime}

	c.mu.Lock()
	c.latest[u.Symbol] = payload
	subs := make([]func(Latest), 0, len(c.latestSubs[u.Symbol]))
	for _, cb := range c.latestSubs[u.Symbol] {
		subs = append(subs, cb)
	}
	c.mu.Unlock()

	for _, cb := range subs {
		cb(payload)
	}
}

// SubscribeLatest registers a callback for live quotes on one symbol and
// returns an unsubscribe func. If a quote is already on record the callback
// fires immediately with it.
func (c *Cache) SubscribeLatest(symbol string, cb func(Latest)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	set := c.latestSubs[symbol]
	if set == nil {
		set = make(map[int]func(Latest))
		c.latestSubs[symbol] = set
	}
	set[id] = cb
	existing, hasExisting := c.latest[symbol]
	c.mu.Unlock()

	if hasExisting {
		cb(existing)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if set, ok := c.latestSubs[symbol]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(c.latestSubs, symbol)
			}
		}
	}
}

// SubscribeSeries registers a callback invoked whenever a symbol's day
// series (re)loads, and returns an unsubscribe func.
func (c *Cache) SubscribeSeries(symbol string, cb func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	set := c.seriesSubs[symbol]
	if set == nil {
		set = make(map[int]func())
		c.seriesSubs[symbol] = set
	}
	set[id] = cb

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if set, ok := c.seriesSubs[symbol]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(c.seriesSubs, symbol)
			}
		}
	}
}

// EnsureSeries fetches day series for any of the given symbols that are
// neither cached nor already being fetched. Concurrent callers asking for
// the same symbol trigger one fetch.
func (c *Cache) EnsureSeries(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	market := c.market
	var missing []string
	for _, s := range symbols {
		if _, ok := c.series[s]; ok {
			continue
		}
		if c.inFlight[s] {
			continue
		}
		c.inFlight[s] = true
		missing = append(missing, s)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	day, tz, loaded, err := c.fetch(ctx, market, missing)

	c.mu.Lock()
	for _, s := range missing {
		delete(c.inFlight, s)
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("fetching series for %d symbols: %w", len(missing), err)
	}
	c.loadedDay = day
	c.loadedTz = tz
	var notify []func()
	for sym, ser := range loaded {
		c.series[sym] = ser
		for _, cb := range c.seriesSubs[sym] {
			notify = append(notify, cb)
		}
	}
	c.mu.Unlock()

	for _, cb := range notify {
		cb()
	}
	c.log.Debug("loaded chart series", "symbols", len(loaded), "day", day)
	return nil
}
