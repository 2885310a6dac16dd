package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tickwatch/internal/chime"
	"tickwatch/internal/domain"
)

// TickerAPI is the REST collaborator the store loads from and persists
// threshold edits to.
type TickerAPI interface {
	ListTickerLatest(ctx context.Context, market domain.Market, class domain.StockClass) ([]domain.TickerSnapshot, error)
	PatchThresholds(ctx context.Context, id string, patch map[domain.ThresholdKey]float64) error
}

// Chimer plays an alert tone. Satisfied by *chime.Engine.
type Chimer interface {
	Play(key chime.Key)
}

// SilenceStore persists the per-ticker silenced map across restarts.
type SilenceStore interface {
	Load() (map[string]bool, error)
	Save(map[string]bool) error
}

// ValidationError is returned by EditThreshold when the proposed edit
// violates the ordering or floor rules. No mutation occurs in that case.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid threshold edit (%d field errors)", len(e.Result.Errors))
}

// armState records whether a chime has already fired for the current
// excursion past each threshold. A flag is cleared (re-armed) only when the
// price returns to the side where that chime does not apply.
type armState struct {
	Green  bool
	Cyan   bool
	Orange bool
	Red    bool
}

// Store owns the authoritative symbol→snapshot map for the currently loaded
// market/class view. All mutation goes through its entry points; each inbound
// event is applied as one atomic read-then-write unit under the mutex. The
// chime arm-state and last-price side tables are private to the store and
// reset on every full reload.
type Store struct {
	api    TickerAPI
	chimes Chimer
	prefs  SilenceStore
	log    *slog.Logger

	mu          sync.Mutex
	bySymbol    map[string]*domain.TickerSnapshot
	lastPrice   map[string]float64
	initialized map[string]bool
	armed       map[string]*armState
	silenced    map[string]bool
	soundOn     bool
}

// NewStore creates an empty store. The silenced map is read from prefs once
// here; a read failure starts with an empty map and is logged, not fatal.
func NewStore(api TickerAPI, chimes Chimer, prefs SilenceStore, log *slog.Logger) *Store {
	s := &Store{
		api:         api,
		chimes:      chimes,
		prefs:       prefs,
		log:         log,
		bySymbol:    make(map[string]*domain.TickerSnapshot),
		lastPrice:   make(map[string]float64),
		initialized: make(map[string]bool),
		armed:       make(map[string]*armState),
		silenced:    make(map[string]bool),
	}
	if prefs != nil {
		if m, err := prefs.Load(); err != nil {
			log.Warn("loading silenced prefs", "error", err)
		} else if m != nil {
			s.silenced = m
		}
	}
	return s
}

// Load fetches the ticker rows for a market/class view and replaces the
// whole map. This is the only wholesale replacement; it also resets the
// chime arm-state and last-price trackers.
func (s *Store) Load(ctx context.Context, market domain.Market, class domain.StockClass) error {
	rows, err := s.api.ListTickerLatest(ctx, market, class)
	if err != nil {
		return fmt.Errorf("listing tickers: %w", err)
	}
	if ctx.Err() != nil {
		// View went away while the fetch was in flight; don't commit.
		return ctx.Err()
	}

	bySymbol := make(map[string]*domain.TickerSnapshot, len(rows))
	for i := range rows {
		t := rows[i].Clone()
		if t.PositionsByBroker == nil {
			t.PositionsByBroker = make(map[domain.Broker]domain.BrokerPosition)
		}
		t.UpdateTime = normalizeTime(t.UpdateTime)
		t.TradeTime = normalizeTime(t.TradeTime)
		applyDerived(t, effectiveBroker(t))
		bySymbol[t.Symbol] = t
	}

	s.mu.Lock()
	s.bySymbol = bySymbol
	s.lastPrice = make(map[string]float64)
	s.initialized = make(map[string]bool)
	s.armed = make(map[string]*armState)
	s.mu.Unlock()

	s.log.Info("loaded ticker view", "market", market, "stockClass", class, "tickers", len(bySymbol))
	return nil
}

// ApplyPriceBatch merges a batch of price updates in order. The whole batch
// is applied under one lock so no other event interleaves with it.
func (s *Store) ApplyPriceBatch(batch []domain.PriceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range batch {
		s.applyPriceLocked(&batch[i])
	}
}

// ApplyPriceUpdate merges a single price update.
func (s *Store) ApplyPriceUpdate(u domain.PriceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyPriceLocked(&u)
}

func (s *Store) applyPriceLocked(u *domain.PriceUpdate) {
	t, ok := s.bySymbol[u.Symbol]
	if !ok {
		// Events for tickers outside the current view arrive continuously;
		// dropping them is normal steady state, not an error.
		return
	}

	// Field-partial merge: only fields present in the event change.
	if u.Last != nil {
		v := *u.Last
		t.LastPrice = &v
	}
	if u.Bid != nil {
		v := *u.Bid
		t.BidPrice = &v
	}
	if u.Ask != nil {
		v := *u.Ask
		t.AskPrice = &v
	}
	if u.Volume != nil {
		v := *u.Volume
		t.Volume = &v
	}
	if u.SymbolID != 0 {
		t.SymbolID = u.SymbolID
	}
	if u.TradeDatetime != "" {
		ts := normalizeTime(u.TradeDatetime)
		t.UpdateTime = ts
		t.TradeTime = ts
	}

	applyDerived(t, effectiveBroker(t))

	if t.LastPrice == nil {
		return
	}
	next := *t.LastPrice
	sym := t.Symbol
	prev, hasPrev := s.lastPrice[sym]

	// No chime on the very first observation for a symbol.
	if s.soundOn && s.initialized[sym] && hasPrev {
		s.detectCrossings(sym, t.Thresholds, prev, next)
	}

	s.initialized[sym] = true
	s.lastPrice[sym] = next
}

// detectCrossings fires at most one sell-zone and one buy-zone chime per
// event. Crossing green implies cyan (and red implies orange), so the weaker
// chime is armed without firing to avoid a redundant second ding.
func (s *Store) detectCrossings(sym string, th domain.Thresholds, prev, next float64) {
	st := s.armed[sym]
	if st == nil {
		st = &armState{}
		s.armed[sym] = st
	}

	// Sell zone: ring only on upward cross. Green beats cyan.
	crossedUpGreen := th.Green > 0 && prev < th.Green && next >= th.Green && !st.Green
	crossedUpCyan := th.Cyan > 0 && prev < th.Cyan && next >= th.Cyan && !st.Cyan
	if crossedUpGreen {
		s.chimes.Play(chime.Green)
		st.Green = true
		st.Cyan = true
	} else if crossedUpCyan {
		s.chimes.Play(chime.Cyan)
		st.Cyan = true
	}

	// Re-arm when price drops back below each threshold.
	if th.Green > 0 && next < th.Green {
		st.Green = false
	}
	if th.Cyan > 0 && next < th.Cyan {
		st.Cyan = false
	}

	// Buy zone: ring only on downward cross. Red beats orange.
	crossedDownRed := th.Red > 0 && prev > th.Red && next <= th.Red && !st.Red
	crossedDownOrange := th.Orange > 0 && prev > th.Orange && next <= th.Orange && !st.Orange
	if crossedDownRed {
		s.chimes.Play(chime.Red)
		st.Red = true
		st.Orange = true
	} else if crossedDownOrange {
		s.chimes.Play(chime.Orange)
		st.Orange = true
	}

	// Re-arm when price recovers back above each threshold.
	if th.Red > 0 && next > th.Red {
		st.Red = false
	}
	if th.Orange > 0 && next > th.Orange {
		st.Orange = false
	}
}

// ApplyTrade shallow-merges a position patch into one broker's entry on one
// ticker. Other brokers' positions are untouched. Unknown symbols drop
// silently, same as price events.
func (s *Store) ApplyTrade(msg domain.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.bySymbol[msg.Symbol]
	if !ok {
		return
	}

	pos := t.PositionsByBroker[msg.Patch.Broker]
	if msg.Patch.AvgBookCost != nil {
		v := *msg.Patch.AvgBookCost
		pos.AvgBookCost = &v
	}
	if msg.Patch.QuantityHolding != nil {
		v := *msg.Patch.QuantityHolding
		pos.QuantityHolding = &v
	}
	t.PositionsByBroker[msg.Patch.Broker] = pos

	applyDerived(t, effectiveBroker(t))
}

// SelectBroker records an explicit user broker choice for one ticker and
// recomputes the derived fields. The choice is sticky: later events keep it
// as long as the broker stays in the positions map.
func (s *Store) SelectBroker(symbol string, broker domain.Broker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.bySymbol[symbol]
	if !ok {
		return
	}
	applyDerived(t, broker)
}

// EditThreshold validates and optimistically applies a threshold edit, then
// persists it. On persistence failure the exact pre-edit value (captured
// before the optimistic write, not recomputed) is restored and the error is
// returned for the caller to surface.
func (s *Store) EditThreshold(ctx context.Context, tickerID string, key domain.ThresholdKey, value float64) error {
	s.mu.Lock()
	t := s.findByIDLocked(tickerID)
	if t == nil {
		s.mu.Unlock()
		return fmt.Errorf("ticker %s not loaded", tickerID)
	}
	if res := ValidateThresholdEdit(t.Thresholds, key, value); !res.Ok {
		s.mu.Unlock()
		return &ValidationError{Result: res}
	}

	previous := t.Thresholds.Get(key)
	t.Thresholds = t.Thresholds.With(key, value)
	s.mu.Unlock()

	err := s.api.PatchThresholds(ctx, tickerID, map[domain.ThresholdKey]float64{key: value})
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if t := s.findByIDLocked(tickerID); t != nil {
		t.Thresholds = t.Thresholds.With(key, previous)
	}
	s.mu.Unlock()

	s.log.Warn("threshold save failed, rolled back", "tickerId", tickerID, "key", key, "error", err)
	return fmt.Errorf("saving threshold: %w", err)
}

// findByIDLocked locates a snapshot by ticker id. The map is keyed by
// symbol, so threshold edits (which arrive with an id) scan the values.
func (s *Store) findByIDLocked(id string) *domain.TickerSnapshot {
	for _, t := range s.bySymbol {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ToggleSilence flips the buy-zone silence for a ticker id and persists the
// whole map. A persistence failure is logged but does not undo the toggle.
func (s *Store) ToggleSilence(tickerID string) {
	s.mu.Lock()
	s.silenced[tickerID] = !s.silenced[tickerID]
	snapshot := copyBoolMap(s.silenced)
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.Save(snapshot); err != nil {
			s.log.Warn("saving silenced prefs", "error", err)
		}
	}
}

// SetSoundEnabled gates the crossing chimes. Callers must unlock the chime
// engine (a successful chime.Engine.Unlock) before enabling sound.
func (s *Store) SetSoundEnabled(on bool) {
	s.mu.Lock()
	s.soundOn = on
	s.mu.Unlock()
}

// SoundEnabled reports the current chime gate.
func (s *Store) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundOn
}

// Silenced returns a copy of the silenced map.
func (s *Store) Silenced() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBoolMap(s.silenced)
}

// Snapshots returns deep copies of all loaded snapshots, safe to read while
// events keep flowing.
func (s *Store) Snapshots() []*domain.TickerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TickerSnapshot, 0, len(s.bySymbol))
	for _, t := range s.bySymbol {
		out = append(out, t.Clone())
	}
	return out
}

// Get returns a copy of one snapshot by symbol.
func (s *Store) Get(symbol string) (*domain.TickerSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.bySymbol[symbol]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Len reports how many tickers are loaded.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySymbol)
}

// effectiveBroker honors a sticky selection while it still exists in the
// positions map, and re-runs auto-selection otherwise.
func effectiveBroker(t *domain.TickerSnapshot) domain.Broker {
	if b := t.UISelectedBroker; b != "" {
		if _, ok := t.PositionsByBroker[b]; ok {
			return b
		}
	}
	return PickDefaultBroker(t)
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// timeLayouts are the timestamp shapes feeds and the API are known to emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// normalizeTime canonicalizes a timestamp string to UTC RFC3339. Unparseable
// values pass through unchanged rather than being dropped.
func normalizeTime(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	return s
}
