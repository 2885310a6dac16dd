package series

import "sync"

// LiveView tracks live quotes for the symbols currently on screen. It holds
// one cache subscription per visible symbol; SetPage swaps the subscriptions
// when the visible window changes, and notify fires on every quote for a
// visible symbol so the caller can redraw.
type LiveView struct {
	cache  *Cache
	notify func()

	mu     sync.Mutex
	quotes map[string]Latest
	unsubs []func()
}

// NewLiveView creates a view over the cache. notify may be nil.
func NewLiveView(cache *Cache, notify func()) *LiveView {
	return &LiveView{
		cache:  cache,
		notify: notify,
		quotes: make(map[string]Latest),
	}
}

// SetPage replaces the visible symbols, dropping old subscriptions and
// stale quotes. Symbols with a quote already on record show it immediately.
func (v *LiveView) SetPage(symbols []string) {
	v.mu.Lock()
	for _, u := range v.unsubs {
		u()
	}
	v.unsubs = v.unsubs[:0]
	v.quotes = make(map[string]Latest, len(symbols))
	v.mu.Unlock()

	for _, sym := range symbols {
		sym := sym
		unsub := v.cache.SubscribeLatest(sym, func(q Latest) {
			v.mu.Lock()
			v.quotes[sym] = q
			v.mu.Unlock()
			if v.notify != nil {
				v.notify()
			}
		})
		v.mu.Lock()
		v.unsubs = append(v.unsubs, unsub)
		v.mu.Unlock()
	}
}

// Quote returns the live quote for a visible symbol, if one has arrived.
func (v *LiveView) Quote(symbol string) (Latest, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	q, ok := v.quotes[symbol]
	return q, ok
}

// Stop drops every subscription.
func (v *LiveView) Stop() {
	v.SetPage(nil)
}
