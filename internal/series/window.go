package series

import (
	"context"
	"sync"
	"time"
)

// Pages chunks the selected symbols into fixed-size tab pages. A size of
// zero or less yields a single page with everything.
func Pages(symbols []string, perPage int) [][]string {
	if perPage <= 0 {
		return [][]string{symbols}
	}
	var out [][]string
	for i := 0; i < len(symbols); i += perPage {
		end := i + perPage
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}

// Rotator cycles the active tab page on a timer, the chart wall's rotation
// mode. Zero-value is a stopped rotator on page 0.
type Rotator struct {
	mu       sync.Mutex
	active   int
	pages    int
	interval time.Duration
	onChange func(int)
	cancel   context.CancelFunc
}

// NewRotator creates a rotator over the given page count. onChange fires on
// every rotation and manual selection with the new active page.
func NewRotator(pages int, interval time.Duration, onChange func(int)) *Rotator {
	return &Rotator{pages: pages, interval: interval, onChange: onChange}
}

// Active returns the current page index.
func (r *Rotator) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Select jumps to a page, clamped into range.
func (r *Rotator) Select(page int) {
	r.mu.Lock()
	if r.pages > 0 {
		if page < 0 {
			page = 0
		}
		if page >= r.pages {
			page = r.pages - 1
		}
	} else {
		page = 0
	}
	changed := page != r.active
	r.active = page
	cb := r.onChange
	r.mu.Unlock()

	if changed && cb != nil {
		cb(page)
	}
}

// SetPages updates the page count (e.g. after reselecting symbols), keeping
// the active page in range.
func (r *Rotator) SetPages(pages int) {
	r.mu.Lock()
	r.pages = pages
	if pages <= 0 {
		r.active = 0
	} else if r.active >= pages {
		r.active = pages - 1
	}
	r.mu.Unlock()
}

// Start begins rotating. Rotation with a single page or a non-positive
// interval is a no-op. Stop (or a prior Start) cancels the previous loop.
func (r *Rotator) Start() {
	r.Stop()

	r.mu.Lock()
	if r.interval <= 0 || r.pages <= 1 {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	interval := r.interval
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.mu.Lock()
				if r.pages > 1 {
					r.active = (r.active + 1) % r.pages
				}
				page := r.active
				cb := r.onChange
				r.mu.Unlock()
				if cb != nil {
					cb(page)
				}
			}
		}
	}()
}

// Stop halts rotation. Safe to call repeatedly.
func (r *Rotator) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
