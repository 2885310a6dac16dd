package tickwatch

import (
	"context"
	"sync"

	"tickwatch/internal/domain"
	"tickwatch/internal/httpapi"
)

// OptionsCache memoizes the per-market filter options. The first caller for
// a market triggers the fetch; concurrent callers share that in-flight
// request instead of issuing their own.
type OptionsCache struct {
	client *Client

	mu       sync.Mutex
	cached   map[domain.Market]*httpapi.OptionsResponse
	inFlight map[domain.Market]chan struct{}
}

// NewOptionsCache creates a cache backed by the given client.
func NewOptionsCache(client *Client) *OptionsCache {
	return &OptionsCache{
		client:   client,
		cached:   make(map[domain.Market]*httpapi.OptionsResponse),
		inFlight: make(map[domain.Market]chan struct{}),
	}
}

// Get returns the options for a market, fetching them on first use. A failed
// fetch is not cached, so the next caller retries.
func (o *OptionsCache) Get(ctx context.Context, market domain.Market) (*httpapi.OptionsResponse, error) {
	for {
		o.mu.Lock()
		if opts, ok := o.cached[market]; ok {
			o.mu.Unlock()
			return opts, nil
		}
		if wait, ok := o.inFlight[market]; ok {
			o.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		done := make(chan struct{})
		o.inFlight[market] = done
		o.mu.Unlock()

		opts, err := o.client.Options(ctx, market)

		o.mu.Lock()
		delete(o.inFlight, market)
		if err == nil {
			o.cached[market] = opts
		}
		o.mu.Unlock()
		close(done)

		return opts, err
	}
}

// Invalidate drops the cached options for a market.
func (o *OptionsCache) Invalidate(market domain.Market) {
	o.mu.Lock()
	delete(o.cached, market)
	o.mu.Unlock()
}
