package dashboard

import (
	"sort"
	"strings"

	"tickwatch/internal/domain"
)

// FavorableCap limits the favorable side list so it stays readable on wild
// days.
const FavorableCap = 20

// Filters is the user-selected view filter. An empty Market or StockClass
// matches everything; a nonempty Symbols list restricts the view to those
// symbols (case-insensitive).
type Filters struct {
	Market     domain.Market
	StockClass domain.StockClass
	Symbols    []string
	SortBy     SortBy
}

// Apply filters and sorts a snapshot collection for display. It is a pure
// projection: the input slice is not modified and no state is retained.
func Apply(tickers []*domain.TickerSnapshot, f Filters, silenced map[string]bool) []*domain.TickerSnapshot {
	var allow map[string]bool
	if len(f.Symbols) > 0 {
		allow = make(map[string]bool, len(f.Symbols))
		for _, s := range f.Symbols {
			allow[strings.ToUpper(s)] = true
		}
	}

	out := make([]*domain.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		if f.Market != "" && t.Market != f.Market {
			continue
		}
		if f.StockClass != "" && !t.HasClass(f.StockClass) {
			continue
		}
		if allow != nil && !allow[strings.ToUpper(t.Symbol)] {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return CompareBySort(out[i], out[j], f.SortBy, silenced) < 0
	})
	return out
}

// Favorable returns the favorability-sorted list of tickers currently in an
// alert state, capped at FavorableCap entries.
func Favorable(tickers []*domain.TickerSnapshot, silenced map[string]bool) []*domain.TickerSnapshot {
	fav := make([]*domain.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		if IsFavorable(t, silenced[t.ID]) {
			fav = append(fav, t)
		}
	}
	sort.SliceStable(fav, func(i, j int) bool {
		return CompareBySort(fav[i], fav[j], SortFavorability, silenced) < 0
	})
	if len(fav) > FavorableCap {
		fav = fav[:FavorableCap]
	}
	return fav
}
