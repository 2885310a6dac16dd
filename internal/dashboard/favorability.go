package dashboard

import (
	"strings"

	"tickwatch/internal/domain"
)

// FavState is the discrete alert classification of a ticker: which threshold
// it currently violates, split by holding state. Lower rank sorts first.
type FavState int

const (
	FavHoldGreen  FavState = iota // holding, price at or above green
	FavHoldCyan                   // holding, price at or above cyan
	FavFlatRed                    // not holding, price at or below red
	FavHoldRed                    // holding, price at or below red
	FavHoldOrange                 // holding, price at or below orange
	FavFlatOrange                 // not holding, price at or below orange
	FavNone
)

func (s FavState) String() string {
	switch s {
	case FavHoldGreen:
		return "HOLD_GREEN"
	case FavHoldCyan:
		return "HOLD_CYAN"
	case FavFlatRed:
		return "Q0_RED"
	case FavHoldRed:
		return "HOLD_RED"
	case FavHoldOrange:
		return "HOLD_ORANGE"
	case FavFlatOrange:
		return "Q0_ORANGE"
	}
	return "NONE"
}

func favRank(s FavState) int {
	if s == FavNone {
		return 99
	}
	return int(s)
}

// BucketRank maps the curated bucket tag to its sort priority.
func BucketRank(b domain.Bucket) int {
	switch b {
	case domain.BucketCore:
		return 0
	case domain.BucketWatch:
		return 1
	case domain.BucketOnce:
		return 2
	case domain.BucketAvoid:
		return 3
	}
	return 99
}

// Classify computes the favorability state of a snapshot. Check order is
// green, cyan, red, orange with first match winning; the holding branch is
// evaluated before the flat branch. silencedBuy suppresses only the buy-zone
// states (red/orange); sell-zone states ring through a silence.
func Classify(t *domain.TickerSnapshot, silencedBuy bool) FavState {
	qty := 0.0
	if t.QuantityHolding != nil {
		qty = *t.QuantityHolding
	}
	last := 0.0
	if t.LastPrice != nil {
		last = *t.LastPrice
	}

	th := t.Thresholds
	above := func(v float64) bool { return v > 0 && last >= v }
	below := func(v float64) bool { return v > 0 && last <= v }

	if qty > 0 {
		if above(th.Green) {
			return FavHoldGreen
		}
		if above(th.Cyan) {
			return FavHoldCyan
		}
		if below(th.Red) {
			if silencedBuy {
				return FavNone
			}
			return FavHoldRed
		}
		if below(th.Orange) {
			if silencedBuy {
				return FavNone
			}
			return FavHoldOrange
		}
		return FavNone
	}

	if below(th.Red) {
		if silencedBuy {
			return FavNone
		}
		return FavFlatRed
	}
	if below(th.Orange) {
		if silencedBuy {
			return FavNone
		}
		return FavFlatOrange
	}
	return FavNone
}

// IsFavorable reports whether the snapshot is in any alert state.
func IsFavorable(t *domain.TickerSnapshot, silencedBuy bool) bool {
	return Classify(t, silencedBuy) != FavNone
}

// SortBy selects the ordering applied to the rendered ticker list.
type SortBy string

const (
	SortAZ           SortBy = "az"
	SortZA           SortBy = "za"
	SortBucket       SortBy = "bucket"
	SortFavorability SortBy = "favorability"
)

// CompareBySort orders two snapshots under the given sort mode. Returns a
// negative value when a sorts before b. Favorability mode puts favorable
// tickers first, then ranks by the state ladder, breaking ties by bucket and
// finally by symbol.
func CompareBySort(a, b *domain.TickerSnapshot, sortBy SortBy, silenced map[string]bool) int {
	switch sortBy {
	case SortAZ:
		return strings.Compare(a.Symbol, b.Symbol)
	case SortZA:
		return strings.Compare(b.Symbol, a.Symbol)
	case SortBucket:
		if d := BucketRank(a.Bucket) - BucketRank(b.Bucket); d != 0 {
			return d
		}
		return strings.Compare(a.Symbol, b.Symbol)
	}

	// favorability (default)
	aState := Classify(a, silenced[a.ID])
	bState := Classify(b, silenced[b.ID])

	aFav := aState != FavNone
	bFav := bState != FavNone
	if aFav != bFav {
		if aFav {
			return -1
		}
		return 1
	}

	if d := favRank(aState) - favRank(bState); d != 0 {
		return d
	}
	if d := BucketRank(a.Bucket) - BucketRank(b.Bucket); d != 0 {
		return d
	}
	return strings.Compare(a.Symbol, b.Symbol)
}
