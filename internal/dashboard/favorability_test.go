package dashboard

import (
	"testing"

	"tickwatch/internal/domain"
)

func favTicker(last float64, qty float64) *domain.TickerSnapshot {
	t := &domain.TickerSnapshot{
		Symbol:     "FAV",
		Thresholds: domain.Thresholds{Green: 100, Cyan: 80, Orange: 60, Red: 40},
		LastPrice:  domain.Float(last),
	}
	if qty > 0 {
		t.QuantityHolding = domain.Float(qty)
	}
	return t
}

func TestClassifyHoldingLadder(t *testing.T) {
	cases := []struct {
		last float64
		want FavState
	}{
		{110, FavHoldGreen},
		{100, FavHoldGreen}, // at-threshold counts
		{90, FavHoldCyan},
		{70, FavNone}, // between cyan and orange
		{60, FavHoldOrange},
		{40, FavHoldRed},
		{30, FavHoldRed},
	}
	for _, tc := range cases {
		if got := Classify(favTicker(tc.last, 5), false); got != tc.want {
			t.Errorf("Classify(last=%v, holding) = %s, want %s", tc.last, got, tc.want)
		}
	}
}

func TestClassifyFlatOnlyBuyZone(t *testing.T) {
	// Without a holding the sell-zone states never apply.
	if got := Classify(favTicker(110, 0), false); got != FavNone {
		t.Errorf("flat above green = %s, want NONE", got)
	}
	if got := Classify(favTicker(35, 0), false); got != FavFlatRed {
		t.Errorf("flat below red = %s, want Q0_RED", got)
	}
	if got := Classify(favTicker(55, 0), false); got != FavFlatOrange {
		t.Errorf("flat below orange = %s, want Q0_ORANGE", got)
	}
}

func TestClassifySilenceSuppressesOnlyBuyZone(t *testing.T) {
	// Silence kills the buy-zone states.
	if got := Classify(favTicker(35, 5), true); got != FavNone {
		t.Errorf("silenced hold-red = %s, want NONE", got)
	}
	if got := Classify(favTicker(35, 0), true); got != FavNone {
		t.Errorf("silenced flat-red = %s, want NONE", got)
	}
	// Sell-zone states ring through.
	if got := Classify(favTicker(110, 5), true); got != FavHoldGreen {
		t.Errorf("silenced hold-green = %s, want HOLD_GREEN", got)
	}
}

func TestClassifyZeroThresholdsNeverMatch(t *testing.T) {
	tk := favTicker(50, 5)
	tk.Thresholds = domain.Thresholds{}
	if got := Classify(tk, false); got != FavNone {
		t.Errorf("zero thresholds = %s, want NONE", got)
	}
}

func TestFavStateStrings(t *testing.T) {
	want := map[FavState]string{
		FavHoldGreen:  "HOLD_GREEN",
		FavHoldCyan:   "HOLD_CYAN",
		FavFlatRed:    "Q0_RED",
		FavHoldRed:    "HOLD_RED",
		FavHoldOrange: "HOLD_ORANGE",
		FavFlatOrange: "Q0_ORANGE",
		FavNone:       "NONE",
	}
	for state, s := range want {
		if got := state.String(); got != s {
			t.Errorf("%d.String() = %q, want %q", state, got, s)
		}
	}
}

func TestCompareBySortFavorability(t *testing.T) {
	holdGreen := favTicker(110, 5)
	holdGreen.Symbol = "B"
	holdCyan := favTicker(90, 5)
	holdCyan.Symbol = "C"
	none := favTicker(70, 5)
	none.Symbol = "A"

	// Favorable before unfavorable regardless of symbol.
	if CompareBySort(holdGreen, none, SortFavorability, nil) >= 0 {
		t.Error("favorable should sort before unfavorable")
	}
	// Stronger state first.
	if CompareBySort(holdGreen, holdCyan, SortFavorability, nil) >= 0 {
		t.Error("HOLD_GREEN should sort before HOLD_CYAN")
	}
	// Equal state: bucket rank breaks the tie.
	coreCyan := favTicker(90, 5)
	coreCyan.Symbol = "Z"
	coreCyan.Bucket = domain.BucketCore
	avoidCyan := favTicker(90, 5)
	avoidCyan.Symbol = "A"
	avoidCyan.Bucket = domain.BucketAvoid
	if CompareBySort(coreCyan, avoidCyan, SortFavorability, nil) >= 0 {
		t.Error("core bucket should sort before avoid at equal state")
	}
}

func TestCompareBySortAlphabetic(t *testing.T) {
	a := favTicker(70, 0)
	a.Symbol = "AAA"
	b := favTicker(70, 0)
	b.Symbol = "BBB"

	if CompareBySort(a, b, SortAZ, nil) >= 0 {
		t.Error("az: AAA should sort before BBB")
	}
	if CompareBySort(a, b, SortZA, nil) <= 0 {
		t.Error("za: BBB should sort before AAA")
	}
}

func TestBucketRank(t *testing.T) {
	order := []domain.Bucket{domain.BucketCore, domain.BucketWatch, domain.BucketOnce, domain.BucketAvoid}
	for i := 1; i < len(order); i++ {
		if !(BucketRank(order[i-1]) < BucketRank(order[i])) {
			t.Errorf("BucketRank(%s) should precede BucketRank(%s)", order[i-1], order[i])
		}
	}
	if BucketRank("") <= BucketRank(domain.BucketAvoid) {
		t.Error("unknown bucket should rank last")
	}
}
