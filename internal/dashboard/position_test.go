package dashboard

import (
	"testing"

	"tickwatch/internal/domain"
)

func tickerWithPositions(pos map[domain.Broker]domain.BrokerPosition) *domain.TickerSnapshot {
	return &domain.TickerSnapshot{
		Symbol:            "TEST",
		PositionsByBroker: pos,
	}
}

func TestPickDefaultBrokerPrefersDefault(t *testing.T) {
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerWealthsimple: {QuantityHolding: domain.Float(5)},
		domain.BrokerIBKR:         {QuantityHolding: domain.Float(100)},
	})
	if got := PickDefaultBroker(tk); got != domain.BrokerWealthsimple {
		t.Errorf("PickDefaultBroker = %s, want default broker", got)
	}
}

func TestPickDefaultBrokerFallsBackInFixedOrder(t *testing.T) {
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerWealthsimple: {QuantityHolding: domain.Float(0)},
		domain.BrokerQuestrade:    {QuantityHolding: domain.Float(3)},
		domain.BrokerIBKR:         {QuantityHolding: domain.Float(7)},
	})
	// Questrade precedes IBKR in the fixed order.
	for i := 0; i < 50; i++ {
		if got := PickDefaultBroker(tk); got != domain.BrokerQuestrade {
			t.Fatalf("PickDefaultBroker = %s, want questrade (deterministic)", got)
		}
	}
}

func TestPickDefaultBrokerNoHoldings(t *testing.T) {
	if got := PickDefaultBroker(tickerWithPositions(nil)); got != domain.DefaultBroker {
		t.Errorf("PickDefaultBroker = %s, want default", got)
	}
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerIBKR: {QuantityHolding: nil},
	})
	if got := PickDefaultBroker(tk); got != domain.DefaultBroker {
		t.Errorf("nil quantity treated as holding: got %s", got)
	}
}

func TestDerivePositionFields(t *testing.T) {
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerQuestrade: {
			AvgBookCost:     domain.Float(10),
			QuantityHolding: domain.Float(4),
		},
	})
	tk.LastPrice = domain.Float(12.5)

	f := DerivePositionFields(tk, domain.BrokerQuestrade)
	if f.AvgBookCost == nil || *f.AvgBookCost != 10 {
		t.Errorf("AvgBookCost = %v", f.AvgBookCost)
	}
	if f.QuantityHolding == nil || *f.QuantityHolding != 4 {
		t.Errorf("QuantityHolding = %v", f.QuantityHolding)
	}
	if want := 12.5*4 - 10*4; f.TotalReturn != want {
		t.Errorf("TotalReturn = %v, want %v", f.TotalReturn, want)
	}
}

func TestDerivePositionFieldsZeroWhenIncomplete(t *testing.T) {
	// No last price.
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerIBKR: {AvgBookCost: domain.Float(10), QuantityHolding: domain.Float(4)},
	})
	if f := DerivePositionFields(tk, domain.BrokerIBKR); f.TotalReturn != 0 {
		t.Errorf("TotalReturn without last price = %v", f.TotalReturn)
	}

	// Zero quantity.
	tk.LastPrice = domain.Float(12)
	tk.PositionsByBroker[domain.BrokerIBKR] = domain.BrokerPosition{
		AvgBookCost: domain.Float(10), QuantityHolding: domain.Float(0),
	}
	if f := DerivePositionFields(tk, domain.BrokerIBKR); f.TotalReturn != 0 {
		t.Errorf("TotalReturn with zero qty = %v", f.TotalReturn)
	}

	// Broker with no position at all.
	f := DerivePositionFields(tk, domain.BrokerWealthsimple)
	if f.AvgBookCost != nil || f.QuantityHolding != nil || f.TotalReturn != 0 {
		t.Errorf("absent broker should degrade to nil fields, got %+v", f)
	}
}

func TestDerivePositionFieldsIsPure(t *testing.T) {
	tk := tickerWithPositions(map[domain.Broker]domain.BrokerPosition{
		domain.BrokerQuestrade: {AvgBookCost: domain.Float(10), QuantityHolding: domain.Float(4)},
	})
	tk.LastPrice = domain.Float(11)

	a := DerivePositionFields(tk, domain.BrokerQuestrade)
	b := DerivePositionFields(tk, domain.BrokerQuestrade)
	if *a.AvgBookCost != *b.AvgBookCost || *a.QuantityHolding != *b.QuantityHolding || a.TotalReturn != b.TotalReturn {
		t.Errorf("repeated derivation differs: %+v vs %+v", a, b)
	}
	if tk.UISelectedBroker != "" {
		t.Error("DerivePositionFields must not mutate the snapshot")
	}
}
