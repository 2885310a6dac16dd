// Package dashboard implements the live watchlist engine: per-ticker position
// derivation, threshold validation, favorability classification, filtering
// and sorting, and the stateful ticker store that merges price and trade
// events and drives the alert chimes.
package dashboard

import "tickwatch/internal/domain"

// PositionFields are the broker-dependent derived fields of a snapshot.
type PositionFields struct {
	AvgBookCost     *float64
	QuantityHolding *float64
	TotalReturn     float64
}

// brokerQty returns the holding quantity at broker b, treating absent
// positions and nil quantities as zero.
func brokerQty(t *domain.TickerSnapshot, b domain.Broker) float64 {
	pos, ok := t.PositionsByBroker[b]
	if !ok || pos.QuantityHolding == nil {
		return 0
	}
	return *pos.QuantityHolding
}

// PickDefaultBroker chooses the broker whose position a ticker card shows
// when the user has not picked one: the default broker if it holds shares,
// otherwise the first broker (in the fixed domain.Brokers order) with a
// nonzero holding, otherwise the default broker regardless of holding.
func PickDefaultBroker(t *domain.TickerSnapshot) domain.Broker {
	if brokerQty(t, domain.DefaultBroker) > 0 {
		return domain.DefaultBroker
	}
	for _, b := range domain.Brokers {
		if brokerQty(t, b) > 0 {
			return b
		}
	}
	return domain.DefaultBroker
}

// DerivePositionFields computes the displayed cost-basis fields for one
// broker. Absent or nil position fields degrade to nil; TotalReturn is
// nonzero only when both cost basis and a positive last price are known.
// Pure: identical inputs always yield identical output.
func DerivePositionFields(t *domain.TickerSnapshot, broker domain.Broker) PositionFields {
	var avg, qty *float64
	if pos, ok := t.PositionsByBroker[broker]; ok {
		avg = pos.AvgBookCost
		qty = pos.QuantityHolding
	}

	last := 0.0
	if t.LastPrice != nil {
		last = *t.LastPrice
	}

	total := 0.0
	if avg != nil && qty != nil && *qty > 0 && last > 0 {
		total = last**qty - *avg**qty
	}

	return PositionFields{AvgBookCost: avg, QuantityHolding: qty, TotalReturn: total}
}

// applyDerived recomputes the three derived fields on t for the given broker
// and stores them together. Callers must invoke this after any change to the
// positions map, the selected broker, or the last price.
func applyDerived(t *domain.TickerSnapshot, broker domain.Broker) {
	t.UISelectedBroker = broker
	f := DerivePositionFields(t, broker)
	t.AvgBookCost = f.AvgBookCost
	t.QuantityHolding = f.QuantityHolding
	t.TotalReturn = f.TotalReturn
}
