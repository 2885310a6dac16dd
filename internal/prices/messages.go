// Package prices carries live price traffic over WebSocket: a broadcast hub
// on the server side and a reconnecting client on the consumer side.
package prices

import (
	"encoding/json"

	"tickwatch/internal/domain"
)

// Message types on the price socket.
const (
	TypeHello      = "hello"
	TypePriceBatch = "priceBatch"
	TypeTrade      = "trade"
)

// envelope is the wire frame. priceBatch messages carry Data; trade messages
// carry Symbol/Patch/TS at the top level.
type envelope struct {
	Type   string                `json:"type"`
	Data   json.RawMessage       `json:"data,omitempty"`
	Symbol string                `json:"symbol,omitempty"`
	Patch  *domain.PositionPatch `json:"patch,omitempty"`
	TS     string                `json:"ts,omitempty"`
}

func marshalPriceBatch(batch []domain.PriceUpdate) ([]byte, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: TypePriceBatch, Data: data})
}

func marshalTrade(evt domain.TradeEvent) ([]byte, error) {
	return json.Marshal(envelope{
		Type:   TypeTrade,
		Symbol: evt.Symbol,
		Patch:  &evt.Patch,
		TS:     evt.TS,
	})
}
