package prices

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tickwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestDispatchPriceBatch(t *testing.T) {
	var got []domain.PriceUpdate
	c := &Client{handlers: Handlers{
		OnPriceBatch: func(batch []domain.PriceUpdate) { got = batch },
	}}

	msg, err := marshalPriceBatch([]domain.PriceUpdate{
		{Symbol: "AAPL", Last: domain.Float(101.5)},
	})
	if err != nil {
		t.Fatalf("marshalPriceBatch: %v", err)
	}
	c.dispatch(msg)

	if len(got) != 1 || got[0].Symbol != "AAPL" || *got[0].Last != 101.5 {
		t.Errorf("got = %+v", got)
	}
}

func TestDispatchTrade(t *testing.T) {
	var got domain.TradeEvent
	c := &Client{handlers: Handlers{
		OnTrade: func(evt domain.TradeEvent) { got = evt },
	}}

	msg, err := marshalTrade(domain.TradeEvent{
		Symbol: "AAPL",
		Patch: domain.PositionPatch{
			Broker:          domain.BrokerIBKR,
			QuantityHolding: domain.Float(3),
		},
		TS: "2026-08-28T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshalTrade: %v", err)
	}
	c.dispatch(msg)

	if got.Symbol != "AAPL" || got.Patch.Broker != domain.BrokerIBKR {
		t.Errorf("got = %+v", got)
	}
	if got.Patch.QuantityHolding == nil || *got.Patch.QuantityHolding != 3 {
		t.Errorf("quantity = %v", got.Patch.QuantityHolding)
	}
	if got.Patch.AvgBookCost != nil {
		t.Errorf("avg = %v, want nil for absent field", got.Patch.AvgBookCost)
	}
}

func TestDispatchDropsGarbage(t *testing.T) {
	c := &Client{handlers: Handlers{
		OnPriceBatch: func([]domain.PriceUpdate) { t.Error("handler fired for garbage") },
		OnTrade:      func(domain.TradeEvent) { t.Error("handler fired for garbage") },
	}}

	c.dispatch([]byte("not json"))
	c.dispatch([]byte(`{"type":"unknownKind"}`))
	c.dispatch([]byte(`{"type":"priceBatch","data":"notAnArray"}`))
	c.dispatch([]byte(`{"type":"trade"}`)) // trade without a patch
}

func TestClientCloseIdempotent(t *testing.T) {
	c := Connect("ws://127.0.0.1:1/ws/prices", Handlers{}, testLogger())
	c.Close()
	c.Close() // second close must be a no-op
}

func TestHubDeliversToClient(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	defer conn.Close()

	// First frame is the hello.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading hello: %v", err)
	}
	var hello envelope
	if err := json.Unmarshal(raw, &hello); err != nil || hello.Type != TypeHello {
		t.Fatalf("hello frame = %s (err %v)", raw, err)
	}

	hub.BroadcastPriceBatch([]domain.PriceUpdate{{Symbol: "TSLA", Last: domain.Float(250)}})

	_, raw, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading batch: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decoding batch: %v", err)
	}
	if env.Type != TypePriceBatch {
		t.Fatalf("type = %q", env.Type)
	}
	var batch []domain.PriceUpdate
	if err := json.Unmarshal(env.Data, &batch); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if len(batch) != 1 || batch[0].Symbol != "TSLA" {
		t.Errorf("batch = %+v", batch)
	}
}

func TestBroadcastSkipsEmptyBatch(t *testing.T) {
	hub := NewHub(testLogger())
	hub.BroadcastPriceBatch(nil)
	select {
	case msg := <-hub.broadcast:
		t.Errorf("empty batch broadcast %s", msg)
	default:
	}
}

func TestClientReconnectsAfterServerDrop(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	statusCh := make(chan Status, 8)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := Connect(url, Handlers{
		OnStatus: func(s Status) { statusCh <- s },
	}, testLogger())
	defer c.Close()

	waitStatus := func(want bool) {
		t.Helper()
		deadline := time.After(2*time.Second + ReconnectDelay)
		for {
			select {
			case s := <-statusCh:
				if s.Connected == want {
					return
				}
			case <-deadline:
				t.Fatalf("never saw connected=%v", want)
			}
		}
	}

	waitStatus(true)
	srv.CloseClientConnections()
	waitStatus(false)
	waitStatus(true)
}
