package prices

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tickwatch/internal/domain"
)

// ReconnectDelay is the fixed backoff between reconnect attempts.
const ReconnectDelay = 2 * time.Second

// Status is a connection-state transition reported to the UI layer.
type Status struct {
	Connected bool
}

// Handlers receive decoded messages and status transitions. Each handler is
// invoked synchronously from the read loop, one message at a time, so a
// handler never interleaves with another's partial execution.
type Handlers struct {
	OnPriceBatch func(batch []domain.PriceUpdate)
	OnTrade      func(evt domain.TradeEvent)
	OnStatus     func(s Status)
}

// Client maintains a WebSocket connection to the price hub, reconnecting
// with a fixed delay on unexpected close. Reconnection is transparent to the
// store: it simply resumes receiving events.
type Client struct {
	url      string
	handlers Handlers
	log      *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	retryTimer *time.Timer
	closed     bool
}

// Connect starts the connection loop and returns immediately. Close stops it.
func Connect(url string, handlers Handlers, log *slog.Logger) *Client {
	c := &Client{url: url, handlers: handlers, log: log}
	go c.dial()
	return c
}

func (c *Client) dial() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.log.Debug("price ws dial failed", "url", c.url, "error", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(Status{Connected: true})
	}

	c.readLoop(conn)

	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(Status{Connected: false})
	}
	c.scheduleReconnect()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(raw)
	}
}

// dispatch decodes one frame. Unparseable or unrecognized messages are
// dropped silently; they must never crash the handler.
func (c *Client) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	switch env.Type {
	case TypePriceBatch:
		var batch []domain.PriceUpdate
		if err := json.Unmarshal(env.Data, &batch); err != nil {
			return
		}
		if c.handlers.OnPriceBatch != nil {
			c.handlers.OnPriceBatch(batch)
		}
	case TypeTrade:
		if env.Patch == nil {
			return
		}
		if c.handlers.OnTrade != nil {
			c.handlers.OnTrade(domain.TradeEvent{Symbol: env.Symbol, Patch: *env.Patch, TS: env.TS})
		}
	}
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.retryTimer != nil {
		return
	}
	c.retryTimer = time.AfterFunc(ReconnectDelay, c.dial)
}

// Close stops the connection and any pending reconnect timer. Idempotent:
// safe to call repeatedly, and safe before the first dial completes.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	timer := c.retryTimer
	c.retryTimer = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if conn != nil {
		conn.Close()
	}
}
