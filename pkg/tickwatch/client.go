// Package tickwatch provides a Go SDK for the tickwatch-server API.
package tickwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickwatch/internal/domain"
	"tickwatch/internal/httpapi"
)

// Client talks to the tickwatch-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WSPricesURL returns the price WebSocket endpoint for this server.
func (c *Client) WSPricesURL() string {
	u := c.baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws/prices"
}

// ListTickerLatest fetches the tickers for a market, with positions attached.
// Empty market or class match everything.
func (c *Client) ListTickerLatest(ctx context.Context, market domain.Market, class domain.StockClass) ([]domain.TickerSnapshot, error) {
	q := url.Values{}
	if market != "" {
		q.Set("market", string(market))
	}
	if class != "" {
		q.Set("class", string(class))
	}

	var resp httpapi.TickersResponse
	if err := c.get(ctx, "/api/tickers/latest?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Tickers, nil
}

// PatchThresholds updates a subset of a ticker's thresholds on the server.
func (c *Client) PatchThresholds(ctx context.Context, id string, patch map[domain.ThresholdKey]float64) error {
	body := make(map[string]float64, len(patch))
	for k, v := range patch {
		body[string(k)] = v
	}
	return c.do(ctx, http.MethodPatch, "/api/tickers/"+url.PathEscape(id)+"/thresholds", body, nil)
}

// CreateTicker adds a ticker to the watchlist.
func (c *Client) CreateTicker(ctx context.Context, t *domain.TickerSnapshot) (*domain.TickerSnapshot, error) {
	var created domain.TickerSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/tickers", t, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTicker removes a ticker and its positions and trades.
func (c *Client) DeleteTicker(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tickers/"+url.PathEscape(id), nil, nil)
}

// CreateTrade records a trade; the server folds it into the broker position
// and pushes the patch over the price WebSocket.
func (c *Client) CreateTrade(ctx context.Context, req httpapi.CreateTradeRequest) (*httpapi.TradeResponse, error) {
	var resp httpapi.TradeResponse
	if err := c.do(ctx, http.MethodPost, "/api/trades", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTrades returns the recorded trades for a ticker, newest first.
func (c *Client) ListTrades(ctx context.Context, tickerID string) ([]domain.Trade, error) {
	var resp httpapi.TradesResponse
	if err := c.get(ctx, "/api/trades?tickerId="+url.QueryEscape(tickerID), &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}

// DeleteTrade removes a recorded trade.
func (c *Client) DeleteTrade(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/trades/"+url.PathEscape(id), nil, nil)
}

// ChartSeries fetches the intraday series for the given symbols. An empty
// day selects the most recent logged day.
func (c *Client) ChartSeries(ctx context.Context, market domain.Market, day string, symbols []string) (*httpapi.ChartResponse, error) {
	q := url.Values{}
	q.Set("market", string(market))
	q.Set("symbols", strings.Join(symbols, ","))
	if day != "" {
		q.Set("day", day)
	}

	var resp httpapi.ChartResponse
	if err := c.get(ctx, "/api/chart?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Options fetches the distinct filter values for a market.
func (c *Client) Options(ctx context.Context, market domain.Market) (*httpapi.OptionsResponse, error) {
	var resp httpapi.OptionsResponse
	if err := c.get(ctx, "/api/options?market="+url.QueryEscape(string(market)), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError extracts the server's error message when it sent one.
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
