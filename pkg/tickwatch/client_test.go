package tickwatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"tickwatch/internal/domain"
	"tickwatch/internal/httpapi"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8440/")
	if c.baseURL != "http://localhost:8440" {
		t.Errorf("baseURL = %q, trailing slash not trimmed", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestWSPricesURL(t *testing.T) {
	if got := NewClient("http://host:8440").WSPricesURL(); got != "ws://host:8440/ws/prices" {
		t.Errorf("WSPricesURL = %q", got)
	}
	if got := NewClient("https://host").WSPricesURL(); got != "wss://host/ws/prices" {
		t.Errorf("WSPricesURL = %q", got)
	}
}

func TestListTickerLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tickers/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("market"); got != "usa" {
			t.Errorf("market = %q", got)
		}
		json.NewEncoder(w).Encode(httpapi.TickersResponse{Tickers: []domain.TickerSnapshot{
			{ID: "t1", Symbol: "AAPL"},
		}})
	}))
	defer srv.Close()

	tickers, err := NewClient(srv.URL).ListTickerLatest(context.Background(), domain.MarketUSA, "")
	if err != nil {
		t.Fatalf("ListTickerLatest returned error: %v", err)
	}
	if len(tickers) != 1 || tickers[0].Symbol != "AAPL" {
		t.Errorf("unexpected tickers: %+v", tickers)
	}
}

func TestPatchThresholdsSendsKeys(t *testing.T) {
	var gotBody map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).PatchThresholds(context.Background(), "t1",
		map[domain.ThresholdKey]float64{domain.ThresholdGreen: 123})
	if err != nil {
		t.Fatalf("PatchThresholds returned error: %v", err)
	}
	if gotBody["thresholdGreen"] != 123 {
		t.Errorf("body = %v", gotBody)
	}
}

func TestErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "ticker not found"})
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DeleteTicker(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "ticker not found"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}

func TestOptionsCacheFetchesOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(httpapi.OptionsResponse{Symbols: []string{"AAPL"}})
	}))
	defer srv.Close()

	cache := NewOptionsCache(NewClient(srv.URL))
	for i := 0; i < 3; i++ {
		opts, err := cache.Get(context.Background(), domain.MarketUSA)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if len(opts.Symbols) != 1 {
			t.Errorf("Symbols = %v", opts.Symbols)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestOptionsCacheRetriesAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(httpapi.OptionsResponse{Symbols: []string{"AAPL"}})
	}))
	defer srv.Close()

	cache := NewOptionsCache(NewClient(srv.URL))
	if _, err := cache.Get(context.Background(), domain.MarketUSA); err == nil {
		t.Fatal("expected first Get to fail")
	}
	if _, err := cache.Get(context.Background(), domain.MarketUSA); err != nil {
		t.Fatalf("second Get returned error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}
