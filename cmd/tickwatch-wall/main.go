package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tickwatch/internal/config"
	"tickwatch/internal/domain"
	"tickwatch/internal/prices"
	"tickwatch/internal/series"
	"tickwatch/internal/util"
	"tickwatch/pkg/tickwatch"
)

const (
	chartsPerPage  = 8
	rotateInterval = 15 * time.Second
	sparkWidth     = 60
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

func main() {
	godotenv.Load()

	cfgPath := "config/tickwatch.yaml"
	if p := os.Getenv("TICKWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	serverURL := cfg.Dashboard.ServerURL
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	client := tickwatch.NewClient(serverURL)
	market := domain.Market(cfg.Dashboard.Market)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tickers, err := client.ListTickerLatest(ctx, market, domain.StockClass(cfg.Dashboard.StockClass))
	if err != nil {
		logger.Error("listing tickers", "error", err)
		os.Exit(1)
	}
	symbols := make([]string, 0, len(tickers))
	for i := range tickers {
		symbols = append(symbols, tickers[i].Symbol)
	}
	if len(symbols) == 0 {
		logger.Error("no tickers to chart", "market", market)
		os.Exit(1)
	}

	fetch := func(ctx context.Context, market domain.Market, syms []string) (string, string, map[string]series.Series, error) {
		resp, err := client.ChartSeries(ctx, market, "", syms)
		if err != nil {
			return "", "", nil, err
		}
		out := make(map[string]series.Series, len(resp.Series))
		for sym, points := range resp.Series {
			s := series.Series{T: make([]int64, 0, len(points)), V: make([]float64, 0, len(points))}
			for _, p := range points {
				s.T = append(s.T, p.T)
				s.V = append(s.V, p.V)
			}
			out[sym] = s
		}
		return resp.Day, "UTC", out, nil
	}
	cache := series.NewCache(market, fetch, logger)

	pages := series.Pages(symbols, chartsPerPage)
	refreshCh := make(chan struct{}, 1)
	requestRefresh := func() {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	}

	// Live quotes fan out through the cache; the view triggers a redraw
	// whenever a visible symbol ticks.
	live := series.NewLiveView(cache, requestRefresh)
	defer live.Stop()

	ws := prices.Connect(client.WSPricesURL(), prices.Handlers{
		OnPriceBatch: func(batch []domain.PriceUpdate) {
			for i := range batch {
				cache.PublishLatest(batch[i])
			}
		},
	}, logger)
	defer ws.Close()

	rotator := series.NewRotator(len(pages), rotateInterval, func(int) { requestRefresh() })
	rotator.Start()
	defer rotator.Stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	activePage := -1
	for {
		if p := rotator.Active(); p != activePage {
			activePage = p
			live.SetPage(pages[p])
		}
		page := pages[activePage]
		if err := cache.EnsureSeries(ctx, page); err != nil && ctx.Err() == nil {
			logger.Warn("loading chart series", "error", err)
		}
		render(cache, live, page, activePage, len(pages))

		select {
		case <-ticker.C:
		case <-refreshCh:
		case <-ctx.Done():
			fmt.Println("\nshutdown")
			return
		}
	}
}

func render(cache *series.Cache, live *series.LiveView, page []string, active, total int) {
	day, _ := cache.LoadedDay()

	fmt.Print("\033[H\033[2J")
	fmt.Printf("tickwatch chart wall    %s    day:%s    page %d/%d\n\n",
		time.Now().Format("15:04:05"), orDash(day), active+1, total)

	for _, sym := range page {
		liveCol := ""
		if q, ok := live.Quote(sym); ok {
			liveCol = fmt.Sprintf("  live %.2f", q.Price)
		}

		s, ok := cache.Get(sym)
		if !ok || len(s.V) == 0 {
			fmt.Printf("  %-8s %s (no data)%s\n\n", sym, strings.Repeat("·", sparkWidth), liveCol)
			continue
		}
		lo, hi := bounds(s.V)
		fmt.Printf("  %-8s %s  %.2f .. %.2f  (last %.2f)%s\n\n",
			sym, sparkline(s.V, sparkWidth), lo, hi, s.V[len(s.V)-1], liveCol)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func bounds(v []float64) (lo, hi float64) {
	lo, hi = v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// sparkline downsamples a series into a fixed-width unicode bar strip.
func sparkline(v []float64, width int) string {
	lo, hi := bounds(v)
	span := hi - lo

	out := make([]rune, width)
	for i := 0; i < width; i++ {
		start := i * len(v) / width
		end := (i + 1) * len(v) / width
		if end <= start {
			end = start + 1
		}
		if start >= len(v) {
			start = len(v) - 1
			end = len(v)
		}
		sum := 0.0
		for _, x := range v[start:end] {
			sum += x
		}
		avg := sum / float64(end-start)

		level := 0
		if span > 0 {
			level = int((avg - lo) / span * float64(len(sparkLevels)-1))
		}
		out[i] = sparkLevels[level]
	}
	return string(out)
}
