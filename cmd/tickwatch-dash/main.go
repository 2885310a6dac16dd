package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/joho/godotenv"

	"tickwatch/internal/chime"
	"tickwatch/internal/config"
	"tickwatch/internal/dashboard"
	"tickwatch/internal/domain"
	"tickwatch/internal/prices"
	"tickwatch/internal/store"
	"tickwatch/internal/util"
	"tickwatch/pkg/tickwatch"
)

var sortModes = []dashboard.SortBy{
	dashboard.SortFavorability,
	dashboard.SortAZ,
	dashboard.SortZA,
	dashboard.SortBucket,
}

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

	var sinks []chime.Sink
	player := cfg.Chime.Player
	if player == "" {
		player = "aplay"
	}
	sinks = append(sinks, chime.NewSpeakerSink(player, filepath.Join(os.TempDir(), "tickwatch-chimes")))
	if tg := cfg.Chime.Telegram; tg.Token != "" && tg.ChatID != "" {
		tgSink, err := chime.NewTelegramSink(tg.Token, tg.ChatID)
		if err != nil {
			logger.Warn("telegram sink unavailable", "error", err)
		} else {
			sinks = append(sinks, tgSink)
		}
	}
	engine := chime.NewEngine(logger, sinks...)

	silencedPath := cfg.Dashboard.SilencedPath
	if silencedPath == "" {
		silencedPath = filepath.Join(cfg.Storage.DataDir, "silenced.json")
	}
	prefs := store.NewSilencePrefs(silencedPath)

	st := dashboard.NewStore(client, engine, prefs, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	market := domain.Market(cfg.Dashboard.Market)
	class := domain.StockClass(cfg.Dashboard.StockClass)
	if err := st.Load(ctx, market, class); err != nil {
		logger.Error("loading ticker view", "error", err)
		os.Exit(1)
	}

	if cfg.Dashboard.Sound {
		if err := engine.Unlock(); err != nil {
			logger.Warn("chime engine unlock failed, sound stays off", "error", err)
		} else {
			st.SetSoundEnabled(true)
		}
	}

	refreshCh := make(chan struct{}, 1)
	requestRefresh := func() {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	}

	var ui uiState
	ui.SetSort(dashboard.SortBy(cfg.Dashboard.Sort))

	ws := prices.Connect(client.WSPricesURL(), prices.Handlers{
		OnPriceBatch: func(batch []domain.PriceUpdate) {
			st.ApplyPriceBatch(batch)
			requestRefresh()
		},
		OnTrade: func(evt domain.TradeEvent) {
			st.ApplyTrade(evt)
			requestRefresh()
		},
		OnStatus: func(s prices.Status) {
			ui.SetConnected(s.Connected)
			requestRefresh()
		},
	}, logger)
	defer ws.Close()

	restore, rawErr := enableRawMode()
	if rawErr != nil {
		logger.Warn("raw mode unavailable, keys disabled", "error", rawErr)
	} else {
		defer restore()
		go func() {
			buf := make([]byte, 1)
			for {
				n, err := os.Stdin.Read(buf)
				if err != nil || n == 0 {
					return
				}
				switch buf[0] {
				case 'q', 'Q':
					cancel()
					return
				case 's', 'S':
					ui.CycleSort()
					requestRefresh()
				case 'm', 'M':
					if st.SoundEnabled() {
						st.SetSoundEnabled(false)
					} else if err := engine.Unlock(); err == nil {
						st.SetSoundEnabled(true)
					}
					requestRefresh()
				case 'r', 'R':
					if err := st.Load(ctx, market, class); err != nil && ctx.Err() == nil {
						logger.Warn("reloading ticker view", "error", err)
					}
					requestRefresh()
				}
			}
		}()
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	render(st, market, class, ui.Sort(), ui.Connected())
	for {
		select {
		case <-ticker.C:
			render(st, market, class, ui.Sort(), ui.Connected())
		case <-refreshCh:
			render(st, market, class, ui.Sort(), ui.Connected())
		case <-ctx.Done():
			fmt.Println("\nshutdown")
			return
		}
	}
}

func render(st *dashboard.Store, market domain.Market, class domain.StockClass, sortBy dashboard.SortBy, connected bool) {
	snapshots := st.Snapshots()
	silenced := st.Silenced()
	rows := dashboard.Apply(snapshots, dashboard.Filters{SortBy: sortBy}, silenced)
	fav := dashboard.Favorable(snapshots, silenced)

	status := "offline"
	if connected {
		status = "live"
	}
	sound := "off"
	if st.SoundEnabled() {
		sound = "on"
	}

	fmt.Print("\033[H\033[2J")
	fmt.Printf("tickwatch %s    market:%s class:%s  sort:%s  feed:%s  sound:%s   [q quit, s sort, m sound, r reload]\n",
		time.Now().Format("15:04:05"), market, orAny(string(class)), sortBy, status, sound)

	if len(fav) > 0 {
		fmt.Printf("\n-- FAVORABLE (%d) --\n", len(fav))
		printHeader()
		for _, t := range fav {
			printRow(t, silenced)
		}
	}

	fmt.Printf("\n-- ALL (%d) --\n", len(rows))
	printHeader()
	for _, t := range rows {
		printRow(t, silenced)
	}
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func printHeader() {
	fmt.Printf("  %-8s %9s %9s %9s | %8s %8s %8s %8s | %-11s %-12s %9s %6s %10s\n",
		"Symbol", "Last", "Bid", "Ask",
		"Green", "Cyan", "Orange", "Red",
		"State", "Broker", "AvgCost", "Qty", "Return")
}

func printRow(t *domain.TickerSnapshot, silenced map[string]bool) {
	state := dashboard.Classify(t, silenced[t.ID])
	sym := t.Symbol
	if silenced[t.ID] {
		sym += "*"
	}
	fmt.Printf("  %-8s %9s %9s %9s | %8.2f %8.2f %8.2f %8.2f | %-11s %-12s %9s %6s %10.2f\n",
		sym,
		fmtPrice(t.LastPrice), fmtPrice(t.BidPrice), fmtPrice(t.AskPrice),
		t.Thresholds.Green, t.Thresholds.Cyan, t.Thresholds.Orange, t.Thresholds.Red,
		state, string(t.UISelectedBroker),
		fmtPrice(t.AvgBookCost), fmtQty(t.QuantityHolding), t.TotalReturn)
}

func fmtPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtQty(v *float64) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprintf("%.2f", *v)
	return strings.TrimSuffix(s, ".00")
}

// enableRawMode puts stdin into raw mode so single keypresses can be read.
func enableRawMode() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	var orig syscall.Termios
	if _, _, e := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd),
		uintptr(syscall.TCGETS), uintptr(unsafe.Pointer(&orig)), 0, 0, 0); e != 0 {
		return nil, fmt.Errorf("TCGETS: %w", e)
	}
	raw := orig
	raw.Lflag &^= syscall.ICANON | syscall.ECHO
	raw.Cc[syscall.VMIN] = 1
	raw.Cc[syscall.VTIME] = 0
	if _, _, e := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd),
		uintptr(syscall.TCSETS), uintptr(unsafe.Pointer(&raw)), 0, 0, 0); e != 0 {
		return nil, fmt.Errorf("TCSETS: %w", e)
	}
	return func() {
		syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd),
			uintptr(syscall.TCSETS), uintptr(unsafe.Pointer(&orig)), 0, 0, 0)
	}, nil
}
