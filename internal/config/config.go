package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tickwatch services.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
	Feed      Feed      `yaml:"feed"`
	Dashboard Dashboard `yaml:"dashboard"`
	Chime     Chime     `yaml:"chime"`
	Logging   Logging   `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Feed selects and configures the price source feeding the hub.
type Feed struct {
	// Source is "simulator" or "alpaca".
	Source     string `yaml:"source"`
	IntervalMS int    `yaml:"interval_ms"`
	Alpaca     Alpaca `yaml:"alpaca"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Dashboard configures the console dashboard client.
type Dashboard struct {
	ServerURL    string `yaml:"server_url"`
	Market       string `yaml:"market"`
	StockClass   string `yaml:"stock_class"`
	Sort         string `yaml:"sort"`
	Sound        bool   `yaml:"sound"`
	SilencedPath string `yaml:"silenced_path"`
}

// Chime configures alert sound output.
type Chime struct {
	// Player is the external audio player command, e.g. "afplay" or "aplay".
	Player   string   `yaml:"player"`
	Telegram Telegram `yaml:"telegram"`
}

// Telegram holds the optional remote chime sink credentials.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8440
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = "simulator"
	}
	if cfg.Feed.IntervalMS <= 0 {
		cfg.Feed.IntervalMS = 1000
	}
	if cfg.Feed.Alpaca.RateLimitPerMin <= 0 {
		cfg.Feed.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Dashboard.Market == "" {
		cfg.Dashboard.Market = "usa"
	}
	if cfg.Dashboard.Sort == "" {
		cfg.Dashboard.Sort = "favorability"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("FEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Feed.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Feed.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Feed.Alpaca.DataURL = v
	}

	if v := os.Getenv("SERVER_URL"); v != "" {
		cfg.Dashboard.ServerURL = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Chime.Telegram.Token = v
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Chime.Telegram.ChatID = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Feed.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Feed.Alpaca.APISecret = v
	}
}
