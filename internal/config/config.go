package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderAlphaVantage = "alphavantage"
	ProviderFMP          = "fmp"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	// AllowedOrigins lists cross-origin callers of the API. Empty means same-origin only.
	AllowedOrigins []string `json:"allowed_origins"`
}

type AlphaVantage struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	SeriesFunction string `json:"series_function"`
	OutputSize     string `json:"output_size"`
}

type FMP struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	OutputSize string `json:"output_size"`
}

type Dashboard struct {
	DefaultTickers   []string `json:"default_tickers"`
	FetchConcurrency int      `json:"fetch_concurrency"`
}

type Chart struct {
	CacheTTLSeconds int `json:"cache_ttl_sec"`
	CacheMaxItems   int `json:"cache_max_items"`
}

type Log struct {
	Level          string `json:"level"`
	Format         string `json:"format"` // pretty | json
	FileEnabled    bool   `json:"file_enabled"`
	FilePath       string `json:"file_path"`
	RotationSizeMB int    `json:"rotation_size_mb"`
	RetentionDays  int    `json:"retention_days"`
}

type Config struct {
	Server       Server       `json:"server"`
	Provider     string       `json:"provider"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	FMP          FMP          `json:"fmp"`
	Dashboard    Dashboard    `json:"dashboard"`
	Chart        Chart        `json:"chart"`
	Log          Log          `json:"log"`
}

func Default() Config {
	return Config{
		Server:   Server{Port: "8080", RequestTimeoutSec: 10},
		Provider: ProviderAlphaVantage,
		AlphaVantage: AlphaVantage{
			BaseURL:        "https://www.alphavantage.co",
			SeriesFunction: "TIME_SERIES_DAILY",
			OutputSize:     "compact",
		},
		FMP: FMP{
			BaseURL:    "https://financialmodelingprep.com",
			OutputSize: "compact",
		},
		Dashboard: Dashboard{
			DefaultTickers:   []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"},
			FetchConcurrency: 1,
		},
		Chart: Chart{CacheTTLSeconds: 60, CacheMaxItems: 256},
		Log: Log{
			Level:          "info",
			Format:         "pretty",
			FilePath:       "logs/stockdash.log",
			RotationSizeMB: 50,
			RetentionDays:  7,
		},
	}
}

// Load reads a .env file when present, then the JSON config from path
// (CONFIG_FILE or ./config.json when path is empty). Missing files fall back
// to defaults. Environment variables are applied last.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAlphaVantage, ProviderFMP:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if n, err := strconv.Atoi(c.Server.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	return nil
}

// APIKey returns the key of the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderFMP {
		return c.FMP.APIKey
	}
	return c.AlphaVantage.APIKey
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider = v
	}

	if v := firstEnv("ALPHAVANTAGE_API_KEY", "VITE_ALPHA_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_BASE_URL"); v != "" {
		cfg.AlphaVantage.BaseURL = v
	}
	if v := os.Getenv("ALPHAVANTAGE_SERIES_FUNCTION"); v != "" {
		cfg.AlphaVantage.SeriesFunction = v
	}
	if v := os.Getenv("OUTPUT_SIZE"); v != "" {
		cfg.AlphaVantage.OutputSize = strings.ToLower(v)
		cfg.FMP.OutputSize = strings.ToLower(v)
	}

	if v := firstEnv("FMP_API_KEY", "VITE_FMP_API_KEY"); v != "" {
		cfg.FMP.APIKey = v
	}
	if v := os.Getenv("FMP_BASE_URL"); v != "" {
		cfg.FMP.BaseURL = v
	}

	if v := os.Getenv("DEFAULT_TICKERS"); v != "" {
		cfg.Dashboard.DefaultTickers = splitCSV(v)
	}
	if x, ok := envInt("FETCH_CONCURRENCY"); ok && x > 0 {
		cfg.Dashboard.FetchConcurrency = x
	}
	if x, ok := envInt("CHART_CACHE_TTL_SEC"); ok && x >= 0 {
		cfg.Chart.CacheTTLSeconds = x
	}
	if x, ok := envInt("CHART_CACHE_MAX_ITEMS"); ok && x > 0 {
		cfg.Chart.CacheMaxItems = x
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Log.FileEnabled = true
		case "0", "false", "no", "n":
			cfg.Log.FileEnabled = false
		}
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.Log.FilePath = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return x, true
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
