package sources

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/provider"
	"stockdash/internal/provider/alphavantage"
	"stockdash/internal/provider/fmp"
)

// Set is the provider pair the dashboard reads from.
type Set struct {
	Quotes  provider.QuoteProvider
	History provider.HistoryProvider
}

// HTTPClient builds the shared transport from the server timeout.
func HTTPClient(cfg config.Config) *httpx.Client {
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return httpx.New(timeout)
}

// New returns the providers selected by cfg.Provider. A missing API key is
// only logged; the provider's rejection surfaces on the first fetch.
func New(cfg config.Config, hc *httpx.Client) (Set, error) {
	if hc == nil {
		hc = HTTPClient(cfg)
	}
	if cfg.APIKey() == "" {
		log.Warn().Str("provider", cfg.Provider).Msg("API key not configured; requests will be rejected by the provider")
	}

	switch cfg.Provider {
	case config.ProviderAlphaVantage, "":
		client := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
			alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
			alphavantage.WithHTTPClient(hc),
		)
		a := alphavantage.New(alphavantage.Config{
			SeriesFunction: cfg.AlphaVantage.SeriesFunction,
			OutputSize:     cfg.AlphaVantage.OutputSize,
		}, client)
		return Set{Quotes: a, History: a}, nil
	case config.ProviderFMP:
		p := fmp.New(fmp.Config{
			BaseURL:    cfg.FMP.BaseURL,
			APIKey:     cfg.FMP.APIKey,
			OutputSize: cfg.FMP.OutputSize,
		}, hc)
		return Set{Quotes: p, History: p}, nil
	}
	return Set{}, fmt.Errorf("unknown provider %q", cfg.Provider)
}
