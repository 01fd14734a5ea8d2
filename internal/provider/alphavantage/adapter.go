package alphavantage

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockdash/internal/provider"
)

// Config controls the adapter behavior.
type Config struct {
	Name           string // display name, default: AlphaVantage
	SeriesFunction string // default: TIME_SERIES_DAILY
	OutputSize     string // compact | full, default: compact
}

// Adapter exposes a Client as a quote and history provider.
type Adapter struct {
	cfg    Config
	client *Client
	logger zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, client *Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.SeriesFunction == "" {
		cfg.SeriesFunction = DefaultSeriesFunction
	}
	if cfg.OutputSize == "" {
		cfg.OutputSize = "compact"
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: log.With().Str("component", "alphavantage").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// FetchQuote implements provider.QuoteProvider.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (provider.Quote, bool, error) {
	gq, ok, err := a.client.GlobalQuote(ctx, symbol)
	if err != nil || !ok {
		return provider.Quote{}, false, err
	}
	q := provider.Quote{
		Symbol:            strings.ToUpper(strings.TrimSpace(gq.Symbol)),
		Price:             parseNumber(gq.Price),
		ChangesPercentage: parseNumber(strings.TrimSuffix(strings.TrimSpace(gq.ChangePercent), "%")),
		Source:            a.cfg.Name,
		ReceivedAt:        a.now(),
	}
	a.logger.Debug().Str("symbol", q.Symbol).Bool("price_valid", q.Price.Valid).Msg("Fetched quote")
	return q, true, nil
}

// FetchHistory implements provider.HistoryProvider. Days whose close does not
// parse are skipped.
func (a *Adapter) FetchHistory(ctx context.Context, symbol string) (provider.HistorySeries, error) {
	rows, err := a.client.DailySeries(ctx, symbol, a.cfg.SeriesFunction, a.cfg.OutputSize)
	if err != nil {
		return provider.HistorySeries{}, err
	}
	series := provider.HistorySeries{Symbol: strings.ToUpper(symbol), Points: make([]provider.HistoryPoint, 0, len(rows))}
	for _, r := range rows {
		v := parseNumber(r.Close)
		if !v.Valid {
			continue
		}
		series.Points = append(series.Points, provider.HistoryPoint{Date: r.Date, Close: v.Float64})
	}
	a.logger.Debug().Str("symbol", series.Symbol).Int("points", len(series.Points)).Msg("Fetched history")
	return series, nil
}
