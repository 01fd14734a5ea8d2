package provider

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Quote is the normalized shape of one symbol's latest quote, returned by all providers.
// Numeric fields that are missing or unparsable stay invalid and encode as null.
type Quote struct {
	Symbol            string      `json:"symbol"`
	Name              null.String `json:"name"`
	Price             null.Float  `json:"price"`
	ChangesPercentage null.Float  `json:"changesPercentage"`
	Source            string      `json:"source"`
	ReceivedAt        time.Time   `json:"received_at"`
}

// HistoryPoint is one (date, closing price) pair of a daily series.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// HistorySeries is an ordered series of closing prices for one symbol, oldest first.
type HistorySeries struct {
	Symbol string         `json:"symbol"`
	Points []HistoryPoint `json:"points"`
}

// Labels returns the date labels of the series.
func (s HistorySeries) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Values returns the closing prices of the series.
func (s HistorySeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// QuoteProvider fetches the latest quote for a single symbol.
// ok is false when the provider has no record for the symbol.
//
//go:generate mockgen -package=dashboard_test -destination=../dashboard/mock_provider_test.go -source=provider.go QuoteProvider,HistoryProvider
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (q Quote, ok bool, err error)
}

// HistoryProvider fetches the daily closing series for a single symbol.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string) (HistorySeries, error)
}

// Float returns a valid null.Float unless v is NaN or infinite.
func Float(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// OptionalString returns an invalid null.String for blank input.
func OptionalString(s string) null.String {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
