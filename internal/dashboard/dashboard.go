package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/provider"
	"stockdash/internal/view"
)

// ErrUnknownSymbol is returned when a chart symbol is not in the active ticker list.
var ErrUnknownSymbol = errors.New("symbol not in ticker list")

// DefaultTickers is the list shown before the user enters any.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"}

// ChartState is the history shown for the selected symbol.
type ChartState struct {
	Symbol  string                 `json:"symbol"`
	Series  provider.HistorySeries `json:"series"`
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
}

// State is everything the dashboard displays.
type State struct {
	TickerInput string           `json:"ticker_input"`
	Tickers     []string         `json:"tickers"`
	Quotes      []provider.Quote `json:"quotes"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
	Search      string           `json:"search"`
	Sort        view.Sort        `json:"sort"`
	Chart       ChartState       `json:"chart"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot is a copy of State together with the rows it derives.
type Snapshot struct {
	State
	Rows []view.Row `json:"rows"`
}

type Options struct {
	Quotes         provider.QuoteProvider
	History        provider.HistoryProvider
	DefaultTickers []string
	// Concurrency above 1 fetches quotes in parallel, keeping input order.
	Concurrency int
	Logger      *zerolog.Logger
}

// Controller owns the dashboard state. All methods are safe for concurrent
// use; the lock is never held across a provider call.
type Controller struct {
	quotes      provider.QuoteProvider
	history     provider.HistoryProvider
	defaults    []string
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time

	mu       sync.Mutex
	state    State
	quoteGen uint64
	chartGen uint64
}

func New(opts Options) *Controller {
	logger := log.With().Str("component", "dashboard").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	defaults := opts.DefaultTickers
	if len(defaults) == 0 {
		defaults = DefaultTickers
	}
	return &Controller{
		quotes:      opts.Quotes,
		history:     opts.History,
		defaults:    slices.Clone(defaults),
		concurrency: max(opts.Concurrency, 1),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		state:       State{Sort: view.DefaultSort()},
	}
}

// ParseTickers splits comma-separated input into upper-case symbols,
// dropping blanks and repeats.
func ParseTickers(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Start applies the default tickers, fetches their quotes and loads the chart
// for the first one.
func (c *Controller) Start(ctx context.Context) error {
	return c.UpdateTickers(ctx, strings.Join(c.defaults, ","))
}

// UpdateTickers replaces the ticker list with the parsed input and fetches
// quotes for it. A selection that left the list moves to the first ticker,
// whose history is fetched concurrently with the quotes.
// The returned error is the quote fetch error; chart failures are kept in
// the chart state.
func (c *Controller) UpdateTickers(ctx context.Context, input string) error {
	tickers := ParseTickers(input)

	c.mu.Lock()
	c.state.TickerInput = input
	c.state.Tickers = tickers
	selected := c.state.Chart.Symbol
	reselect := !slices.Contains(tickers, selected)
	var chartGen uint64
	if reselect {
		selected = ""
		if len(tickers) > 0 {
			selected = tickers[0]
		}
		chartGen = c.resetChartLocked(selected)
	}
	c.mu.Unlock()

	c.logger.Info().Strs("tickers", tickers).Msg("Tickers updated")

	// The chart loads alongside the quote batch; its failure stays in the chart state.
	var g errgroup.Group
	if reselect {
		g.Go(func() error {
			_ = c.loadChart(ctx, selected, chartGen)
			return nil
		})
	}
	err := c.fetchQuotes(ctx, tickers)
	_ = g.Wait()
	return err
}

// Refresh fetches quotes again for the current list.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	tickers := slices.Clone(c.state.Tickers)
	c.mu.Unlock()
	return c.fetchQuotes(ctx, tickers)
}

func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.state.Search = text
	c.mu.Unlock()
}

// ToggleSort applies the toggle policy of view.Sort and returns the new setting.
func (c *Controller) ToggleSort(key view.SortKey) view.Sort {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sort = c.state.Sort.Toggle(key)
	return c.state.Sort
}

// Select makes symbol the chart symbol and loads its history.
func (c *Controller) Select(ctx context.Context, symbol string) error {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	c.mu.Lock()
	if sym == "" || !slices.Contains(c.state.Tickers, sym) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	gen := c.resetChartLocked(sym)
	c.mu.Unlock()
	return c.loadChart(ctx, sym, gen)
}

// History fetches the series of an active symbol without touching the chart state.
func (c *Controller) History(ctx context.Context, symbol string) (provider.HistorySeries, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if !c.isActive(sym) {
		return provider.HistorySeries{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	if c.history == nil {
		return provider.HistorySeries{Symbol: sym}, nil
	}
	s, err := c.history.FetchHistory(ctx, sym)
	return s, provider.AsFetchError("history", sym, err)
}

// Snapshot returns a deep copy of the state with the derived table rows.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	st := c.state
	st.Tickers = slices.Clone(st.Tickers)
	st.Quotes = slices.Clone(st.Quotes)
	st.Chart.Series.Points = slices.Clone(st.Chart.Series.Points)
	c.mu.Unlock()

	return Snapshot{
		State: st,
		Rows:  view.Rows(view.Derive(st.Quotes, st.Search, st.Sort)),
	}
}

func (c *Controller) isActive(sym string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sym != "" && slices.Contains(c.state.Tickers, sym)
}

func (c *Controller) fetchQuotes(ctx context.Context, tickers []string) error {
	c.mu.Lock()
	c.quoteGen++
	gen := c.quoteGen
	if len(tickers) == 0 {
		c.state.Quotes = nil
		c.state.Error = ""
		c.state.Loading = false
		c.state.UpdatedAt = c.now()
		c.mu.Unlock()
		return nil
	}
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	start := time.Now()
	quotes, err := provider.FetchBatch(ctx, c.quotes, tickers, c.concurrency)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.quoteGen {
		c.logger.Debug().Uint64("generation", gen).Msg("Discarding stale quotes")
		return nil
	}
	c.state.Loading = false
	c.state.UpdatedAt = c.now()
	if err != nil {
		c.state.Error = err.Error()
		if len(quotes) > 0 {
			c.state.Quotes = quotes
		}
		c.logger.Warn().Err(err).Int("fetched", len(quotes)).Int("requested", len(tickers)).Msg("Quote fetch failed")
		return err
	}
	c.state.Quotes = quotes
	c.logger.Info().Int("quotes", len(quotes)).Dur("took", time.Since(start)).Msg("Quotes fetched")
	return nil
}

// resetChartLocked clears the chart for symbol and claims a new history
// generation. c.mu must be held.
func (c *Controller) resetChartLocked(symbol string) uint64 {
	c.chartGen++
	c.state.Chart = ChartState{
		Symbol:  symbol,
		Series:  provider.HistorySeries{Symbol: symbol},
		Loading: symbol != "" && c.history != nil,
	}
	return c.chartGen
}

// loadChart fetches history for symbol and publishes it unless a newer
// selection was made in the meantime.
func (c *Controller) loadChart(ctx context.Context, symbol string, gen uint64) error {
	if symbol == "" || c.history == nil {
		return nil
	}
	series, err := c.history.FetchHistory(ctx, symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.chartGen {
		c.logger.Debug().Uint64("generation", gen).Str("symbol", symbol).Msg("Discarding stale history")
		return nil
	}
	c.state.Chart.Loading = false
	if err != nil {
		err = provider.AsFetchError("history", symbol, err)
		c.state.Chart.Error = err.Error()
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed")
		return err
	}
	series.Symbol = symbol
	c.state.Chart.Series = series
	return nil
}
