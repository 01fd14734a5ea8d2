package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockdash/internal/dashboard"
	"stockdash/internal/provider"
	"stockdash/internal/view"
)

var prices = map[string]float64{"AAPL": 150, "MSFT": 300, "GOOGL": 140, "AMZN": 180, "NVDA": 900, "IBM": 170}

func stubQuote(_ context.Context, sym string) (provider.Quote, bool, error) {
	p, ok := prices[sym]
	if !ok {
		return provider.Quote{}, false, nil
	}
	return provider.Quote{Symbol: sym, Price: null.FloatFrom(p), ChangesPercentage: null.FloatFrom(1)}, true, nil
}

func stubHistory(_ context.Context, sym string) (provider.HistorySeries, error) {
	return provider.HistorySeries{Symbol: sym, Points: []provider.HistoryPoint{
		{Date: "2024-05-01", Close: 1}, {Date: "2024-05-02", Close: 2},
	}}, nil
}

func symbolsOf(qs []provider.Quote) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Symbol
	}
	return out
}

func TestParseTickers(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, dashboard.ParseTickers("aapl, msft ,, GOOGL"))
	require.Equal(t, []string{"AAPL"}, dashboard.ParseTickers("aapl,AAPL, Aapl"))
	require.Empty(t, dashboard.ParseTickers(" , ,"))
}

func TestStart(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and providers
	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)

	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).DoAndReturn(stubQuote).Times(5)
	history.EXPECT().FetchHistory(gomock.Any(), "AAPL").DoAndReturn(stubHistory).Times(1)

	// Act: start the dashboard with the default tickers
	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})
	require.NoError(t, c.Start(t.Context()))

	// Assert: quotes in input order, rows sorted by symbol, chart on the first ticker
	snap := c.Snapshot()
	require.Equal(t, dashboard.DefaultTickers, snap.Tickers)
	require.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"}, symbolsOf(snap.Quotes))
	require.Equal(t, "AAPL", snap.Rows[0].Symbol)
	require.Equal(t, "NVDA", snap.Rows[4].Symbol)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Error)
	require.Equal(t, "AAPL", snap.Chart.Symbol)
	require.False(t, snap.Chart.Loading)
	require.Len(t, snap.Chart.Series.Points, 2)
}

func TestUpdateTickers_EmptyListMakesNoCall(t *testing.T) {
	t.Parallel()

	// Arrange: providers that must never be called
	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).Times(0)
	history.EXPECT().FetchHistory(gomock.Any(), gomock.Any()).Times(0)

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})

	// Act
	require.NoError(t, c.UpdateTickers(t.Context(), " , "))

	// Assert
	snap := c.Snapshot()
	require.Empty(t, snap.Tickers)
	require.Empty(t, snap.Quotes)
	require.Empty(t, snap.Error)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Chart.Symbol)
}

func TestUpdateTickers_ThirdFails(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{1, 3} {
		t.Run(map[int]string{1: "sequential", 3: "parallel"}[concurrency], func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			quotes := NewMockQuoteProvider(ctrl)
			history := NewMockHistoryProvider(ctrl)

			quotes.EXPECT().FetchQuote(gomock.Any(), "AAPL").DoAndReturn(stubQuote).Times(1)
			quotes.EXPECT().FetchQuote(gomock.Any(), "MSFT").DoAndReturn(stubQuote).Times(1)
			quotes.EXPECT().FetchQuote(gomock.Any(), "GOOGL").
				Return(provider.Quote{}, false, &provider.FetchError{Op: "quote", Symbol: "GOOGL", StatusCode: http.StatusInternalServerError}).
				Times(1)
			history.EXPECT().FetchHistory(gomock.Any(), "AAPL").DoAndReturn(stubHistory).Times(1)

			c := dashboard.New(dashboard.Options{Quotes: quotes, History: history, Concurrency: concurrency})

			// Act
			err := c.UpdateTickers(t.Context(), "AAPL,MSFT,GOOGL")

			// Assert: the two records before the failure are kept with the error
			var fe *provider.FetchError
			require.ErrorAs(t, err, &fe)
			snap := c.Snapshot()
			require.Equal(t, []string{"AAPL", "MSFT"}, symbolsOf(snap.Quotes))
			require.Equal(t, "quote GOOGL: HTTP 500", snap.Error)
			require.False(t, snap.Loading)
		})
	}
}

func TestRefresh_EmptyPrefixKeepsPreviousQuotes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)

	gomock.InOrder(
		quotes.EXPECT().FetchQuote(gomock.Any(), "AAPL").DoAndReturn(stubQuote),
		quotes.EXPECT().FetchQuote(gomock.Any(), "MSFT").DoAndReturn(stubQuote),
		quotes.EXPECT().FetchQuote(gomock.Any(), "AAPL").
			Return(provider.Quote{}, false, &provider.FetchError{Op: "quote", Symbol: "AAPL", StatusCode: http.StatusBadGateway}),
	)

	// No history provider: the chart stays empty.
	c := dashboard.New(dashboard.Options{Quotes: quotes})
	require.NoError(t, c.UpdateTickers(t.Context(), "AAPL,MSFT"))

	// Act
	err := c.Refresh(t.Context())

	// Assert
	require.Error(t, err)
	snap := c.Snapshot()
	require.Equal(t, []string{"AAPL", "MSFT"}, symbolsOf(snap.Quotes))
	require.Equal(t, "quote AAPL: HTTP 502", snap.Error)
}

func TestRefresh_ClearsError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)

	gomock.InOrder(
		quotes.EXPECT().FetchQuote(gomock.Any(), "IBM").Return(provider.Quote{}, false, context.DeadlineExceeded),
		quotes.EXPECT().FetchQuote(gomock.Any(), "IBM").DoAndReturn(stubQuote),
	)

	c := dashboard.New(dashboard.Options{Quotes: quotes})
	err := c.UpdateTickers(t.Context(), "ibm")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, "quote IBM: context deadline exceeded", c.Snapshot().Error)

	require.NoError(t, c.Refresh(t.Context()))
	snap := c.Snapshot()
	require.Empty(t, snap.Error)
	require.Equal(t, []string{"IBM"}, symbolsOf(snap.Quotes))
}

func TestUpdateTickers_SelectionReassigned(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).DoAndReturn(stubQuote).AnyTimes()

	gomock.InOrder(
		history.EXPECT().FetchHistory(gomock.Any(), "AAPL").DoAndReturn(stubHistory),
		history.EXPECT().FetchHistory(gomock.Any(), "MSFT").DoAndReturn(stubHistory),
		history.EXPECT().FetchHistory(gomock.Any(), "IBM").DoAndReturn(stubHistory),
	)

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})
	require.NoError(t, c.UpdateTickers(t.Context(), "AAPL,MSFT"))
	require.NoError(t, c.Select(t.Context(), "msft"))
	require.Equal(t, "MSFT", c.Snapshot().Chart.Symbol)

	// Still listed: selection and chart are kept, no history call.
	require.NoError(t, c.UpdateTickers(t.Context(), "IBM,MSFT"))
	require.Equal(t, "MSFT", c.Snapshot().Chart.Symbol)

	// Dropped: the first ticker takes over.
	require.NoError(t, c.UpdateTickers(t.Context(), "IBM"))
	require.Equal(t, "IBM", c.Snapshot().Chart.Symbol)

	// Empty: no selection.
	require.NoError(t, c.UpdateTickers(t.Context(), ""))
	require.Empty(t, c.Snapshot().Chart.Symbol)
}

func TestSelect_UnknownSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), "AAPL").DoAndReturn(stubQuote)
	history.EXPECT().FetchHistory(gomock.Any(), "AAPL").DoAndReturn(stubHistory)

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})
	require.NoError(t, c.UpdateTickers(t.Context(), "AAPL"))

	require.ErrorIs(t, c.Select(t.Context(), "TSLA"), dashboard.ErrUnknownSymbol)
	require.ErrorIs(t, c.Select(t.Context(), ""), dashboard.ErrUnknownSymbol)
	_, err := c.History(t.Context(), "TSLA")
	require.ErrorIs(t, err, dashboard.ErrUnknownSymbol)
	require.Equal(t, "AAPL", c.Snapshot().Chart.Symbol)
}

func TestSelect_HistoryError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).DoAndReturn(stubQuote).AnyTimes()
	history.EXPECT().FetchHistory(gomock.Any(), "AAPL").DoAndReturn(stubHistory)
	history.EXPECT().FetchHistory(gomock.Any(), "MSFT").
		Return(provider.HistorySeries{}, &provider.FetchError{Op: "history", Symbol: "MSFT", StatusCode: http.StatusNotFound})

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})
	require.NoError(t, c.UpdateTickers(t.Context(), "AAPL,MSFT"))

	err := c.Select(t.Context(), "MSFT")
	require.Error(t, err)
	chart := c.Snapshot().Chart
	require.Equal(t, "MSFT", chart.Symbol)
	require.Equal(t, "history MSFT: HTTP 404", chart.Error)
	require.Empty(t, chart.Series.Points)
	require.False(t, chart.Loading)
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	quotes.EXPECT().FetchQuote(gomock.Any(), "AAPL").
		DoAndReturn(func(ctx context.Context, sym string) (provider.Quote, bool, error) {
			close(entered)
			<-release
			return stubQuote(ctx, sym)
		})
	quotes.EXPECT().FetchQuote(gomock.Any(), "MSFT").DoAndReturn(stubQuote)
	history.EXPECT().FetchHistory(gomock.Any(), gomock.Any()).DoAndReturn(stubHistory).AnyTimes()

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})

	// Act: the first update stalls, a second one completes before it
	done := make(chan error, 1)
	go func() { done <- c.UpdateTickers(context.Background(), "AAPL") }()
	<-entered
	require.NoError(t, c.UpdateTickers(t.Context(), "MSFT"))
	close(release)
	require.NoError(t, <-done)

	// Assert: the last request wins for quotes and chart
	snap := c.Snapshot()
	require.Equal(t, []string{"MSFT"}, symbolsOf(snap.Quotes))
	require.Equal(t, []string{"MSFT"}, snap.Tickers)
	require.Equal(t, "MSFT", snap.Chart.Symbol)
	require.False(t, snap.Loading)
}

func TestUpdateTickers_ChartLoadsAlongsideQuotes(t *testing.T) {
	t.Parallel()

	// Arrange: the quote call only returns once history has been fetched
	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	history := NewMockHistoryProvider(ctrl)

	historyDone := make(chan struct{})
	history.EXPECT().FetchHistory(gomock.Any(), "IBM").
		DoAndReturn(func(ctx context.Context, sym string) (provider.HistorySeries, error) {
			defer close(historyDone)
			return stubHistory(ctx, sym)
		})
	quotes.EXPECT().FetchQuote(gomock.Any(), "IBM").
		DoAndReturn(func(ctx context.Context, sym string) (provider.Quote, bool, error) {
			select {
			case <-historyDone:
				return stubQuote(ctx, sym)
			case <-time.After(5 * time.Second):
				return provider.Quote{}, false, errors.New("history was not fetched while quotes were loading")
			}
		})

	c := dashboard.New(dashboard.Options{Quotes: quotes, History: history})

	// Act
	err := c.UpdateTickers(t.Context(), "IBM")

	// Assert
	require.NoError(t, err)
	snap := c.Snapshot()
	require.Equal(t, []string{"IBM"}, symbolsOf(snap.Quotes))
	require.Len(t, snap.Chart.Series.Points, 2)
	require.False(t, snap.Chart.Loading)
}

func TestSearchAndSort(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).DoAndReturn(stubQuote).Times(3)

	c := dashboard.New(dashboard.Options{Quotes: quotes, DefaultTickers: []string{"AAPL", "MSFT", "NVDA"}})
	require.NoError(t, c.Start(t.Context()))

	require.Equal(t, view.Sort{Key: view.KeyPrice, Dir: view.Asc}, c.ToggleSort(view.KeyPrice))
	require.Equal(t, view.Sort{Key: view.KeyPrice, Dir: view.Desc}, c.ToggleSort(view.KeyPrice))

	rows := c.Snapshot().Rows
	require.Equal(t, []string{"NVDA", "MSFT", "AAPL"}, []string{rows[0].Symbol, rows[1].Symbol, rows[2].Symbol})

	c.SetSearch("  a ")
	snap := c.Snapshot()
	require.Equal(t, "  a ", snap.Search)
	require.Len(t, snap.Rows, 2)
	require.Equal(t, "NVDA", snap.Rows[0].Symbol)
	require.Equal(t, "AAPL", snap.Rows[1].Symbol)

	// Settings never trigger fetches; the stored quotes are unchanged.
	require.Len(t, snap.Quotes, 3)
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := NewMockQuoteProvider(ctrl)
	quotes.EXPECT().FetchQuote(gomock.Any(), gomock.Any()).DoAndReturn(stubQuote).Times(1)

	c := dashboard.New(dashboard.Options{Quotes: quotes})
	require.NoError(t, c.UpdateTickers(t.Context(), "AAPL"))

	snap := c.Snapshot()
	snap.Quotes[0].Symbol = "XXX"
	snap.Tickers[0] = "XXX"
	require.Equal(t, "AAPL", c.Snapshot().Quotes[0].Symbol)
	require.Equal(t, "AAPL", c.Snapshot().Tickers[0])
}
