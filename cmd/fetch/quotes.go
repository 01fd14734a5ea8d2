package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockdash/internal/dashboard"
	"stockdash/internal/provider"
	"stockdash/internal/view"
)

type quotesFlags struct {
	symbols     string
	search      string
	sort        string
	dir         string
	concurrency int
	asJSON      bool
}

func newQuotesCmd(a *app) *cobra.Command {
	var f quotesFlags
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Print the quote table for a list of symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuotes(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.symbols, "symbols", "s", "", "comma-separated symbols (default: configured tickers)")
	cmd.Flags().StringVar(&f.search, "search", "", "filter by symbol or name")
	cmd.Flags().StringVar(&f.sort, "sort", string(view.KeySymbol), "sort key: symbol, price or changePercent")
	cmd.Flags().StringVar(&f.dir, "dir", string(view.Asc), "sort direction: asc or desc")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel requests (default: configured)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print quotes as JSON")
	return cmd
}

type quotesOutput struct {
	Quotes []provider.Quote `json:"quotes"`
	Error  string           `json:"error,omitempty"`
}

func runQuotes(cmd *cobra.Command, a *app, f quotesFlags) error {
	key, err := view.ParseSortKey(f.sort)
	if err != nil {
		return err
	}
	dir, err := view.ParseDirection(f.dir)
	if err != nil {
		return err
	}

	symbols := dashboard.ParseTickers(f.symbols)
	if len(symbols) == 0 {
		symbols = dashboard.ParseTickers(strings.Join(a.cfg.Dashboard.DefaultTickers, ","))
	}
	concurrency := f.concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Dashboard.FetchConcurrency
	}

	start := time.Now()
	quotes, fetchErr := provider.FetchBatch(cmd.Context(), a.set.Quotes, symbols, concurrency)
	log.Debug().Int("quotes", len(quotes)).Dur("took", time.Since(start)).Msg("Batch done")
	quotes = view.Derive(quotes, f.search, view.Sort{Key: key, Dir: dir})

	if f.asJSON {
		out := quotesOutput{Quotes: quotes}
		if fetchErr != nil {
			out.Error = fetchErr.Error()
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		return fetchErr
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\tCHANGE")
	for _, r := range view.Rows(quotes) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Symbol, r.Name, r.Price, r.Change)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return fetchErr
}
