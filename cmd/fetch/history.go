package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockdash/internal/chart"
	"stockdash/internal/provider"
)

type historyFlags struct {
	symbol string
	out    string
	png    string
}

func newHistoryCmd(a *app) *cobra.Command {
	var f historyFlags
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Dump the daily closing series of one symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.symbol, "symbol", "s", "", "symbol to fetch")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "JSON output file, - for stdout")
	cmd.Flags().StringVar(&f.png, "png", "", "also render the chart to this PNG file")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func runHistory(cmd *cobra.Command, a *app, f historyFlags) error {
	sym := strings.ToUpper(strings.TrimSpace(f.symbol))
	if sym == "" {
		return errors.New("empty symbol")
	}

	series, err := a.set.History.FetchHistory(cmd.Context(), sym)
	if err != nil {
		return provider.AsFetchError("history", sym, err)
	}
	series.Symbol = sym
	log.Info().Str("symbol", sym).Int("points", len(series.Points)).Msg("History fetched")

	b, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return err
	}
	if f.out == "" || f.out == "-" {
		if _, err := fmt.Fprintln(a.out, string(b)); err != nil {
			return err
		}
	} else if err := os.WriteFile(f.out, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.out, err)
	}

	if f.png == "" {
		return nil
	}
	img, err := chart.NewPresenter(nil).Render(series)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.png, img, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.png, err)
	}
	log.Info().Str("file", f.png).Msg("Chart written")
	return nil
}
