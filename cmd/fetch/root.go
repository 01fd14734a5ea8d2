package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stockdash/internal/config"
	"stockdash/internal/logger"
	"stockdash/internal/provider/sources"
)

// app holds what the subcommands share after PersistentPreRunE.
type app struct {
	out      io.Writer
	cfgFile  string
	provider string
	verbose  bool

	cfg config.Config
	set sources.Set
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch stock quotes and daily history",
		Long: `Fetch stock quotes and daily history from the configured provider.

Examples:
  go run ./cmd/fetch quotes --symbols AAPL,MSFT --sort changePercent --dir desc
  go run ./cmd/fetch history --symbol AAPL --out aapl.json --png aapl.png`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.init() },
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "path to config.json (default CONFIG_FILE or ./config.json)")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "provider override: alphavantage or fmp")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newQuotesCmd(a))
	root.AddCommand(newHistoryCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.provider != "" {
		cfg.Provider = a.provider
	}

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{
		Level:       level,
		Format:      "pretty",
		ServiceName: "stockdash-fetch",
		Out:         os.Stderr,
	}); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	set, err := sources.New(cfg, sources.HTTPClient(cfg))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.set = set
	return nil
}
