package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmynk/flicksplit/internal/config"
	"github.com/mmynk/flicksplit/internal/conversion"
	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/share"
	"github.com/mmynk/flicksplit/pkg/logging"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config

	// newRates builds the rate source; tests replace it.
	newRates func(cfg *config.Config) (exchange.RateSource, error)
}

func defaultRates(cfg *config.Config) (exchange.RateSource, error) {
	if err := cfg.RequireExchange(); err != nil {
		return nil, err
	}
	return exchange.NewGateway(cfg.Exchange.URL, exchange.WithTimeout(cfg.Exchange.Timeout)), nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{newRates: defaultRates})
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "flicksplit",
		Short:         "Split restaurant bills and convert them to another currency",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Path(a.configPath))
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			a.cfg = cfg
			logging.SetupWithOptions(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: cmd.ErrOrStderr()})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a TOML config file (default $FLICKSPLIT_CONFIG).")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error.")

	root.AddCommand(
		newCurrenciesCmd(a),
		newRateCmd(a),
		newSplitCmd(a),
		newHistoryCmd(a),
	)

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	return root
}

// printError writes err to w, preferring its user-facing alert.
func printError(w io.Writer, err error) {
	if alert, ok := conversion.AlertFor(err); ok {
		fmt.Fprintf(w, "%s: %s\n", alert.Title, alert.Message)
		return
	}
	var se *share.Error
	if errors.As(err, &se) {
		fmt.Fprintf(w, "%s: %s\n", se.Alert.Title, se.Alert.Message)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
