package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/flicksplit/internal/conversion"
	"github.com/mmynk/flicksplit/internal/currency"
	"github.com/mmynk/flicksplit/internal/money"
)

func newCurrenciesCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "currencies [search]",
		Args:  cobra.MaximumNArgs(1),
		Short: "List supported currencies, optionally filtered by code, symbol or name",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := currency.Default()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			entries := dir.Search(query)
			if len(entries) == 0 {
				return fmt.Errorf("no currency matches %q", query)
			}
			for _, e := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), dir.Full(e.Code))
			}
			return nil
		},
	}
}

func newRateCmd(a *app) *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "rate <from> <to>",
		Args:  cobra.ExactArgs(2),
		Short: "Fetch the exchange rate between two currencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := a.newRates(a.cfg)
			if err != nil {
				return err
			}
			dir := currency.Default()

			session := conversion.NewSession(rates, conversion.WithDirectory(dir))
			defer session.Close()
			if err := session.SelectOriginal(strings.ToUpper(args[0])); err != nil {
				return err
			}
			if err := session.SelectTarget(strings.ToUpper(args[1])); err != nil {
				return err
			}
			if err := session.Confirm(cmd.Context()); err != nil {
				return err
			}

			state := session.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "1 %s = %s %s\n", state.OriginalCurrency, money.FormatRate(state.Rate), state.TargetCurrency)
			if cmd.Flags().Changed("amount") {
				fmt.Fprintf(out, "%s = %s\n",
					money.Format(dir.Symbol(state.OriginalCurrency), amount),
					money.Format(dir.Symbol(state.TargetCurrency), money.Convert(amount, state.Rate)),
				)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "Also convert this amount.")
	return cmd
}
