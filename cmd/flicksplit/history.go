package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/flicksplit/internal/money"
	"github.com/mmynk/flicksplit/internal/storage/sqlite"
	"github.com/mmynk/flicksplit/internal/summary"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Args:  cobra.NoArgs,
		Short: "List saved bills, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sqlite.New(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			bills, err := store.ListBills(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(bills) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved bills.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tRESTAURANT\tGUESTS\tTOTAL")
			for _, b := range bills {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					b.ID,
					time.Unix(b.CreatedAt, 0).Format("2006-01-02 15:04"),
					b.Restaurant,
					b.GuestCount,
					money.Fixed(b.Total),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of bills to list (0 for all).")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <id>",
			Args:  cobra.ExactArgs(1),
			Short: "Print the summary of a saved bill",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := sqlite.New(a.cfg.DBPath)
				if err != nil {
					return err
				}
				defer store.Close()

				saved, err := store.GetBill(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary.Render(saved.Guests, saved.Bill, saved.Conversion, ""))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Args:  cobra.ExactArgs(1),
			Short: "Delete a saved bill",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := sqlite.New(a.cfg.DBPath)
				if err != nil {
					return err
				}
				defer store.Close()

				if err := store.DeleteBill(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted bill %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
