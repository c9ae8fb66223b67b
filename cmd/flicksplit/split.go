package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/flicksplit/internal/calculator"
	"github.com/mmynk/flicksplit/internal/conversion"
	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/share"
	"github.com/mmynk/flicksplit/internal/storage/sqlite"
	"github.com/mmynk/flicksplit/pkg/api"
)

type splitOptions struct {
	billPath string
	from     string
	to       string
	venmo    string
	save     bool
}

func newSplitCmd(a *app) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "split --bill <file>",
		Args:  cobra.NoArgs,
		Short: "Print the shareable summary for a bill",
		Long: `Split reads a bill and its guest assignment as JSON ("-" for stdin):

  {"bill": {"restaurant": "...", "subtotal": 100, "tax": 8, "tip": 15, "total": 123,
            "items": [{"name": "Pizza", "price": 60}]},
   "assignment": {"guests": ["Alice"], "items": {"0": "Alice"}}}

With --to the summary also shows every amount converted at the current rate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSplit(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.billPath, "bill", "", "Bill JSON file, or - for stdin.")
	cmd.Flags().StringVar(&opts.from, "from", "USD", "Currency the bill is in.")
	cmd.Flags().StringVar(&opts.to, "to", "", "Currency to convert to.")
	cmd.Flags().StringVar(&opts.venmo, "venmo", "", "Venmo username to include in the summary.")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the bill to history.")
	cmd.MarkFlagRequired("bill")
	return cmd
}

func runSplit(cmd *cobra.Command, a *app, opts splitOptions) error {
	req, err := readBill(cmd.InOrStdin(), opts.billPath)
	if err != nil {
		return err
	}

	alloc, err := calculator.Allocate(req.Bill, req.Assignment)
	if err != nil {
		return err
	}
	for _, item := range alloc.Unassigned {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not assigned to anyone\n", item.Name)
	}

	var conv *models.Conversion
	if opts.to != "" {
		rates, err := a.newRates(a.cfg)
		if err != nil {
			return err
		}
		session := conversion.NewSession(rates)
		defer session.Close()
		if err := session.SelectOriginal(strings.ToUpper(opts.from)); err != nil {
			return err
		}
		if err := session.SelectTarget(strings.ToUpper(opts.to)); err != nil {
			return err
		}
		if err := session.Confirm(cmd.Context()); err != nil {
			return err
		}
		conv = session.Conversion()
		if err := calculator.CheckConversion(conv, req.Bill, alloc); err != nil {
			return err
		}
	}

	dispatcher := share.NewDispatcher(share.WriterSharer{W: cmd.OutOrStdout()})
	if _, err := dispatcher.Dispatch(cmd.Context(), share.Request{
		Guests:        alloc.Guests,
		Bill:          req.Bill,
		Conversion:    conv,
		VenmoUsername: opts.venmo,
	}); err != nil {
		return err
	}

	if !opts.save {
		return nil
	}
	if err := alloc.Err(); err != nil {
		return fmt.Errorf("not saved: %w", err)
	}
	store, err := sqlite.New(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	saved := &models.SavedBill{Bill: req.Bill, Assignment: req.Assignment, Guests: alloc.Guests, Conversion: conv}
	if err := store.SaveBill(cmd.Context(), saved); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved bill %s\n", saved.Bill.ID)
	return nil
}

func readBill(stdin io.Reader, path string) (*api.AllocateRequest, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bill: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req api.AllocateRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse bill %s: %w", path, err)
	}
	return &req, nil
}
