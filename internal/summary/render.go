// Package summary renders the shareable text report of a split bill.
package summary

import (
	"fmt"
	"strings"

	"github.com/mmynk/flicksplit/internal/currency"
	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/money"
)

const (
	// Title accompanies the message when it is shared.
	Title = "Bill Split Details"

	// NoGuests is the whole report when nobody has been added.
	NoGuests = "No guests have been added yet."

	// Signature ends every report.
	Signature = "Sent via Flick2Split"

	rule = "------------------------------\n"
)

// Renderer formats reports using a currency directory for symbols.
type Renderer struct {
	dir *currency.Directory
}

// NewRenderer creates a Renderer. A nil directory uses currency.Default().
func NewRenderer(dir *currency.Directory) *Renderer {
	if dir == nil {
		dir = currency.Default()
	}
	return &Renderer{dir: dir}
}

// Render formats a report with the default currency directory.
func Render(guests []models.Guest, bill models.Bill, conv *models.Conversion, venmoUsername string) string {
	return NewRenderer(nil).Render(guests, bill, conv, venmoUsername)
}

// Render formats the report for guests. conv may be nil; an inactive
// conversion is treated the same. Output depends only on the arguments.
func (r *Renderer) Render(guests []models.Guest, bill models.Bill, conv *models.Conversion, venmoUsername string) string {
	if len(guests) == 0 {
		return NoGuests
	}

	converted := conv.Active()
	native := nativeSymbol(bill)
	var target string
	if converted {
		if e, ok := r.dir.Lookup(conv.From); ok {
			native = e.Symbol
		}
		target = r.dir.Symbol(conv.To)
	}

	// owed renders what a guest pays: converted when active, native otherwise.
	owed := func(amount float64) string {
		if converted {
			return money.Format(target, conv.Apply(amount))
		}
		return money.Format(native, amount)
	}
	// dual renders a native figure followed by its converted value.
	dual := func(amount float64) string {
		if converted {
			return fmt.Sprintf("%s (%s)", money.Format(native, amount), owed(amount))
		}
		return money.Format(native, amount)
	}

	var total float64
	for _, g := range guests {
		total += g.Total
	}

	var b strings.Builder
	b.WriteString("BILL SPLIT SUMMARY\n\n")

	b.WriteString("PAYMENT REQUESTS\n")
	b.WriteString(rule + "\n")
	for _, g := range guests {
		fmt.Fprintf(&b, "%s owes %s\n", g.Name, owed(g.Total))
	}

	b.WriteString("\nBILL DETAILS\n")
	b.WriteString(rule)
	fmt.Fprintf(&b, "Subtotal: %s\n", dual(bill.Subtotal))
	fmt.Fprintf(&b, "Tax: %s\n", dual(bill.Tax))
	fmt.Fprintf(&b, "Tip: %s\n", dual(bill.Tip))
	fmt.Fprintf(&b, "Total: %s\n", dual(total))
	fmt.Fprintf(&b, "Split between %d people\n\n", len(guests))

	if converted {
		b.WriteString("CURRENCY CONVERSION\n")
		b.WriteString(rule)
		fmt.Fprintf(&b, "%s to %s @ %s\n\n", conv.From, conv.To, money.FormatRate(conv.Rate))
	}

	b.WriteString("DETAILED BREAKDOWN\n")
	b.WriteString(rule + "\n")
	for _, g := range guests {
		fmt.Fprintf(&b, "%s's TOTAL: %s\n", g.Name, owed(g.Total))
		b.WriteString("   Items:\n")
		for _, item := range g.Items {
			fmt.Fprintf(&b, "   - %s: %s\n", item.Name, money.Format(native, item.Price))
		}
		fmt.Fprintf(&b, "   Subtotal: %s\n", money.Format(native, g.Subtotal))
		fmt.Fprintf(&b, "   Tax: %s\n", money.Format(native, g.Tax))
		fmt.Fprintf(&b, "   Tip: %s\n", money.Format(native, g.Tip))
		if converted {
			fmt.Fprintf(&b, "   Original Total: %s\n", money.Format(native, g.Total))
			fmt.Fprintf(&b, "   Converted Total: %s\n\n", owed(g.Total))
		} else {
			fmt.Fprintf(&b, "   Total: %s\n\n", money.Format(native, g.Total))
		}
	}

	b.WriteString(rule)
	if strings.TrimSpace(venmoUsername) != "" {
		fmt.Fprintf(&b, "Pay me on Venmo: %s\n", VenmoLink(venmoUsername))
	} else {
		b.WriteString("Please Venmo or pay in cash!\n")
	}
	b.WriteString(Signature)
	return b.String()
}

// VenmoLink returns the profile URL for a Venmo username.
func VenmoLink(username string) string {
	return "https://venmo.com/u/" + strings.TrimPrefix(strings.TrimSpace(username), "@")
}

func nativeSymbol(bill models.Bill) string {
	if bill.CurrencySymbol != "" {
		return bill.CurrencySymbol
	}
	return currency.DefaultSymbol
}
