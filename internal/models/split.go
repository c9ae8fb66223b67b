package models

import "math"

// Bill is a scanned restaurant bill to be split among guests.
// It is supplied by the upstream scanning/assignment flow and treated as a
// read-only value by the allocation engine.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	// Empty until the bill is saved to history.
	ID string `json:"id,omitempty"`

	// Restaurant is the venue name printed on the receipt.
	Restaurant string `json:"restaurant"`

	// Subtotal is the pre-tax, pre-tip amount (normally the sum of Items).
	Subtotal float64 `json:"subtotal"`

	// Tax is the tax charged on the whole bill.
	Tax float64 `json:"tax"`

	// Tip is the tip added to the whole bill.
	Tip float64 `json:"tip"`

	// Total is the final amount; expected to be Subtotal + Tax + Tip.
	Total float64 `json:"total"`

	// Items are the line items in receipt order.
	Items []Item `json:"items"`

	// CurrencySymbol is the symbol printed on the receipt (e.g. "$").
	// Used when no conversion is active.
	CurrencySymbol string `json:"currency_symbol,omitempty"`

	// CreatedAt is the Unix timestamp when the bill was saved.
	CreatedAt int64 `json:"created_at,omitempty"`
}

// Item is a single line item on a bill.
type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Assignment maps bill items to guests.
// Each item belongs to at most one guest; shared items are resolved upstream.
type Assignment struct {
	// Guests is the ordered list of guest names. Names are unique.
	Guests []string `json:"guests"`

	// Items maps an index into Bill.Items to the guest that ordered it.
	Items map[int]string `json:"items"`
}

// Guest is one person's computed share of a bill.
type Guest struct {
	// Name is unique within a session.
	Name string `json:"name"`

	// Items are the items assigned to this guest, in bill order.
	Items []Item `json:"items"`

	// Subtotal is the sum of the guest's item prices.
	Subtotal float64 `json:"subtotal"`

	// Tax is the guest's proportional share of the bill tax.
	// Calculated as: bill.Tax × (guest.Subtotal / bill.Subtotal)
	Tax float64 `json:"tax"`

	// Tip is the guest's proportional share of the bill tip.
	Tip float64 `json:"tip"`

	// Total is always Subtotal + Tax + Tip.
	Total float64 `json:"total"`
}

// Alert is a message meant for the person using the app.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Conversion is an exchange rate applied when displaying amounts.
type Conversion struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// Active reports whether c converts anything. A nil Conversion is inactive,
// as is one without a positive finite rate.
func (c *Conversion) Active() bool {
	return c != nil && c.From != "" && c.To != "" && c.From != c.To &&
		c.Rate > 0 && !math.IsInf(c.Rate, 1)
}

// Apply converts an amount in From into To.
func (c *Conversion) Apply(amount float64) float64 {
	if !c.Active() {
		return amount
	}
	return amount * c.Rate
}
