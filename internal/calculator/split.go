package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/flicksplit/internal/models"
)

var (
	// ErrInvalidBill is returned for numerically invalid bills
	// (negative or non-finite amounts).
	ErrInvalidBill = errors.New("invalid bill")

	// ErrInvalidConversion is returned when a conversion rate is not a
	// finite positive number or would overflow the converted amounts.
	ErrInvalidConversion = errors.New("invalid conversion")

	// ErrUnassignedItem is reported by Allocation.Err when some items were
	// not assigned to any listed guest.
	ErrUnassignedItem = errors.New("item not assigned to any guest")
)

// Allocation is the result of splitting a bill.
type Allocation struct {
	// Guests are in the order of Assignment.Guests.
	Guests []models.Guest

	// Unassigned are items that no listed guest received. They are excluded
	// from every guest's subtotal, so guest totals under-count the bill by
	// their price plus the matching tax and tip share.
	Unassigned []models.Item
}

// Total returns the unrounded sum of guest totals.
func (a Allocation) Total() float64 {
	var sum float64
	for _, g := range a.Guests {
		sum += g.Total
	}
	return sum
}

// Subtotal returns the unrounded sum of guest subtotals.
func (a Allocation) Subtotal() float64 {
	var sum float64
	for _, g := range a.Guests {
		sum += g.Subtotal
	}
	return sum
}

// Err returns ErrUnassignedItem when the allocation dropped items,
// for callers that treat that as a validation failure.
func (a Allocation) Err() error {
	if len(a.Unassigned) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d item(s), first %q", ErrUnassignedItem, len(a.Unassigned), a.Unassigned[0].Name)
}

// Subtotal sums item prices.
func Subtotal(items []models.Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Price
	}
	return sum
}

// Allocate computes every guest's share of the bill.
//
// Algorithm:
//   - guest.subtotal = sum of assigned item prices
//   - guest.tax = bill.tax × (guest.subtotal / bill.subtotal), same for tip
//   - if bill.subtotal is zero, tax and tip are split evenly
//   - guest.total = guest.subtotal + guest.tax + guest.tip
//
// Nothing is rounded here; rounding happens when amounts are displayed.
// Shape problems never fail: a guest with no items gets zero figures and
// unassigned items are listed in Allocation.Unassigned. Invalid numbers,
// amounts that overflow and repeated guest names return ErrInvalidBill.
func Allocate(bill models.Bill, assignment models.Assignment) (Allocation, error) {
	if err := validateBill(bill); err != nil {
		return Allocation{}, err
	}

	guests := make([]models.Guest, len(assignment.Guests))
	index := make(map[string]int, len(assignment.Guests))
	for i, name := range assignment.Guests {
		if _, dup := index[name]; dup {
			return Allocation{}, fmt.Errorf("%w: guest %q is listed more than once", ErrInvalidBill, name)
		}
		guests[i] = models.Guest{Name: name, Items: []models.Item{}}
		index[name] = i
	}

	var alloc Allocation
	for i, item := range bill.Items {
		name, assigned := assignment.Items[i]
		gi, known := index[name]
		if !assigned || !known {
			alloc.Unassigned = append(alloc.Unassigned, item)
			continue
		}
		guests[gi].Items = append(guests[gi].Items, item)
		guests[gi].Subtotal += item.Price
	}

	for i := range guests {
		g := &guests[i]
		if bill.Subtotal == 0 {
			g.Tax = bill.Tax / float64(len(guests))
			g.Tip = bill.Tip / float64(len(guests))
		} else {
			share := g.Subtotal / bill.Subtotal
			g.Tax = bill.Tax * share
			g.Tip = bill.Tip * share
		}
		g.Total = g.Subtotal + g.Tax + g.Tip
		if !finite(g.Total) {
			return Allocation{}, fmt.Errorf("%w: total for %q overflows", ErrInvalidBill, g.Name)
		}
	}

	alloc.Guests = guests
	if !finite(alloc.Total()) {
		return Allocation{}, fmt.Errorf("%w: guest totals overflow", ErrInvalidBill)
	}
	return alloc, nil
}

// CheckConversion reports ErrInvalidConversion when conv cannot be applied
// to every amount a summary of bill and alloc displays. A nil or identity
// conversion is always valid.
func CheckConversion(conv *models.Conversion, bill models.Bill, alloc Allocation) error {
	if conv == nil {
		return nil
	}
	if !finite(conv.Rate) || conv.Rate < 0 {
		return fmt.Errorf("%w: rate %v is not a finite non-negative number", ErrInvalidConversion, conv.Rate)
	}
	if !conv.Active() {
		return nil
	}
	amounts := []float64{bill.Subtotal, bill.Tax, bill.Tip, bill.Total, alloc.Total()}
	for _, g := range alloc.Guests {
		amounts = append(amounts, g.Subtotal, g.Tax, g.Tip, g.Total)
	}
	for _, a := range amounts {
		if !finite(conv.Apply(a)) {
			return fmt.Errorf("%w: %s to %s at %v overflows %v", ErrInvalidConversion, conv.From, conv.To, conv.Rate, a)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validateBill(bill models.Bill) error {
	check := func(field string, v float64) error {
		if !finite(v) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidBill, field)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s cannot be negative (%v)", ErrInvalidBill, field, v)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"subtotal", bill.Subtotal},
		{"tax", bill.Tax},
		{"tip", bill.Tip},
		{"total", bill.Total},
	} {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	for i, item := range bill.Items {
		if err := check(fmt.Sprintf("item %d (%s) price", i+1, item.Name), item.Price); err != nil {
			return err
		}
	}
	if !finite(bill.Subtotal + bill.Tax + bill.Tip) {
		return fmt.Errorf("%w: subtotal, tax and tip overflow", ErrInvalidBill)
	}
	if !finite(Subtotal(bill.Items)) {
		return fmt.Errorf("%w: item prices overflow", ErrInvalidBill)
	}
	return nil
}
