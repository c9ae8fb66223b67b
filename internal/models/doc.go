// Package models defines the value types shared by the allocation engine,
// the summary renderer and the history store.
//
// # Models
//
//   - Bill: a scanned bill with line items, tax and tip
//   - Item: one line item
//   - Assignment: which guest ordered which item
//   - Guest: one guest's computed share
//   - Conversion: the exchange rate applied when displaying amounts
//   - Alert: a user-facing title and message
//   - Profile: sharing preferences (Venmo username)
//   - SavedBill: a history entry with its split
//   - BillSummary: one row of the bill history
//
// Guests are identified by name strings; there are no user accounts.
// Relationships use ID strings rather than pointers.
package models
