package models

// Profile holds per-user sharing preferences.
type Profile struct {
	// ID identifies the profile owner.
	ID string `json:"id"`

	// VenmoUsername is stored without the leading "@".
	// Empty means no payment link is added to shared summaries.
	VenmoUsername string `json:"venmo_username"`

	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// SavedBill is a history entry: the bill, how it was split, and the
// conversion shown at the time, if any.
type SavedBill struct {
	Bill       Bill        `json:"bill"`
	Assignment Assignment  `json:"assignment"`
	Guests     []Guest     `json:"guests"`
	Conversion *Conversion `json:"conversion,omitempty"`
}

// BillSummary is a compact history row.
type BillSummary struct {
	ID         string  `json:"id"`
	Restaurant string  `json:"restaurant"`
	Total      float64 `json:"total"`
	GuestCount int     `json:"guest_count"`
	CreatedAt  int64   `json:"created_at"`
}
