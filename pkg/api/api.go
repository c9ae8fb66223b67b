// Package api defines the request and response messages of the
// flicksplit.v1.SplitService RPC API. Messages travel as JSON over the
// Connect protocol using Codec.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/mmynk/flicksplit/internal/models"
)

// Codec marshals messages as JSON. Its name makes Connect use the
// application/json content type.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

type AllocateRequest struct {
	Bill       models.Bill       `json:"bill"`
	Assignment models.Assignment `json:"assignment"`
}

type AllocateResponse struct {
	Guests []models.Guest `json:"guests"`
	// Unassigned items are excluded from every guest total.
	Unassigned []models.Item `json:"unassigned,omitempty"`
	Total      float64       `json:"total"`
}

type GetRateRequest struct {
	From string `json:"from_currency"`
	To   string `json:"to_currency"`
}

type GetRateResponse struct {
	From string  `json:"from_currency"`
	To   string  `json:"to_currency"`
	Rate float64 `json:"rate"`
}

type ListCurrenciesRequest struct {
	// Query filters by code, symbol or name; empty lists everything.
	Query string `json:"query,omitempty"`
}

type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Label  string `json:"label"`
}

type ListCurrenciesResponse struct {
	Currencies []Currency `json:"currencies"`
}

type RenderSummaryRequest struct {
	Bill       models.Bill        `json:"bill"`
	Assignment models.Assignment  `json:"assignment"`
	Conversion *models.Conversion `json:"conversion,omitempty"`
	// ProfileID selects the Venmo username to include, if any.
	ProfileID string `json:"profile_id,omitempty"`
}

type RenderSummaryResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type SaveBillRequest struct {
	Bill       models.Bill        `json:"bill"`
	Assignment models.Assignment  `json:"assignment"`
	Conversion *models.Conversion `json:"conversion,omitempty"`
}

type SaveBillResponse struct {
	BillID    string         `json:"bill_id"`
	CreatedAt int64          `json:"created_at"`
	Guests    []models.Guest `json:"guests"`
}

type GetBillRequest struct {
	BillID string `json:"bill_id"`
}

type GetBillResponse struct {
	Bill models.SavedBill `json:"bill"`
}

type ListBillsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListBillsResponse struct {
	Bills []models.BillSummary `json:"bills"`
}

type DeleteBillRequest struct {
	BillID string `json:"bill_id"`
}

type DeleteBillResponse struct{}

type GetProfileRequest struct {
	ProfileID string `json:"profile_id"`
}

type GetProfileResponse struct {
	Profile models.Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	ProfileID     string `json:"profile_id"`
	VenmoUsername string `json:"venmo_username"`
}

type UpdateProfileResponse struct {
	Profile models.Profile `json:"profile"`
}
