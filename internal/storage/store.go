// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/flicksplit/internal/models"
)

// ErrNotFound is wrapped when a bill or profile does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for bill history and profile storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// SaveBill persists a split bill.
	// saved.Bill.ID and saved.Bill.CreatedAt are populated by the store when empty.
	SaveBill(ctx context.Context, saved *models.SavedBill) error

	// GetBill retrieves a saved bill by its ID, with guests rebuilt from
	// the stored assignment.
	GetBill(ctx context.Context, billID string) (*models.SavedBill, error)

	// ListBills returns history rows, newest first. limit <= 0 means no limit.
	ListBills(ctx context.Context, limit int) ([]models.BillSummary, error)

	// DeleteBill removes a saved bill.
	DeleteBill(ctx context.Context, billID string) error

	// GetProfile returns the profile with the given ID.
	GetProfile(ctx context.Context, id string) (*models.Profile, error)

	// UpsertProfile creates or replaces a profile.
	UpsertProfile(ctx context.Context, profile *models.Profile) error

	// Close releases any resources held by the store.
	Close() error
}
