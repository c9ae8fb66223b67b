// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/storage"
)

// UnknownRestaurant is listed for bills saved without a restaurant name.
const UnknownRestaurant = "Unknown Restaurant"

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// DSN pragmas apply to every pooled connection; cascading deletes need foreign_keys.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBill persists a split bill with its items, guests and conversion.
func (s *SQLiteStore) SaveBill(ctx context.Context, saved *models.SavedBill) error {
	bill := &saved.Bill
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}

	var convFrom, convTo sql.NullString
	var convRate sql.NullFloat64
	if c := saved.Conversion; c.Active() {
		convFrom = sql.NullString{String: c.From, Valid: true}
		convTo = sql.NullString{String: c.To, Valid: true}
		convRate = sql.NullFloat64{Float64: c.Rate, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, restaurant, subtotal, tax, tip, total, currency_symbol,
			conversion_from, conversion_to, conversion_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, strings.TrimSpace(bill.Restaurant), bill.Subtotal, bill.Tax, bill.Tip, bill.Total,
		bill.CurrencySymbol, convFrom, convTo, convRate, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i, item := range bill.Items {
		var guest sql.NullString
		if name, ok := saved.Assignment.Items[i]; ok {
			guest = sql.NullString{String: name, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (bill_id, position, name, price, guest) VALUES (?, ?, ?, ?, ?)",
			bill.ID, i, item.Name, item.Price, guest,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	for i, g := range saved.Guests {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO guests (bill_id, position, name, subtotal, tax, tip, total) VALUES (?, ?, ?, ?, ?, ?, ?)",
			bill.ID, i, g.Name, g.Subtotal, g.Tax, g.Tip, g.Total,
		)
		if err != nil {
			return fmt.Errorf("failed to insert guest: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a saved bill by ID, including items, guests and conversion.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.SavedBill, error) {
	saved := &models.SavedBill{
		Assignment: models.Assignment{Guests: []string{}, Items: map[int]string{}},
		Guests:     []models.Guest{},
	}
	bill := &saved.Bill

	var convFrom, convTo sql.NullString
	var convRate sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant, subtotal, tax, tip, total, currency_symbol,
			conversion_from, conversion_to, conversion_rate, created_at
		FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.Restaurant, &bill.Subtotal, &bill.Tax, &bill.Tip, &bill.Total,
		&bill.CurrencySymbol, &convFrom, &convTo, &convRate, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if convFrom.Valid && convTo.Valid && convRate.Valid {
		saved.Conversion = &models.Conversion{From: convFrom.String, To: convTo.String, Rate: convRate.Float64}
	}

	// Guests first so items can be attached to them
	guestRows, err := s.db.QueryContext(ctx,
		"SELECT name, subtotal, tax, tip, total FROM guests WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get guests: %w", err)
	}
	defer guestRows.Close()

	index := make(map[string]int)
	for guestRows.Next() {
		g := models.Guest{Items: []models.Item{}}
		if err := guestRows.Scan(&g.Name, &g.Subtotal, &g.Tax, &g.Tip, &g.Total); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		if _, dup := index[g.Name]; !dup {
			index[g.Name] = len(saved.Guests)
		}
		saved.Guests = append(saved.Guests, g)
		saved.Assignment.Guests = append(saved.Assignment.Guests, g.Name)
	}
	if err := guestRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		"SELECT position, name, price, guest FROM items WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	bill.Items = []models.Item{}
	for itemRows.Next() {
		var position int
		var item models.Item
		var guest sql.NullString
		if err := itemRows.Scan(&position, &item.Name, &item.Price, &guest); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		bill.Items = append(bill.Items, item)
		if !guest.Valid {
			continue
		}
		saved.Assignment.Items[position] = guest.String
		if gi, ok := index[guest.String]; ok {
			saved.Guests[gi].Items = append(saved.Guests[gi].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return saved, nil
}

// ListBills returns history rows newest first.
func (s *SQLiteStore) ListBills(ctx context.Context, limit int) ([]models.BillSummary, error) {
	query := `
		SELECT b.id, b.restaurant, b.total, b.created_at,
			(SELECT COUNT(*) FROM guests g WHERE g.bill_id = b.id)
		FROM bills b
		ORDER BY b.created_at DESC, b.rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	summaries := []models.BillSummary{}
	for rows.Next() {
		var b models.BillSummary
		if err := rows.Scan(&b.ID, &b.Restaurant, &b.Total, &b.CreatedAt, &b.GuestCount); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		if b.Restaurant == "" {
			b.Restaurant = UnknownRestaurant
		}
		summaries = append(summaries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return summaries, nil
}

// DeleteBill removes a bill; items and guests go with it.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return nil
}
