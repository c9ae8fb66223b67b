package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/flicksplit/internal/models"
	"github.com/mmynk/flicksplit/internal/storage"
)

// GetProfile retrieves a profile by its ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, venmo_username, updated_at
		FROM profiles
		WHERE id = ?
	`

	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.VenmoUsername,
		&profile.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpsertProfile creates the profile or replaces its fields.
// The Venmo username is stored without a leading "@".
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	profile.VenmoUsername = strings.TrimPrefix(strings.TrimSpace(profile.VenmoUsername), "@")
	profile.UpdatedAt = time.Now().Unix()

	query := `
		INSERT INTO profiles (id, venmo_username, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			venmo_username = excluded.venmo_username,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		profile.ID,
		profile.VenmoUsername,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}
