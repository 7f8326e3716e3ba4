package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ProfileRepository stores one profile as rows of profile_entries
type ProfileRepository struct {
	db        *DB
	profileID string
}

// NewProfileRepository creates a profile repository for profileID
func NewProfileRepository(db *DB, profileID string) *ProfileRepository {
	return &ProfileRepository{db: db, profileID: profileID}
}

// entryRow represents the database row structure
type entryRow struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get returns the requested entries, or all entries when no keys are given
func (r *ProfileRepository) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	var rows []entryRow

	if len(keys) == 0 {
		query := `
			SELECT key, value, updated_at
			FROM profile_entries
			WHERE profile_id = $1
		`
		if err := r.db.SelectContext(ctx, &rows, query, r.profileID); err != nil {
			return nil, fmt.Errorf("selecting profile entries: %w", err)
		}
	} else {
		query := `
			SELECT key, value, updated_at
			FROM profile_entries
			WHERE profile_id = $1 AND key = ANY($2)
		`
		if err := r.db.SelectContext(ctx, &rows, query, r.profileID, pq.Array(keys)); err != nil {
			return nil, fmt.Errorf("selecting profile entries: %w", err)
		}
	}

	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		out[row.Key] = json.RawMessage(row.Value)
	}
	return out, nil
}

// Set upserts entries in a single transaction
func (r *ProfileRepository) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO profile_entries (profile_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for key, value := range entries {
			if _, err := tx.ExecContext(ctx, query, r.profileID, key, []byte(value)); err != nil {
				return fmt.Errorf("upserting %s: %w", key, err)
			}
		}
		return nil
	})
}

// Health checks database connectivity
func (r *ProfileRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}
