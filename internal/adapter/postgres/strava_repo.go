package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runlog/internal/domain"
)

// Get returns the stored Strava credential, or nil when not connected.
// The deployment keeps at most one row.
func (d *DB) GetStravaToken(ctx context.Context) (*domain.StravaToken, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT id, athlete_id, access_token, refresh_token, expires_at, last_sync_at, created_at, updated_at FROM strava_tokens ORDER BY id LIMIT 1;")

	var (
		t        domain.StravaToken
		lastSync sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AthleteID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &lastSync, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		at := lastSync.Time
		t.LastSyncAt = &at
	}
	return &t, nil
}

// Upsert creates the credential or overwrites tokens and expiry for an
// athlete that already has one.
func (d *DB) UpsertStravaToken(ctx context.Context, token domain.StravaToken) error {
	now := time.Now().UTC()
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO strava_tokens (athlete_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (athlete_id) DO UPDATE SET access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at;`,
		token.AthleteID, token.AccessToken, token.RefreshToken, token.ExpiresAt.UTC(), now)
	return err
}

// UpdateTokens overwrites the token pair and expiry after a refresh.
func (d *DB) UpdateStravaTokens(ctx context.Context, athleteID int64, access, refresh string, expiresAt time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		"UPDATE strava_tokens SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = $4 WHERE athlete_id = $5;",
		access, refresh, expiresAt.UTC(), time.Now().UTC(), athleteID)
	return err
}

// SetLastSync records when a sync last completed.
func (d *DB) SetLastSync(ctx context.Context, athleteID int64, at time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		"UPDATE strava_tokens SET last_sync_at = $1 WHERE athlete_id = $2;", at.UTC(), athleteID)
	return err
}

// DeleteAll removes every stored credential.
func (d *DB) DeleteStravaTokens(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM strava_tokens;")
	return err
}
