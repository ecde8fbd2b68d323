package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

const runColumns = "id, date, distance, duration, pace, strava_activity_id, source, created_at"

// Insert adds a new run and returns its id.
func (d *DB) InsertRun(ctx context.Context, run domain.Run) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO runs (date, distance, duration, pace, strava_activity_id, source, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;",
		run.Date, run.Distance, nullInt(run.Duration), nullDecimal(run.Pace), nullInt64(run.StravaActivityID), run.Source, run.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// UpdateDistance overwrites a run's distance.
func (d *DB) UpdateRunDistance(ctx context.Context, id int64, distance decimal.Decimal) error {
	_, err := d.sql.ExecContext(ctx, "UPDATE runs SET distance = $1 WHERE id = $2;", distance, id)
	return err
}

// Delete removes a run by id.
func (d *DB) DeleteRun(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM runs WHERE id = $1;", id)
	return err
}

// GetByID retrieves a run by id, or nil when absent.
func (d *DB) GetRunByID(ctx context.Context, id int64) (*domain.Run, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = $1;", id)
	return scanRun(row)
}

// FirstOnDate returns the earliest-created run on a date, or nil.
func (d *DB) FirstRunOnDate(ctx context.Context, date time.Time) (*domain.Run, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE date = $1 ORDER BY id LIMIT 1;", date)
	return scanRun(row)
}

// ListInRange returns runs between start and end inclusive, oldest first.
func (d *DB) ListRunsInRange(ctx context.Context, start, end time.Time) ([]domain.Run, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE date >= $1 AND date <= $2 ORDER BY date, id;", start, end)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

// ListAll returns every run, oldest first.
func (d *DB) ListAllRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY date, id;")
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

// ListRecent returns the most recent runs up to limit, newest first.
func (d *DB) ListRecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY date DESC, id DESC LIMIT $1;", limit)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

// TotalDistance returns the sum of all run distances.
func (d *DB) TotalRunDistance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := d.sql.QueryRowContext(ctx, "SELECT COALESCE(SUM(distance), 0) FROM runs;").Scan(&total)
	return total, err
}

// Count returns the number of runs.
func (d *DB) CountRuns(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs;").Scan(&count)
	return count, err
}

// ImportSynced inserts synced runs in a single transaction, relying on the
// unique index on strava_activity_id to drop duplicates. Returns the number
// actually inserted; the whole batch commits or none of it does.
func (d *DB) ImportSyncedRuns(ctx context.Context, runs []domain.Run) (int, error) {
	if len(runs) == 0 {
		return 0, nil
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO runs (date, distance, duration, pace, strava_activity_id, source, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (strava_activity_id) DO NOTHING;")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, run := range runs {
		res, err := stmt.ExecContext(ctx,
			run.Date, run.Distance, nullInt(run.Duration), nullDecimal(run.Pace), nullInt64(run.StravaActivityID), run.Source, run.CreatedAt.UTC())
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		r        domain.Run
		duration sql.NullInt64
		pace     decimal.NullDecimal
		stravaID sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.Date, &r.Distance, &duration, &pace, &stravaID, &r.Source, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Date = domain.DateOf(r.Date)
	if duration.Valid {
		v := int(duration.Int64)
		r.Duration = &v
	}
	if pace.Valid {
		p := pace.Decimal
		r.Pace = &p
	}
	if stravaID.Valid {
		id := stravaID.Int64
		r.StravaActivityID = &id
	}
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]domain.Run, error) {
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDecimal(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return *v
}
