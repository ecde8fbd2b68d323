package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

// Upsert creates or overwrites the target for a date.
func (d *DB) UpsertPlanEntry(ctx context.Context, date time.Time, target decimal.Decimal) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO training_plan (date, target_distance) VALUES ($1, $2) ON CONFLICT (date) DO UPDATE SET target_distance = EXCLUDED.target_distance;",
		date, target)
	return err
}

// Delete removes a plan entry by id.
func (d *DB) DeletePlanEntry(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM training_plan WHERE id = $1;", id)
	return err
}

// GetByID retrieves a plan entry by id, or nil when absent.
func (d *DB) GetPlanEntryByID(ctx context.Context, id int64) (*domain.TrainingPlanEntry, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT id, date, target_distance FROM training_plan WHERE id = $1;", id)
	return scanPlanEntry(row)
}

// OnDate retrieves the plan entry for a date, or nil when absent.
func (d *DB) PlanEntryOnDate(ctx context.Context, date time.Time) (*domain.TrainingPlanEntry, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT id, date, target_distance FROM training_plan WHERE date = $1;", date)
	return scanPlanEntry(row)
}

// ListInRange returns plan entries between start and end inclusive.
func (d *DB) ListPlanInRange(ctx context.Context, start, end time.Time) ([]domain.TrainingPlanEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, date, target_distance FROM training_plan WHERE date >= $1 AND date <= $2 ORDER BY date;", start, end)
	if err != nil {
		return nil, err
	}
	return scanPlanEntries(rows)
}

// ListFrom returns plan entries on or after the given date.
func (d *DB) ListPlanFrom(ctx context.Context, date time.Time) ([]domain.TrainingPlanEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, date, target_distance FROM training_plan WHERE date >= $1 ORDER BY date;", date)
	if err != nil {
		return nil, err
	}
	return scanPlanEntries(rows)
}

// ListAll returns every plan entry ordered by date.
func (d *DB) ListAllPlanEntries(ctx context.Context) ([]domain.TrainingPlanEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, date, target_distance FROM training_plan ORDER BY date;")
	if err != nil {
		return nil, err
	}
	return scanPlanEntries(rows)
}

// TotalTarget returns the sum of all target distances.
func (d *DB) TotalPlannedDistance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := d.sql.QueryRowContext(ctx, "SELECT COALESCE(SUM(target_distance), 0) FROM training_plan;").Scan(&total)
	return total, err
}

// ReplaceAll swaps the entire plan for the given entries in one transaction.
func (d *DB) ReplacePlan(ctx context.Context, entries []domain.TrainingPlanEntry) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM training_plan;"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO training_plan (date, target_distance) VALUES ($1, $2);")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Date, e.Target); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanPlanEntry(row rowScanner) (*domain.TrainingPlanEntry, error) {
	var e domain.TrainingPlanEntry
	err := row.Scan(&e.ID, &e.Date, &e.Target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Date = domain.DateOf(e.Date)
	return &e, nil
}

func scanPlanEntries(rows *sql.Rows) ([]domain.TrainingPlanEntry, error) {
	defer rows.Close()

	var out []domain.TrainingPlanEntry
	for rows.Next() {
		e, err := scanPlanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
