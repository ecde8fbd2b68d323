// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Run source tags.
const (
	SourceManual = "manual"
	SourceStrava = "strava"
)

// Run represents one logged running session. Distance and pace carry two
// fractional digits; repeated imports must reproduce them exactly, which is
// why they are decimals rather than floats.
type Run struct {
	ID               int64
	Date             time.Time // calendar date, midnight UTC
	Distance         decimal.Decimal
	Duration         *int // whole seconds, nil when unknown
	Pace             *decimal.Decimal
	StravaActivityID *int64
	Source           string
	CreatedAt        time.Time
}

// PaceFormatted returns the pace as "M:SS" per km, or "" when absent.
func (r Run) PaceFormatted() string {
	if r.Pace == nil {
		return ""
	}
	return FormatPace(*r.Pace)
}

// DurationFormatted returns the duration as "MM:SS", or "H:MM:SS" from one
// hour up. Empty when the run has no recorded duration.
func (r Run) DurationFormatted() string {
	if r.Duration == nil {
		return ""
	}
	return FormatDuration(*r.Duration)
}

// RunRepository is the port for run persistence. List results are ordered
// by date ascending unless noted; all reads return value snapshots.
type RunRepository interface {
	InsertRun(ctx context.Context, run Run) (int64, error)
	UpdateRunDistance(ctx context.Context, id int64, distance decimal.Decimal) error
	DeleteRun(ctx context.Context, id int64) error
	GetRunByID(ctx context.Context, id int64) (*Run, error)
	FirstRunOnDate(ctx context.Context, date time.Time) (*Run, error)
	ListRunsInRange(ctx context.Context, start, end time.Time) ([]Run, error)
	ListAllRuns(ctx context.Context) ([]Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
	TotalRunDistance(ctx context.Context) (decimal.Decimal, error)
	CountRuns(ctx context.Context) (int, error)

	// ImportSyncedRuns inserts the given synced runs in a single transaction,
	// silently skipping any whose Strava activity id is already present.
	// Returns the number actually inserted. Either the whole batch commits
	// or none of it does.
	ImportSyncedRuns(ctx context.Context, runs []Run) (int, error)
}
