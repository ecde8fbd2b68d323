package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TrainingPlanEntry is a target distance assigned to a calendar date.
// At most one entry exists per date.
type TrainingPlanEntry struct {
	ID     int64
	Date   time.Time
	Target decimal.Decimal
}

// PlanRepository is the port for training-plan persistence.
type PlanRepository interface {
	UpsertPlanEntry(ctx context.Context, date time.Time, target decimal.Decimal) error
	DeletePlanEntry(ctx context.Context, id int64) error
	GetPlanEntryByID(ctx context.Context, id int64) (*TrainingPlanEntry, error)
	PlanEntryOnDate(ctx context.Context, date time.Time) (*TrainingPlanEntry, error)
	ListPlanInRange(ctx context.Context, start, end time.Time) ([]TrainingPlanEntry, error)
	ListPlanFrom(ctx context.Context, date time.Time) ([]TrainingPlanEntry, error)
	ListAllPlanEntries(ctx context.Context) ([]TrainingPlanEntry, error)
	TotalPlannedDistance(ctx context.Context) (decimal.Decimal, error)

	// ReplacePlan swaps the entire plan for the given entries in one
	// transaction. Used by bulk import.
	ReplacePlan(ctx context.Context, entries []TrainingPlanEntry) error
}
