package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PlanService encapsulates training-plan queries and bulk import.
type PlanService struct {
	plan domain.PlanRepository
}

// NewPlanService creates a PlanService backed by the given repository.
func NewPlanService(repo domain.PlanRepository) *PlanService {
	return &PlanService{plan: repo}
}

// TargetOnDate returns the plan entry for a date, or nil when none exists.
func (s *PlanService) TargetOnDate(ctx context.Context, date time.Time) (*domain.TrainingPlanEntry, error) {
	return s.plan.PlanEntryOnDate(ctx, date)
}

// TargetsInRange returns plan entries between start and end inclusive.
func (s *PlanService) TargetsInRange(ctx context.Context, start, end time.Time) ([]domain.TrainingPlanEntry, error) {
	return s.plan.ListPlanInRange(ctx, start, end)
}

// SetTarget creates or overwrites the target for a date.
func (s *PlanService) SetTarget(ctx context.Context, date string, targetKm float64) error {
	day, err := domain.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: unparseable date %q", ErrValidation, date)
	}
	if targetKm < 0 {
		return fmt.Errorf("%w: target must be 0 or positive", ErrValidation)
	}
	return s.plan.UpsertPlanEntry(ctx, day, decimal.NewFromFloat(targetKm).Round(2))
}

// DeleteEntry removes a plan entry by id.
func (s *PlanService) DeleteEntry(ctx context.Context, id int64) error {
	return s.plan.DeletePlanEntry(ctx, id)
}

// TotalPlanned returns the sum of all target distances.
func (s *PlanService) TotalPlanned(ctx context.Context) (decimal.Decimal, error) {
	return s.plan.TotalPlannedDistance(ctx)
}

// ImportCSV replaces the plan with rows from a CSV having Date and
// Target_km columns. Malformed rows are skipped; duplicate dates resolve
// last-value-wins. Returns the number of entries imported.
func (s *PlanService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: missing csv header", ErrValidation)
	}
	dateCol, targetCol := -1, -1
	for i, name := range header {
		switch name {
		case "Date":
			dateCol = i
		case "Target_km":
			targetCol = i
		}
	}
	if dateCol < 0 || targetCol < 0 {
		return 0, fmt.Errorf("%w: csv needs Date and Target_km columns", ErrValidation)
	}

	targets := make(map[time.Time]decimal.Decimal)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if dateCol >= len(record) || targetCol >= len(record) {
			continue
		}
		day, err := domain.ParseDate(record[dateCol])
		if err != nil {
			continue
		}
		target, err := decimal.NewFromString(record[targetCol])
		if err != nil {
			continue
		}
		targets[day] = target.Round(2)
	}

	return len(targets), s.replacePlan(ctx, targets)
}

type yamlPlan struct {
	Schedule map[string]float64 `yaml:"schedule"`
}

// ImportYAML replaces the plan with a YAML schedule mapping dates to
// target kilometers. Unparseable dates are skipped.
func (s *PlanService) ImportYAML(ctx context.Context, r io.Reader) (int, error) {
	var doc yamlPlan
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: bad yaml plan: %v", ErrValidation, err)
	}

	targets := make(map[time.Time]decimal.Decimal)
	for key, km := range doc.Schedule {
		day, err := domain.ParseDate(key)
		if err != nil {
			continue
		}
		targets[day] = decimal.NewFromFloat(km).Round(2)
	}

	return len(targets), s.replacePlan(ctx, targets)
}

func (s *PlanService) replacePlan(ctx context.Context, targets map[time.Time]decimal.Decimal) error {
	entries := make([]domain.TrainingPlanEntry, 0, len(targets))
	for day, target := range targets {
		entries = append(entries, domain.TrainingPlanEntry{Date: day, Target: target})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return s.plan.ReplacePlan(ctx, entries)
}
