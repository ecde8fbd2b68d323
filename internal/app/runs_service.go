// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrValidation marks rejected user input. The store is never touched when
// it is returned.
var ErrValidation = errors.New("invalid input")

// Upper bound for a single manually entered run.
const maxDistanceKm = 100

// RunsService encapsulates manual run logging and run queries.
type RunsService struct {
	runs domain.RunRepository
	now  func() time.Time
}

// NewRunsService creates a RunsService backed by the given repository.
func NewRunsService(repo domain.RunRepository) *RunsService {
	return &RunsService{runs: repo, now: time.Now}
}

// LogRun records a manually entered run. If a run already exists on that
// date its distance is overwritten, matching the entry form's behavior;
// otherwise a new run is inserted.
func (s *RunsService) LogRun(ctx context.Context, date string, distanceKm float64) (*domain.Run, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable date %q", ErrValidation, date)
	}
	if distanceKm <= 0 {
		return nil, fmt.Errorf("%w: distance must be positive", ErrValidation)
	}
	if distanceKm > maxDistanceKm {
		return nil, fmt.Errorf("%w: distance above %d km", ErrValidation, maxDistanceKm)
	}
	km := decimal.NewFromFloat(distanceKm).Round(2)

	existing, err := s.runs.FirstRunOnDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.runs.UpdateRunDistance(ctx, existing.ID, km); err != nil {
			return nil, err
		}
		existing.Distance = km
		return existing, nil
	}

	run := domain.Run{
		Date:      day,
		Distance:  km,
		Source:    domain.SourceManual,
		CreatedAt: s.now(),
	}
	id, err := s.runs.InsertRun(ctx, run)
	if err != nil {
		return nil, err
	}
	run.ID = id
	return &run, nil
}

// EditRun overwrites a run's distance.
func (s *RunsService) EditRun(ctx context.Context, id int64, distanceKm float64) error {
	if distanceKm < 0 {
		return fmt.Errorf("%w: distance cannot be negative", ErrValidation)
	}
	run, err := s.runs.GetRunByID(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: run %d not found", ErrValidation, id)
	}
	return s.runs.UpdateRunDistance(ctx, id, decimal.NewFromFloat(distanceKm).Round(2))
}

// DeleteRun removes a run by id.
func (s *RunsService) DeleteRun(ctx context.Context, id int64) error {
	return s.runs.DeleteRun(ctx, id)
}

// RunOnDate returns the first run logged on the given date, or nil.
func (s *RunsService) RunOnDate(ctx context.Context, date time.Time) (*domain.Run, error) {
	return s.runs.FirstRunOnDate(ctx, date)
}

// TodayRun returns today's date and the run logged for it, if any.
func (s *RunsService) TodayRun(ctx context.Context) (time.Time, *domain.Run, error) {
	today := domain.DateOf(s.now())
	run, err := s.runs.FirstRunOnDate(ctx, today)
	if err != nil {
		return time.Time{}, nil, err
	}
	return today, run, nil
}

// RunsInRange returns runs between start and end inclusive, oldest first.
func (s *RunsService) RunsInRange(ctx context.Context, start, end time.Time) ([]domain.Run, error) {
	return s.runs.ListRunsInRange(ctx, start, end)
}

// AllRuns returns every logged run, oldest first.
func (s *RunsService) AllRuns(ctx context.Context) ([]domain.Run, error) {
	return s.runs.ListAllRuns(ctx)
}

// TotalDistance returns the sum of all logged distances.
func (s *RunsService) TotalDistance(ctx context.Context) (decimal.Decimal, error) {
	return s.runs.TotalRunDistance(ctx)
}

// Count returns the number of logged runs.
func (s *RunsService) Count(ctx context.Context) (int, error) {
	return s.runs.CountRuns(ctx)
}
