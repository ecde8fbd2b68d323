package app

import (
	"context"
	"sort"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

// SummaryService answers aggregate queries over runs and the training plan:
// weekly totals, streaks, statistics, and the cumulative chart series.
type SummaryService struct {
	runs domain.RunRepository
	plan domain.PlanRepository
	now  func() time.Time
}

// NewSummaryService creates a SummaryService over the given repositories.
func NewSummaryService(runs domain.RunRepository, plan domain.PlanRepository) *SummaryService {
	return &SummaryService{runs: runs, plan: plan, now: time.Now}
}

// WeekSummary describes one Monday-anchored week.
type WeekSummary struct {
	Start      time.Time
	End        time.Time
	Actual     decimal.Decimal
	Target     decimal.Decimal
	DaysLogged int
	// Progress is actual/target as a percentage. Nil when the week has no
	// target: a targetless week has no completion figure, not 0%.
	Progress *float64
}

// CurrentWeek summarizes the week containing today.
func (s *SummaryService) CurrentWeek(ctx context.Context) (*WeekSummary, error) {
	today := domain.DateOf(s.now())
	monday := domain.WeekStart(today)
	sunday := monday.AddDate(0, 0, 6)

	runs, err := s.runs.ListRunsInRange(ctx, monday, sunday)
	if err != nil {
		return nil, err
	}
	targets, err := s.plan.ListPlanInRange(ctx, monday, sunday)
	if err != nil {
		return nil, err
	}

	actual := decimal.Zero
	for _, r := range runs {
		actual = actual.Add(r.Distance)
	}
	target := decimal.Zero
	for _, t := range targets {
		target = target.Add(t.Target)
	}

	summary := &WeekSummary{
		Start:      monday,
		End:        sunday,
		Actual:     actual,
		Target:     target,
		DaysLogged: len(runs),
	}
	if target.IsPositive() {
		p, _ := actual.Div(target).Mul(decimal.NewFromInt(100)).Float64()
		summary.Progress = &p
	}
	return summary, nil
}

// WeekHistoryEntry is one completed week in the dashboard history.
type WeekHistoryEntry struct {
	Start  time.Time
	End    time.Time
	Actual decimal.Decimal
	Target decimal.Decimal
	// Diff is actual minus target; nil when the week had no target.
	Diff *decimal.Decimal
}

// WeeklyHistory returns every completed week that has at least one run,
// newest first. The current week is excluded.
func (s *SummaryService) WeeklyHistory(ctx context.Context) ([]WeekHistoryEntry, error) {
	runs, err := s.runs.ListAllRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	plans, err := s.plan.ListAllPlanEntries(ctx)
	if err != nil {
		return nil, err
	}

	type bucket struct{ actual, target decimal.Decimal }
	weeks := make(map[time.Time]*bucket)
	for _, r := range runs {
		monday := domain.WeekStart(r.Date)
		b, ok := weeks[monday]
		if !ok {
			b = &bucket{actual: decimal.Zero, target: decimal.Zero}
			weeks[monday] = b
		}
		b.actual = b.actual.Add(r.Distance)
	}
	// Targets only contribute to weeks that saw a run.
	for _, p := range plans {
		if b, ok := weeks[domain.WeekStart(p.Date)]; ok {
			b.target = b.target.Add(p.Target)
		}
	}

	currentMonday := domain.WeekStart(domain.DateOf(s.now()))
	mondays := make([]time.Time, 0, len(weeks))
	for monday := range weeks {
		if monday.Before(currentMonday) {
			mondays = append(mondays, monday)
		}
	}
	sort.Slice(mondays, func(i, j int) bool { return mondays[i].After(mondays[j]) })

	history := make([]WeekHistoryEntry, 0, len(mondays))
	for _, monday := range mondays {
		b := weeks[monday]
		entry := WeekHistoryEntry{
			Start:  monday,
			End:    monday.AddDate(0, 0, 6),
			Actual: b.actual,
			Target: b.target,
		}
		if b.target.IsPositive() {
			diff := b.actual.Sub(b.target)
			entry.Diff = &diff
		}
		history = append(history, entry)
	}
	return history, nil
}

// Streak counts consecutive calendar days up to and including today with at
// least one logged run.
func (s *SummaryService) Streak(ctx context.Context) (int, error) {
	streak := 0
	for day := domain.DateOf(s.now()); ; day = day.AddDate(0, 0, -1) {
		run, err := s.runs.FirstRunOnDate(ctx, day)
		if err != nil {
			return 0, err
		}
		if run == nil {
			return streak, nil
		}
		streak++
	}
}

// ChartPoint is one point of the cumulative actual-vs-target series.
type ChartPoint struct {
	Label  string  `json:"label"`
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
}

// ChartSeries walks the sorted union of dates bearing a run or a plan
// entry, up to today, accumulating actual and target distance. Dates with
// neither emit no point.
func (s *SummaryService) ChartSeries(ctx context.Context) ([]ChartPoint, error) {
	runs, err := s.runs.ListAllRuns(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.plan.ListAllPlanEntries(ctx)
	if err != nil {
		return nil, err
	}

	actualByDate := make(map[time.Time]decimal.Decimal)
	for _, r := range runs {
		actualByDate[r.Date] = actualByDate[r.Date].Add(r.Distance)
	}
	targetByDate := make(map[time.Time]decimal.Decimal)
	for _, p := range plans {
		targetByDate[p.Date] = p.Target
	}

	today := domain.DateOf(s.now())
	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0, len(actualByDate)+len(targetByDate))
	for d := range actualByDate {
		if !d.After(today) && !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	for d := range targetByDate {
		if !d.After(today) && !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]ChartPoint, 0, len(dates))
	cumActual, cumTarget := decimal.Zero, decimal.Zero
	for _, d := range dates {
		cumActual = cumActual.Add(actualByDate[d])
		cumTarget = cumTarget.Add(targetByDate[d])
		actual, _ := cumActual.Round(1).Float64()
		target, _ := cumTarget.Round(1).Float64()
		points = append(points, ChartPoint{
			Label:  d.Format("Jan 02"),
			Actual: actual,
			Target: target,
		})
	}
	return points, nil
}

// RunWithTarget is a run joined with the plan target for its date.
type RunWithTarget struct {
	Run    domain.Run
	Target *decimal.Decimal
	// Diff is distance minus target; nil when there is no positive target
	// for the date.
	Diff *decimal.Decimal
}

// RecentRuns returns the latest runs with their targets, newest first.
func (s *SummaryService) RecentRuns(ctx context.Context, limit int) ([]RunWithTarget, error) {
	runs, err := s.runs.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.joinTargets(ctx, runs)
}

// AllRunsWithTargets returns every run with its target, newest first.
func (s *SummaryService) AllRunsWithTargets(ctx context.Context) ([]RunWithTarget, error) {
	runs, err := s.runs.ListAllRuns(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Date.After(runs[j].Date) })
	return s.joinTargets(ctx, runs)
}

func (s *SummaryService) joinTargets(ctx context.Context, runs []domain.Run) ([]RunWithTarget, error) {
	out := make([]RunWithTarget, 0, len(runs))
	for _, r := range runs {
		entry, err := s.plan.PlanEntryOnDate(ctx, r.Date)
		if err != nil {
			return nil, err
		}
		item := RunWithTarget{Run: r}
		if entry != nil {
			target := entry.Target
			item.Target = &target
			if target.IsPositive() {
				diff := r.Distance.Sub(target)
				item.Diff = &diff
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Stats is the aggregate view for the dashboard and stats page.
type Stats struct {
	TotalRuns     int
	TotalDistance decimal.Decimal
	AvgDistance   decimal.Decimal
	MaxDistance   decimal.Decimal
	MinDistance   decimal.Decimal
	BestWeekStart *time.Time
	BestWeekTotal decimal.Decimal
	Streak        int
}

// ComputeStats derives overall statistics from all logged runs.
func (s *SummaryService) ComputeStats(ctx context.Context) (*Stats, error) {
	runs, err := s.runs.ListAllRuns(ctx)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streak(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalRuns: len(runs), Streak: streak}
	if len(runs) == 0 {
		return stats, nil
	}

	total := decimal.Zero
	maxDist := runs[0].Distance
	minDist := runs[0].Distance
	weekTotals := make(map[time.Time]decimal.Decimal)
	for _, r := range runs {
		total = total.Add(r.Distance)
		if r.Distance.GreaterThan(maxDist) {
			maxDist = r.Distance
		}
		if r.Distance.LessThan(minDist) {
			minDist = r.Distance
		}
		monday := domain.WeekStart(r.Date)
		weekTotals[monday] = weekTotals[monday].Add(r.Distance)
	}

	stats.TotalDistance = total
	stats.AvgDistance = total.Div(decimal.NewFromInt(int64(len(runs)))).Round(2)
	stats.MaxDistance = maxDist
	stats.MinDistance = minDist

	for monday, sum := range weekTotals {
		if stats.BestWeekStart == nil || sum.GreaterThan(stats.BestWeekTotal) {
			m := monday
			stats.BestWeekStart = &m
			stats.BestWeekTotal = sum
		}
	}
	return stats, nil
}

// ScheduleDay is one row of the plan overview.
type ScheduleDay struct {
	Entry   domain.TrainingPlanEntry
	Logged  *decimal.Decimal
	IsToday bool
	IsPast  bool
}

// PlanOverview is the plan page data: the schedule from yesterday onward
// plus overall progress and the countdown to the final plan day.
type PlanOverview struct {
	Schedule      []ScheduleDay
	TotalRun      decimal.Decimal
	TotalPlanned  decimal.Decimal
	RaceDay       *time.Time
	DaysRemaining int
}

// Plan builds the plan overview.
func (s *SummaryService) Plan(ctx context.Context) (*PlanOverview, error) {
	today := domain.DateOf(s.now())
	yesterday := today.AddDate(0, 0, -1)

	entries, err := s.plan.ListPlanFrom(ctx, yesterday)
	if err != nil {
		return nil, err
	}
	totalRun, err := s.runs.TotalRunDistance(ctx)
	if err != nil {
		return nil, err
	}
	totalPlanned, err := s.plan.TotalPlannedDistance(ctx)
	if err != nil {
		return nil, err
	}

	overview := &PlanOverview{
		Schedule:     make([]ScheduleDay, 0, len(entries)),
		TotalRun:     totalRun,
		TotalPlanned: totalPlanned,
	}

	all, err := s.plan.ListAllPlanEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		last := all[len(all)-1].Date
		overview.RaceDay = &last
		overview.DaysRemaining = int(last.Sub(today).Hours() / 24)
	}

	for _, entry := range entries {
		day := ScheduleDay{
			Entry:   entry,
			IsToday: entry.Date.Equal(today),
			IsPast:  entry.Date.Before(today),
		}
		run, err := s.runs.FirstRunOnDate(ctx, entry.Date)
		if err != nil {
			return nil, err
		}
		if run != nil {
			logged := run.Distance
			day.Logged = &logged
		}
		overview.Schedule = append(overview.Schedule, day)
	}
	return overview, nil
}
