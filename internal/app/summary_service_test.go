package app

import (
	"context"
	"math"
	"testing"
	"time"

	"runlog/internal/adapter/memory"
	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

// Thursday.
var testToday = domain.Date(2026, time.March, 12)

func newSummaryFixture(t *testing.T) (*memory.DB, *SummaryService) {
	t.Helper()
	db := memory.New()
	svc := NewSummaryService(db, db)
	svc.now = func() time.Time { return testToday }
	return db, svc
}

func seedRun(t *testing.T, db *memory.DB, date string, km string) {
	t.Helper()
	day, err := domain.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	_, err = db.InsertRun(context.Background(), domain.Run{
		Date:     day,
		Distance: decimal.RequireFromString(km),
		Source:   domain.SourceManual,
	})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
}

func seedTarget(t *testing.T, db *memory.DB, date string, km string) {
	t.Helper()
	day, err := domain.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	if err := db.UpsertPlanEntry(context.Background(), day, decimal.RequireFromString(km)); err != nil {
		t.Fatalf("upsert target: %v", err)
	}
}

func TestCurrentWeek(t *testing.T) {
	db, svc := newSummaryFixture(t)

	// Monday 2026-03-09 through Sunday 2026-03-15.
	seedRun(t, db, "2026-03-09", "5")
	seedRun(t, db, "2026-03-11", "8.5")
	seedRun(t, db, "2026-03-08", "20") // previous week, must not count
	seedTarget(t, db, "2026-03-09", "5")
	seedTarget(t, db, "2026-03-11", "8")

	week, err := svc.CurrentWeek(context.Background())
	if err != nil {
		t.Fatalf("current week: %v", err)
	}

	if !week.Start.Equal(domain.Date(2026, time.March, 9)) || !week.End.Equal(domain.Date(2026, time.March, 15)) {
		t.Fatalf("week bounds = %s..%s", week.Start, week.End)
	}
	if week.Actual.String() != "13.5" {
		t.Fatalf("actual = %s, want 13.5", week.Actual)
	}
	if week.Target.String() != "13" {
		t.Fatalf("target = %s, want 13", week.Target)
	}
	if week.DaysLogged != 2 {
		t.Fatalf("days logged = %d, want 2", week.DaysLogged)
	}
	if week.Progress == nil || math.Abs(*week.Progress-103.846) > 0.01 {
		t.Fatalf("progress = %v, want ~103.85", week.Progress)
	}
}

func TestCurrentWeek_NoTarget(t *testing.T) {
	db, svc := newSummaryFixture(t)
	seedRun(t, db, "2026-03-10", "5")

	week, err := svc.CurrentWeek(context.Background())
	if err != nil {
		t.Fatalf("current week: %v", err)
	}
	if week.Progress != nil {
		t.Fatalf("progress = %v, want nil for a targetless week", *week.Progress)
	}
}

func TestWeeklyHistory(t *testing.T) {
	db, svc := newSummaryFixture(t)

	// Current week: excluded.
	seedRun(t, db, "2026-03-10", "6")
	// Week of Mar 2: run and target.
	seedRun(t, db, "2026-03-03", "10")
	seedTarget(t, db, "2026-03-03", "12")
	// Week of Feb 23: run, no target.
	seedRun(t, db, "2026-02-24", "4")
	// Week of Feb 16: target only, no run: not listed.
	seedTarget(t, db, "2026-02-17", "8")

	history, err := svc.WeeklyHistory(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}

	first := history[0]
	if !first.Start.Equal(domain.Date(2026, time.March, 2)) {
		t.Fatalf("newest week starts %s, want 2026-03-02", first.Start)
	}
	if first.Diff == nil || first.Diff.String() != "-2" {
		t.Fatalf("diff = %v, want -2", first.Diff)
	}

	second := history[1]
	if !second.Start.Equal(domain.Date(2026, time.February, 23)) {
		t.Fatalf("older week starts %s, want 2026-02-23", second.Start)
	}
	if second.Diff != nil {
		t.Fatalf("diff = %v, want nil for a targetless week", *second.Diff)
	}
}

func TestStreak(t *testing.T) {
	db, svc := newSummaryFixture(t)

	seedRun(t, db, "2026-03-12", "5")
	seedRun(t, db, "2026-03-11", "5")
	seedRun(t, db, "2026-03-10", "5")
	// Gap on 03-09 ends the streak.
	seedRun(t, db, "2026-03-08", "5")

	streak, err := svc.Streak(context.Background())
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 3 {
		t.Fatalf("streak = %d, want 3", streak)
	}
}

func TestStreak_NoRunToday(t *testing.T) {
	db, svc := newSummaryFixture(t)
	seedRun(t, db, "2026-03-11", "5")

	streak, err := svc.Streak(context.Background())
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 0 {
		t.Fatalf("streak = %d, want 0 when today has no run", streak)
	}
}

func TestChartSeries(t *testing.T) {
	db, svc := newSummaryFixture(t)

	seedRun(t, db, "2026-03-01", "5")
	seedRun(t, db, "2026-03-02", "3")
	seedRun(t, db, "2026-03-02", "4") // second run same day adds up
	seedTarget(t, db, "2026-03-01", "6")
	seedTarget(t, db, "2026-03-03", "2")
	seedTarget(t, db, "2026-04-01", "20") // future, excluded

	points, err := svc.ChartSeries(context.Background())
	if err != nil {
		t.Fatalf("chart series: %v", err)
	}

	want := []ChartPoint{
		{Label: "Mar 01", Actual: 5, Target: 6},
		{Label: "Mar 02", Actual: 12, Target: 6},
		{Label: "Mar 03", Actual: 12, Target: 8},
	}
	if len(points) != len(want) {
		t.Fatalf("points = %v, want %v", points, want)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("point[%d] = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestComputeStats(t *testing.T) {
	db, svc := newSummaryFixture(t)

	seedRun(t, db, "2026-03-09", "5")
	seedRun(t, db, "2026-03-10", "12.5")
	seedRun(t, db, "2026-03-03", "3")

	stats, err := svc.ComputeStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalRuns != 3 {
		t.Fatalf("total runs = %d, want 3", stats.TotalRuns)
	}
	if stats.TotalDistance.String() != "20.5" {
		t.Fatalf("total distance = %s, want 20.5", stats.TotalDistance)
	}
	if stats.AvgDistance.String() != "6.83" {
		t.Fatalf("avg distance = %s, want 6.83", stats.AvgDistance)
	}
	if stats.MaxDistance.String() != "12.5" || stats.MinDistance.String() != "3" {
		t.Fatalf("max/min = %s/%s, want 12.5/3", stats.MaxDistance, stats.MinDistance)
	}
	if stats.BestWeekStart == nil || !stats.BestWeekStart.Equal(domain.Date(2026, time.March, 9)) {
		t.Fatalf("best week start = %v, want 2026-03-09", stats.BestWeekStart)
	}
	if stats.BestWeekTotal.String() != "17.5" {
		t.Fatalf("best week total = %s, want 17.5", stats.BestWeekTotal)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	_, svc := newSummaryFixture(t)

	stats, err := svc.ComputeStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRuns != 0 || stats.Streak != 0 || stats.BestWeekStart != nil {
		t.Fatalf("empty stats = %+v", stats)
	}
}

func TestPlanOverview(t *testing.T) {
	db, svc := newSummaryFixture(t)

	seedTarget(t, db, "2026-03-10", "5") // before yesterday, not in schedule
	seedTarget(t, db, "2026-03-11", "6") // yesterday
	seedTarget(t, db, "2026-03-12", "8") // today
	seedTarget(t, db, "2026-03-15", "21")
	seedRun(t, db, "2026-03-11", "6.5")

	overview, err := svc.Plan(context.Background())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if len(overview.Schedule) != 3 {
		t.Fatalf("schedule length = %d, want 3", len(overview.Schedule))
	}
	yesterday := overview.Schedule[0]
	if !yesterday.IsPast || yesterday.IsToday {
		t.Fatalf("yesterday flags = %+v", yesterday)
	}
	if yesterday.Logged == nil || yesterday.Logged.String() != "6.5" {
		t.Fatalf("yesterday logged = %v, want 6.5", yesterday.Logged)
	}
	if !overview.Schedule[1].IsToday {
		t.Fatalf("today not flagged: %+v", overview.Schedule[1])
	}
	if overview.Schedule[2].Logged != nil {
		t.Fatalf("future day has logged distance")
	}

	if overview.RaceDay == nil || !overview.RaceDay.Equal(domain.Date(2026, time.March, 15)) {
		t.Fatalf("race day = %v, want 2026-03-15", overview.RaceDay)
	}
	if overview.DaysRemaining != 3 {
		t.Fatalf("days remaining = %d, want 3", overview.DaysRemaining)
	}
	if overview.TotalPlanned.String() != "40" {
		t.Fatalf("total planned = %s, want 40", overview.TotalPlanned)
	}
	if overview.TotalRun.String() != "6.5" {
		t.Fatalf("total run = %s, want 6.5", overview.TotalRun)
	}
}
