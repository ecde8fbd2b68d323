package memory

import (
	"context"
	"testing"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func TestImportSyncedRuns_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	db := New()

	day := domain.Date(2026, time.March, 10)
	batch := []domain.Run{
		{Date: day, Distance: decimal.RequireFromString("5"), StravaActivityID: int64Ptr(111), Source: domain.SourceStrava},
		{Date: day, Distance: decimal.RequireFromString("7.12"), StravaActivityID: int64Ptr(222), Source: domain.SourceStrava},
	}

	inserted, err := db.ImportSyncedRuns(ctx, batch)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}

	batch = append(batch, domain.Run{
		Date: day, Distance: decimal.RequireFromString("10"), StravaActivityID: int64Ptr(333), Source: domain.SourceStrava,
	})
	inserted, err = db.ImportSyncedRuns(ctx, batch)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}

	if n, _ := db.CountRuns(ctx); n != 3 {
		t.Fatalf("run count = %d, want 3", n)
	}
}

func TestRunQueries(t *testing.T) {
	ctx := context.Background()
	db := New()

	for i, km := range []string{"5", "3", "8"} {
		day := domain.Date(2026, time.March, 10+i)
		if _, err := db.InsertRun(ctx, domain.Run{Date: day, Distance: decimal.RequireFromString(km), Source: domain.SourceManual}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	total, err := db.TotalRunDistance(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total.String() != "16" {
		t.Fatalf("total = %s, want 16", total)
	}

	recent, err := db.ListRecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || !recent[0].Date.Equal(domain.Date(2026, time.March, 12)) {
		t.Fatalf("recent = %+v", recent)
	}

	inRange, err := db.ListRunsInRange(ctx, domain.Date(2026, time.March, 10), domain.Date(2026, time.March, 11))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(inRange) != 2 || !inRange[0].Date.Before(inRange[1].Date) {
		t.Fatalf("range = %+v", inRange)
	}
}

func TestPlanReplace(t *testing.T) {
	ctx := context.Background()
	db := New()

	day := domain.Date(2026, time.March, 10)
	if err := db.UpsertPlanEntry(ctx, day, decimal.RequireFromString("5")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entries := []domain.TrainingPlanEntry{
		{Date: domain.Date(2026, time.April, 1), Target: decimal.RequireFromString("10")},
		{Date: domain.Date(2026, time.April, 2), Target: decimal.RequireFromString("12")},
	}
	if err := db.ReplacePlan(ctx, entries); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if old, _ := db.PlanEntryOnDate(ctx, day); old != nil {
		t.Fatalf("stale entry survived replace: %+v", old)
	}
	all, err := db.ListAllPlanEntries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID == 0 {
		t.Fatalf("entries after replace = %+v", all)
	}
}

func TestStravaTokenUpsert(t *testing.T) {
	ctx := context.Background()
	db := New()

	tok := domain.StravaToken{AthleteID: 7, AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.UpsertStravaToken(ctx, tok); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tok.AccessToken = "at2"
	if err := db.UpsertStravaToken(ctx, tok); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetStravaToken(ctx)
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.AccessToken != "at2" {
		t.Fatalf("access token = %q, want at2", got.AccessToken)
	}

	if err := db.DeleteStravaTokens(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := db.GetStravaToken(ctx); got != nil {
		t.Fatalf("token survived delete: %+v", got)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	repo := New().NewSessionRepo()

	if err := repo.Create(ctx, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s, _ := repo.GetByToken(ctx, "tok"); s == nil {
		t.Fatal("session not found")
	}
	if err := repo.Create(ctx, "old", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if err := repo.DeleteExpired(ctx); err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if s, _ := repo.GetByToken(ctx, "old"); s != nil {
		t.Fatal("expired session survived cleanup")
	}
	if s, _ := repo.GetByToken(ctx, "tok"); s == nil {
		t.Fatal("live session removed by cleanup")
	}
}
