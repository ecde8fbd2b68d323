// Package memory implements in-memory repositories for development and
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	runs     []domain.Run
	plan     []domain.TrainingPlanEntry
	tokens   []domain.StravaToken
	sessions map[string]*domain.Session

	runIDCounter   int64
	planIDCounter  int64
	tokenIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.RunRepository = (*DB)(nil)
var _ domain.PlanRepository = (*DB)(nil)
var _ domain.StravaTokenRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- RunRepository ---

// InsertRun adds a run.
func (db *DB) InsertRun(ctx context.Context, run domain.Run) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertLocked(run), nil
}

func (db *DB) insertLocked(run domain.Run) int64 {
	db.runIDCounter++
	run.ID = db.runIDCounter
	db.runs = append(db.runs, run)
	return run.ID
}

// UpdateRunDistance overwrites a run's distance.
func (db *DB) UpdateRunDistance(ctx context.Context, id int64, distance decimal.Decimal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.runs {
		if db.runs[i].ID == id {
			db.runs[i].Distance = distance
			return nil
		}
	}
	return nil
}

// DeleteRun removes a run by id.
func (db *DB) DeleteRun(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.runs {
		if db.runs[i].ID == id {
			db.runs = append(db.runs[:i], db.runs[i+1:]...)
			return nil
		}
	}
	return nil
}

// GetRunByID retrieves a run by id.
func (db *DB) GetRunByID(ctx context.Context, id int64) (*domain.Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.runs {
		if db.runs[i].ID == id {
			r := db.runs[i]
			return &r, nil
		}
	}
	return nil, nil
}

// FirstRunOnDate returns the earliest-created run on a date.
func (db *DB) FirstRunOnDate(ctx context.Context, date time.Time) (*domain.Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var first *domain.Run
	for i := range db.runs {
		r := &db.runs[i]
		if r.Date.Equal(date) && (first == nil || r.ID < first.ID) {
			first = r
		}
	}
	if first == nil {
		return nil, nil
	}
	ret := *first
	return &ret, nil
}

// ListRunsInRange returns runs between start and end inclusive, oldest first.
func (db *DB) ListRunsInRange(ctx context.Context, start, end time.Time) ([]domain.Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.Run
	for _, r := range db.runs {
		if !r.Date.Before(start) && !r.Date.After(end) {
			out = append(out, r)
		}
	}
	sortRunsByDate(out)
	return out, nil
}

// ListAllRuns returns every run, oldest first.
func (db *DB) ListAllRuns(ctx context.Context) ([]domain.Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Run, len(db.runs))
	copy(out, db.runs)
	sortRunsByDate(out)
	return out, nil
}

// ListRecentRuns returns the most recent runs up to limit, newest first.
func (db *DB) ListRecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Run, len(db.runs))
	copy(out, db.runs)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TotalRunDistance returns the sum of all run distances.
func (db *DB) TotalRunDistance(ctx context.Context) (decimal.Decimal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	total := decimal.Zero
	for _, r := range db.runs {
		total = total.Add(r.Distance)
	}
	return total, nil
}

// CountRuns returns the number of runs.
func (db *DB) CountRuns(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.runs), nil
}

// ImportSyncedRuns inserts synced runs, skipping ones whose Strava activity id
// is already present. All-or-nothing like the SQL version; in memory the
// only failure mode is none, so the batch always applies.
func (db *DB) ImportSyncedRuns(ctx context.Context, runs []domain.Run) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing := make(map[int64]bool)
	for _, r := range db.runs {
		if r.StravaActivityID != nil {
			existing[*r.StravaActivityID] = true
		}
	}

	inserted := 0
	for _, run := range runs {
		if run.StravaActivityID != nil && existing[*run.StravaActivityID] {
			continue
		}
		if run.StravaActivityID != nil {
			existing[*run.StravaActivityID] = true
		}
		db.insertLocked(run)
		inserted++
	}
	return inserted, nil
}

func sortRunsByDate(runs []domain.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Date.Equal(runs[j].Date) {
			return runs[i].Date.Before(runs[j].Date)
		}
		return runs[i].ID < runs[j].ID
	})
}

// --- PlanRepository ---

// UpsertPlanEntry creates or overwrites the target for a date.
func (db *DB) UpsertPlanEntry(ctx context.Context, date time.Time, target decimal.Decimal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.plan {
		if db.plan[i].Date.Equal(date) {
			db.plan[i].Target = target
			return nil
		}
	}
	db.planIDCounter++
	db.plan = append(db.plan, domain.TrainingPlanEntry{ID: db.planIDCounter, Date: date, Target: target})
	return nil
}

// DeletePlanEntry removes a plan entry by id.
func (db *DB) DeletePlanEntry(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.plan {
		if db.plan[i].ID == id {
			db.plan = append(db.plan[:i], db.plan[i+1:]...)
			return nil
		}
	}
	return nil
}

// GetPlanEntryByID retrieves a plan entry by id.
func (db *DB) GetPlanEntryByID(ctx context.Context, id int64) (*domain.TrainingPlanEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.plan {
		if db.plan[i].ID == id {
			e := db.plan[i]
			return &e, nil
		}
	}
	return nil, nil
}

// PlanEntryOnDate retrieves the plan entry for a date.
func (db *DB) PlanEntryOnDate(ctx context.Context, date time.Time) (*domain.TrainingPlanEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.plan {
		if db.plan[i].Date.Equal(date) {
			e := db.plan[i]
			return &e, nil
		}
	}
	return nil, nil
}

// ListPlanInRange returns plan entries between start and end inclusive.
func (db *DB) ListPlanInRange(ctx context.Context, start, end time.Time) ([]domain.TrainingPlanEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.TrainingPlanEntry
	for _, e := range db.plan {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	sortPlanByDate(out)
	return out, nil
}

// ListPlanFrom returns plan entries on or after the given date.
func (db *DB) ListPlanFrom(ctx context.Context, date time.Time) ([]domain.TrainingPlanEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.TrainingPlanEntry
	for _, e := range db.plan {
		if !e.Date.Before(date) {
			out = append(out, e)
		}
	}
	sortPlanByDate(out)
	return out, nil
}

// ListAllPlanEntries returns every plan entry ordered by date.
func (db *DB) ListAllPlanEntries(ctx context.Context) ([]domain.TrainingPlanEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.TrainingPlanEntry, len(db.plan))
	copy(out, db.plan)
	sortPlanByDate(out)
	return out, nil
}

// TotalPlannedDistance returns the sum of all target distances.
func (db *DB) TotalPlannedDistance(ctx context.Context) (decimal.Decimal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	total := decimal.Zero
	for _, e := range db.plan {
		total = total.Add(e.Target)
	}
	return total, nil
}

// ReplacePlan swaps the entire plan for the given entries.
func (db *DB) ReplacePlan(ctx context.Context, entries []domain.TrainingPlanEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.plan = nil
	for _, e := range entries {
		db.planIDCounter++
		e.ID = db.planIDCounter
		db.plan = append(db.plan, e)
	}
	return nil
}

func sortPlanByDate(entries []domain.TrainingPlanEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
}

// --- StravaTokenRepository ---

// GetStravaToken returns the stored credential, or nil when not connected.
func (db *DB) GetStravaToken(ctx context.Context) (*domain.StravaToken, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.tokens) == 0 {
		return nil, nil
	}
	t := db.tokens[0]
	return &t, nil
}

// UpsertStravaToken creates the credential or overwrites tokens and expiry.
func (db *DB) UpsertStravaToken(ctx context.Context, token domain.StravaToken) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	for i := range db.tokens {
		if db.tokens[i].AthleteID == token.AthleteID {
			db.tokens[i].AccessToken = token.AccessToken
			db.tokens[i].RefreshToken = token.RefreshToken
			db.tokens[i].ExpiresAt = token.ExpiresAt
			db.tokens[i].UpdatedAt = now
			return nil
		}
	}
	db.tokenIDCounter++
	token.ID = db.tokenIDCounter
	token.CreatedAt = now
	token.UpdatedAt = now
	db.tokens = append(db.tokens, token)
	return nil
}

// UpdateStravaTokens overwrites the token pair and expiry after a refresh.
func (db *DB) UpdateStravaTokens(ctx context.Context, athleteID int64, access, refresh string, expiresAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.tokens {
		if db.tokens[i].AthleteID == athleteID {
			db.tokens[i].AccessToken = access
			db.tokens[i].RefreshToken = refresh
			db.tokens[i].ExpiresAt = expiresAt
			db.tokens[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

// SetLastSync records when a sync last completed.
func (db *DB) SetLastSync(ctx context.Context, athleteID int64, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.tokens {
		if db.tokens[i].AthleteID == athleteID {
			t := at
			db.tokens[i].LastSyncAt = &t
			return nil
		}
	}
	return nil
}

// DeleteStravaTokens removes every stored credential.
func (db *DB) DeleteStravaTokens(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tokens = nil
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		ret := *s
		return &ret, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
