package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runlog/internal/domain"
)

// ErrNotConnected reports a sync attempt with no stored Strava credential.
// This is an expected state, not a failure.
var ErrNotConnected = errors.New("strava not connected")

// DefaultSyncWindow is how far back a sync looks for activities.
const DefaultSyncWindow = 30 * 24 * time.Hour

// DefaultSyncCooldown is the minimum interval between automatic syncs.
const DefaultSyncCooldown = 15 * time.Minute

// StravaService owns the credential lifecycle and the fetch-and-reconcile
// pipeline that imports remote activities as runs.
type StravaService struct {
	tokens domain.StravaTokenRepository
	runs   domain.RunRepository
	gw     domain.StravaGateway
	now    func() time.Time

	// mu serializes automatic syncs within the process so a burst of page
	// loads triggers at most one remote fetch per cooldown window.
	mu       sync.Mutex
	cooldown time.Duration
}

// NewStravaService creates a StravaService. A non-positive cooldown falls
// back to DefaultSyncCooldown.
func NewStravaService(tokens domain.StravaTokenRepository, runs domain.RunRepository, gw domain.StravaGateway, cooldown time.Duration) *StravaService {
	if cooldown <= 0 {
		cooldown = DefaultSyncCooldown
	}
	return &StravaService{
		tokens:   tokens,
		runs:     runs,
		gw:       gw,
		now:      time.Now,
		cooldown: cooldown,
	}
}

// Connected reports whether a Strava credential is stored.
func (s *StravaService) Connected(ctx context.Context) (bool, error) {
	tok, err := s.tokens.GetStravaToken(ctx)
	if err != nil {
		return false, err
	}
	return tok != nil, nil
}

// AuthorizationURL returns the Strava consent URL for the given state.
func (s *StravaService) AuthorizationURL(state string) string {
	return s.gw.AuthCodeURL(state)
}

// Connect exchanges an authorization code, stores the credential (upserting
// by athlete id), and runs an initial sync over the default window.
func (s *StravaService) Connect(ctx context.Context, code string) (imported, skipped int, err error) {
	grant, err := s.gw.Exchange(ctx, code)
	if err != nil {
		return 0, 0, err
	}
	tok := domain.StravaToken{
		AthleteID:    grant.AthleteID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
	}
	if err := s.tokens.UpsertStravaToken(ctx, tok); err != nil {
		return 0, 0, err
	}
	return s.Sync(ctx, DefaultSyncWindow)
}

// Disconnect deletes the stored credential. Idempotent; runs already
// imported stay.
func (s *StravaService) Disconnect(ctx context.Context) error {
	return s.tokens.DeleteStravaTokens(ctx)
}

// Sync fetches activities from the remote over the given window and imports
// the ones not seen before. Returns ErrNotConnected when no credential is
// stored. No partial import survives a failure.
func (s *StravaService) Sync(ctx context.Context, window time.Duration) (imported, skipped int, err error) {
	tok, err := s.validToken(ctx)
	if err != nil {
		return 0, 0, err
	}
	if tok == nil {
		return 0, 0, ErrNotConnected
	}

	after := s.now().Add(-window)
	activities, err := s.gw.ListActivities(ctx, tok.AccessToken, after)
	if err != nil {
		return 0, 0, err
	}

	imported, skipped, err = s.importActivities(ctx, activities)
	if err != nil {
		return 0, 0, err
	}

	// Cooldown bookkeeping only; a failure here must not fail the sync.
	_ = s.tokens.SetLastSync(ctx, tok.AthleteID, s.now())
	return imported, skipped, nil
}

// AutoSync runs Sync over the default window unless a sync already happened
// within the cooldown. Meant to be called from login and home-view paths.
func (s *StravaService) AutoSync(ctx context.Context) (imported, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.tokens.GetStravaToken(ctx)
	if err != nil {
		return 0, 0, err
	}
	if tok == nil {
		return 0, 0, ErrNotConnected
	}
	if tok.LastSyncAt != nil && s.now().Sub(*tok.LastSyncAt) < s.cooldown {
		return 0, 0, nil
	}
	return s.Sync(ctx, DefaultSyncWindow)
}

// validToken returns the stored credential, refreshing it first when
// expired. Nil when not connected. A rejected refresh leaves the stored row
// intact so the user can re-authorize manually.
func (s *StravaService) validToken(ctx context.Context) (*domain.StravaToken, error) {
	tok, err := s.tokens.GetStravaToken(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if !tok.Expired(s.now()) {
		return tok, nil
	}

	grant, err := s.gw.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.UpdateStravaTokens(ctx, tok.AthleteID, grant.AccessToken, grant.RefreshToken, grant.ExpiresAt); err != nil {
		return nil, err
	}
	tok.AccessToken = grant.AccessToken
	tok.RefreshToken = grant.RefreshToken
	tok.ExpiresAt = grant.ExpiresAt
	return tok, nil
}

// importActivities converts raw activities and inserts the new ones in a
// single transaction. Re-importing an overlapping set is safe: activities
// whose id is already present count as skipped.
func (s *StravaService) importActivities(ctx context.Context, activities []domain.RawActivity) (imported, skipped int, err error) {
	runs := make([]domain.Run, 0, len(activities))
	for _, a := range activities {
		day, err := activityDate(a.StartDateLocal)
		if err != nil {
			return 0, 0, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		km := domain.KilometersFromMeters(a.DistanceMeters)
		duration := a.MovingTime
		activityID := a.ID
		runs = append(runs, domain.Run{
			Date:             day,
			Distance:         km,
			Duration:         &duration,
			Pace:             domain.PaceMinPerKm(a.MovingTime, km),
			StravaActivityID: &activityID,
			Source:           domain.SourceStrava,
			CreatedAt:        s.now(),
		})
	}

	inserted, err := s.runs.ImportSyncedRuns(ctx, runs)
	if err != nil {
		return 0, 0, err
	}
	return inserted, len(runs) - inserted, nil
}

// activityDate extracts the calendar date from a start_date_local
// timestamp, discarding time of day and offset.
func activityDate(stamp string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start date %q: %w", stamp, err)
	}
	return domain.DateOf(t), nil
}
