package domain

import (
	"context"
	"errors"
	"time"
)

// StravaToken is the stored OAuth credential for the connected Strava
// account. The deployment is single-user, so at most one row exists.
type StravaToken struct {
	ID           int64
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is expired at the given instant.
func (t StravaToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// StravaTokenRepository is the port for credential persistence.
type StravaTokenRepository interface {
	// GetStravaToken returns the stored credential, or nil when not connected.
	GetStravaToken(ctx context.Context) (*StravaToken, error)
	// UpsertStravaToken creates the credential or, if the athlete already has one,
	// overwrites its tokens and expiry.
	UpsertStravaToken(ctx context.Context, token StravaToken) error
	UpdateStravaTokens(ctx context.Context, athleteID int64, access, refresh string, expiresAt time.Time) error
	SetLastSync(ctx context.Context, athleteID int64, at time.Time) error
	// DeleteStravaTokens removes every stored credential. A no-op when none exist.
	DeleteStravaTokens(ctx context.Context) error
}

// RawActivity is one activity as returned by the remote listing endpoint,
// in remote units. Ordering is whatever the remote returned.
type RawActivity struct {
	ID             int64
	Type           string
	DistanceMeters float64
	MovingTime     int // seconds
	StartDateLocal string
}

// TokenGrant is the outcome of an OAuth code exchange or token refresh.
// AthleteID is zero on refresh grants; the remote omits it there.
type TokenGrant struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ErrStravaAuth indicates the remote rejected an OAuth exchange, refresh
// or an authenticated request. Callers treat it as "reconnect needed".
var ErrStravaAuth = errors.New("strava: authorization rejected")

// StravaGateway is the port for the remote activity source.
type StravaGateway interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
	// ListActivities pages through the athlete's activities newer than
	// after, returning only runs. Any transport or HTTP failure aborts the
	// whole listing.
	ListActivities(ctx context.Context, accessToken string, after time.Time) ([]RawActivity, error)
}
