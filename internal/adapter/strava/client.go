// Package strava implements the Strava v3 API gateway: the OAuth
// authorization-code flow and the paginated activity listing.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"runlog/internal/domain"

	"golang.org/x/oauth2"
)

const (
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"
	apiURL   = "https://www.strava.com/api/v3"

	activityTypeRun = "Run"
	perPage         = 50
	requestTimeout  = 15 * time.Second
)

// Client talks to the Strava API. All requests run against a bounded
// timeout; a slow remote fails the call rather than hanging the request.
type Client struct {
	conf    *oauth2.Config
	http    *http.Client
	baseURL string
}

// New creates a Client for the given application credentials.
func New(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: apiURL,
	}
}

var _ domain.StravaGateway = (*Client)(nil)

// AuthCodeURL returns the consent-page URL for the given state.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token grant. Strava includes
// the athlete object in the token response; its id keys the stored
// credential.
func (c *Client) Exchange(ctx context.Context, code string) (*domain.TokenGrant, error) {
	tok, err := c.conf.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStravaAuth, err)
	}

	grant := &domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if athlete, ok := tok.Extra("athlete").(map[string]any); ok {
		if id, ok := athlete["id"].(float64); ok {
			grant.AthleteID = int64(id)
		}
	}
	if grant.AthleteID == 0 {
		return nil, fmt.Errorf("%w: token response missing athlete id", domain.ErrStravaAuth)
	}
	return grant, nil
}

// Refresh trades a refresh token for a new grant. Strava may rotate the
// refresh token; when it does not, the old one is carried forward.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	src := c.conf.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStravaAuth, err)
	}

	grant := &domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return grant, nil
}

type apiActivity struct {
	ID             int64   `json:"id"`
	Type           string  `json:"type"`
	Distance       float64 `json:"distance"`
	MovingTime     int     `json:"moving_time"`
	StartDateLocal string  `json:"start_date_local"`
}

// ListActivities pages through the athlete's activities newer than after,
// in pages of 50 until a short page signals the end, keeping only runs.
// Ordering is whatever the API returned. Any failure aborts the whole
// listing; pages already fetched are discarded.
func (c *Client) ListActivities(ctx context.Context, accessToken string, after time.Time) ([]domain.RawActivity, error) {
	var out []domain.RawActivity
	for page := 1; ; page++ {
		batch, err := c.activityPage(ctx, accessToken, after, page)
		if err != nil {
			return nil, err
		}
		for _, a := range batch {
			if a.Type != activityTypeRun {
				continue
			}
			out = append(out, domain.RawActivity{
				ID:             a.ID,
				Type:           a.Type,
				DistanceMeters: a.Distance,
				MovingTime:     a.MovingTime,
				StartDateLocal: a.StartDateLocal,
			})
		}
		if len(batch) < perPage {
			return out, nil
		}
	}
}

func (c *Client) activityPage(ctx context.Context, accessToken string, after time.Time, page int) ([]apiActivity, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after.Unix(), 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava: list activities: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: activity listing returned %d", domain.ErrStravaAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("strava: list activities: unexpected status %d", resp.StatusCode)
	}

	var batch []apiActivity
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("strava: decode activities: %w", err)
	}
	return batch, nil
}

// oauthContext routes the oauth2 package's requests through the bounded
// client.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}
