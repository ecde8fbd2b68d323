package adapthttp

import (
	"context"
	"net/http"

	"runlog/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig carries the optional single-sign-on setup. When Enabled is
// false the SSO endpoints answer 404 and password login is the only way in.
// AllowedSubject/AllowedEmail pin SSO login to the site owner; a verified
// identity matching neither is rejected.
type OIDCConfig struct {
	Enabled        bool
	Provider       *oidc.Provider
	OAuth2Config   *oauth2.Config
	AllowedSubject string
	AllowedEmail   string
}

// identityAllowed reports whether a verified identity is the configured
// owner. An empty allow-list rejects everyone.
func (c OIDCConfig) identityAllowed(id ssoIdentity) bool {
	if c.AllowedSubject != "" && id.Subject == c.AllowedSubject {
		return true
	}
	if c.AllowedEmail != "" && id.Email != "" && id.Email == c.AllowedEmail {
		return true
	}
	return false
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	runs    *app.RunsService
	plan    *app.PlanService
	strava  *app.StravaService
	summary *app.SummaryService
	authSvc *app.AuthService

	oidcConfig  OIDCConfig
	webDir      string
	disableAuth bool

	verifySSOToken func(ctx context.Context, rawIDToken string) (ssoIdentity, error)
}

// New creates a Server wired to the given application services.
func New(rs *app.RunsService, ps *app.PlanService, ss *app.StravaService, sus *app.SummaryService, as *app.AuthService, oidcCfg OIDCConfig, webDir string) *Server {
	s := &Server{
		runs:       rs,
		plan:       ps,
		strava:     ss,
		summary:    sus,
		authSvc:    as,
		oidcConfig: oidcCfg,
		webDir:     webDir,
	}
	s.verifySSOToken = s.providerVerify
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	protected := http.NewServeMux()

	protected.HandleFunc("/summary/week", s.handleSummaryWeek)
	protected.HandleFunc("/summary/weeks", s.handleSummaryWeeks)
	protected.HandleFunc("/summary/stats", s.handleSummaryStats)
	protected.HandleFunc("/summary/streak", s.handleSummaryStreak)
	protected.HandleFunc("/chart-data", s.handleChartData)

	protected.HandleFunc("/runs", s.handleRuns)
	protected.HandleFunc("/runs/today", s.handleRunToday)
	protected.HandleFunc("/runs/recent", s.handleRunsRecent)
	protected.HandleFunc("/runs/", s.handleRunByID)

	protected.HandleFunc("/plan", s.handlePlan)
	protected.HandleFunc("/plan/import", s.handlePlanImport)
	protected.HandleFunc("/plan/", s.handlePlanEntryByID)

	protected.HandleFunc("/strava/status", s.handleStravaStatus)
	protected.HandleFunc("/strava/connect", s.handleStravaConnect)
	protected.HandleFunc("/strava/callback", s.handleStravaCallback)
	protected.HandleFunc("/strava/sync", s.handleStravaSync)
	protected.HandleFunc("/strava/disconnect", s.handleStravaDisconnect)

	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/config", s.handleAuthConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)
	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
