package adapthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"runlog/internal/adapter/memory"
	"runlog/internal/app"
	"runlog/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

type stubGateway struct {
	activities []domain.RawActivity
}

func (g *stubGateway) AuthCodeURL(state string) string {
	return "https://example.com/authorize?state=" + state
}

func (g *stubGateway) Exchange(ctx context.Context, code string) (*domain.TokenGrant, error) {
	return &domain.TokenGrant{AthleteID: 7, AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (g *stubGateway) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	return &domain.TokenGrant{AccessToken: "at", RefreshToken: refreshToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (g *stubGateway) ListActivities(ctx context.Context, accessToken string, after time.Time) ([]domain.RawActivity, error) {
	return g.activities, nil
}

func newTestServer(t *testing.T) (*memory.DB, http.Handler) {
	t.Helper()
	db := memory.New()
	s := New(
		app.NewRunsService(db),
		app.NewPlanService(db),
		app.NewStravaService(db, db, &stubGateway{}, 0),
		app.NewSummaryService(db, db),
		nil,
		OIDCConfig{},
		t.TempDir(),
	)
	s.disableAuth = true
	return db, s.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLogAndListRuns(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"date": "2026-03-12", "distance": 5.5})
	if w.Code != http.StatusCreated {
		t.Fatalf("log run status = %d, body %s", w.Code, w.Body)
	}
	run := decodeBody(t, w)["run"].(map[string]any)
	if run["date"] != "2026-03-12" || run["distance"] != 5.5 {
		t.Fatalf("run = %v", run)
	}
	if run["source"] != "manual" {
		t.Fatalf("source = %v, want manual", run["source"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	items := decodeBody(t, w)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %v", items)
	}
}

func TestLogRun_BadInput(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"date": "2026-03-12", "distance": -1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"date": "nope", "distance": 5})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEditAndDeleteRun(t *testing.T) {
	db, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"date": "2026-03-12", "distance": 5.0})
	if w.Code != http.StatusCreated {
		t.Fatalf("log run status = %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPut, "/api/runs/1", map[string]any{"distance": 7.0})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", w.Code, w.Body)
	}
	run, _ := db.GetRunByID(context.Background(), 1)
	if run == nil || run.Distance.String() != "7" {
		t.Fatalf("run after edit = %+v", run)
	}

	w = doJSON(t, h, http.MethodDelete, "/api/runs/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if n, _ := db.CountRuns(context.Background()); n != 0 {
		t.Fatalf("run count = %d, want 0", n)
	}

	w = doJSON(t, h, http.MethodPut, "/api/runs/abc", map[string]any{"distance": 7.0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
}

func TestPlanImportEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	csv := "Date,Target_km\n2026-03-01,5\n2026-03-02,10\n"
	req := httptest.NewRequest(http.MethodPost, "/api/plan/import", strings.NewReader(csv))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body)
	}
	if got := decodeBody(t, w)["imported"]; got != float64(2) {
		t.Fatalf("imported = %v, want 2", got)
	}

	doc := "schedule:\n  \"2026-03-05\": 12\n"
	req = httptest.NewRequest(http.MethodPost, "/api/plan/import?format=yaml", strings.NewReader(doc))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("yaml import status = %d, body %s", w.Code, w.Body)
	}
	if got := decodeBody(t, w)["imported"]; got != float64(1) {
		t.Fatalf("imported = %v, want 1", got)
	}
}

func TestSetTargetAndPlanOverview(t *testing.T) {
	_, h := newTestServer(t)

	today := domain.DateOf(time.Now()).Format(domain.DateLayout)
	w := doJSON(t, h, http.MethodPut, "/api/plan", map[string]any{"date": today, "target": 8.0})
	if w.Code != http.StatusOK {
		t.Fatalf("set target status = %d, body %s", w.Code, w.Body)
	}

	w = doJSON(t, h, http.MethodGet, "/api/plan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("plan status = %d", w.Code)
	}
	schedule := decodeBody(t, w)["schedule"].([]any)
	if len(schedule) != 1 {
		t.Fatalf("schedule = %v", schedule)
	}
	day := schedule[0].(map[string]any)
	if day["is_today"] != true || day["target"] != 8.0 {
		t.Fatalf("schedule day = %v", day)
	}
}

func TestStravaEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/api/strava/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if decodeBody(t, w)["connected"] != false {
		t.Fatal("reported connected without a credential")
	}

	// Sync without a connection is a conflict, not a server error.
	w = doJSON(t, h, http.MethodPost, "/api/strava/sync", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("sync status = %d, want 409", w.Code)
	}

	// The connect redirect carries the state cookie.
	w = doJSON(t, h, http.MethodGet, "/api/strava/connect", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("connect status = %d, want 302", w.Code)
	}
	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == "strava_state" {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("no state cookie set")
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "state="+state) {
		t.Fatalf("redirect %q missing state", loc)
	}
}

func TestStravaCallback(t *testing.T) {
	db, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/strava/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "strava_state", Value: "xyz"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d, body %s", w.Code, w.Body)
	}

	tok, _ := db.GetStravaToken(context.Background())
	if tok == nil || tok.AthleteID != 7 {
		t.Fatalf("credential after callback = %+v", tok)
	}

	// Mismatched state is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/strava/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "strava_state", Value: "xyz"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("forged state status = %d, want 400", w.Code)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	today := domain.DateOf(time.Now()).Format(domain.DateLayout)
	if w := doJSON(t, h, http.MethodPost, "/api/runs", map[string]any{"date": today, "distance": 5.0}); w.Code != http.StatusCreated {
		t.Fatalf("seed run status = %d", w.Code)
	}

	w := doJSON(t, h, http.MethodGet, "/api/summary/week", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("week status = %d", w.Code)
	}
	week := decodeBody(t, w)
	if week["actual"] != 5.0 || week["days_logged"] != float64(1) {
		t.Fatalf("week = %v", week)
	}
	if _, ok := week["progress"]; ok {
		t.Fatalf("progress present without a target: %v", week)
	}

	w = doJSON(t, h, http.MethodGet, "/api/summary/streak", nil)
	if w.Code != http.StatusOK || decodeBody(t, w)["streak"] != float64(1) {
		t.Fatalf("streak response = %d %s", w.Code, w.Body)
	}

	w = doJSON(t, h, http.MethodGet, "/api/summary/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	if stats := decodeBody(t, w); stats["total_runs"] != float64(1) {
		t.Fatalf("stats = %v", stats)
	}

	w = doJSON(t, h, http.MethodGet, "/api/chart-data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chart status = %d", w.Code)
	}
	if items := decodeBody(t, w)["items"].([]any); len(items) != 1 {
		t.Fatalf("chart items = %v", items)
	}
}

// newSSOTestServer wires a server with SSO enabled, the token endpoint
// stubbed out, and the id_token verifier replaced with one that returns the
// given identity.
func newSSOTestServer(t *testing.T, cfg OIDCConfig, identity ssoIdentity) http.Handler {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"header.payload.sig"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	db := memory.New()
	cfg.Enabled = true
	cfg.OAuth2Config = &oauth2.Config{
		ClientID: "runlog",
		Endpoint: oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"},
	}
	s := New(
		app.NewRunsService(db),
		app.NewPlanService(db),
		nil,
		app.NewSummaryService(db, db),
		app.NewAuthService(db.NewSessionRepo(), ""),
		cfg,
		t.TempDir(),
	)
	s.verifySSOToken = func(ctx context.Context, rawIDToken string) (ssoIdentity, error) {
		return identity, nil
	}
	return s.Handler()
}

func ssoCallback(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/sso/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSSOCallback_RejectsUnknownIdentity(t *testing.T) {
	h := newSSOTestServer(t,
		OIDCConfig{AllowedSubject: "owner-sub"},
		ssoIdentity{Subject: "someone-else", Email: "someone@example.com"},
	)

	w := ssoCallback(t, h)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			t.Fatal("session cookie issued to rejected identity")
		}
	}
}

func TestSSOCallback_AllowsConfiguredOwner(t *testing.T) {
	h := newSSOTestServer(t,
		OIDCConfig{AllowedEmail: "owner@example.com"},
		ssoIdentity{Subject: "abc123", Email: "owner@example.com"},
	)

	w := ssoCallback(t, h)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302, body %s", w.Code, w.Body)
	}
	var session string
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c.Value
		}
	}
	if session == "" {
		t.Fatal("no session cookie issued to owner")
	}
}

func TestIdentityAllowed_EmptyAllowListRejectsAll(t *testing.T) {
	cfg := OIDCConfig{}
	if cfg.identityAllowed(ssoIdentity{Subject: "any", Email: "any@example.com"}) {
		t.Fatal("empty allow-list admitted an identity")
	}
}

func TestAuthFlow(t *testing.T) {
	db := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s := New(
		app.NewRunsService(db),
		app.NewPlanService(db),
		nil,
		app.NewSummaryService(db, db),
		app.NewAuthService(db.NewSessionRepo(), string(hash)),
		OIDCConfig{},
		t.TempDir(),
	)
	h := s.Handler()

	// Protected routes reject anonymous requests.
	w := doJSON(t, h, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]any{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]any{"password": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body)
	}
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("no session cookie issued")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed status = %d", rec.Code)
	}

	// Logout invalidates the session.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale session status = %d, want 401", rec.Code)
	}
}
