package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	adapthttp "runlog/internal/adapter/http"
	"runlog/internal/adapter/memory"
	"runlog/internal/adapter/postgres"
	"runlog/internal/adapter/strava"
	"runlog/internal/app"
	"runlog/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

func main() {
	addr := env("ADDR", ":8080")
	webDir := env("WEB_DIR", "web")

	var (
		runRepo     domain.RunRepository
		planRepo    domain.PlanRepository
		tokenRepo   domain.StravaTokenRepository
		sessionRepo domain.SessionRepository
	)
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		db, err := postgres.Open(connStr)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer func() { _ = db.Close() }()
		runRepo, planRepo, tokenRepo = db, db, db
		sessionRepo = postgres.NewSessionRepo(db)
	} else {
		log.Print("DATABASE_URL not set, using in-memory storage")
		db := memory.New()
		runRepo, planRepo, tokenRepo = db, db, db
		sessionRepo = db.NewSessionRepo()
	}

	gw := strava.New(
		os.Getenv("STRAVA_CLIENT_ID"),
		os.Getenv("STRAVA_CLIENT_SECRET"),
		env("STRAVA_REDIRECT_URL", "http://localhost:8080/api/strava/callback"),
	)

	cooldown := app.DefaultSyncCooldown
	if v := os.Getenv("SYNC_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("SYNC_COOLDOWN: %v", err)
		}
		cooldown = d
	}

	runsSvc := app.NewRunsService(runRepo)
	planSvc := app.NewPlanService(planRepo)
	stravaSvc := app.NewStravaService(tokenRepo, runRepo, gw, cooldown)
	summarySvc := app.NewSummaryService(runRepo, planRepo)

	oidcCfg := loadOIDC()

	var authSvc *app.AuthService
	if pw := os.Getenv("RUNLOG_PASSWORD"); pw != "" || oidcCfg.Enabled {
		hash := ""
		if pw != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("hash password: %v", err)
			}
			hash = string(h)
		}
		authSvc = app.NewAuthService(sessionRepo, hash)
	} else {
		log.Print("RUNLOG_PASSWORD not set, auth disabled")
	}

	h := adapthttp.New(runsSvc, planSvc, stravaSvc, summarySvc, authSvc, oidcCfg, webDir).Handler()
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func loadOIDC() adapthttp.OIDCConfig {
	issuer := os.Getenv("OIDC_ISSUER")
	if issuer == "" {
		return adapthttp.OIDCConfig{}
	}

	allowedSubject := os.Getenv("OIDC_ALLOWED_SUBJECT")
	allowedEmail := os.Getenv("OIDC_ALLOWED_EMAIL")
	if allowedSubject == "" && allowedEmail == "" {
		log.Fatal("OIDC_ALLOWED_SUBJECT or OIDC_ALLOWED_EMAIL must be set when OIDC_ISSUER is set")
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		log.Fatalf("oidc provider: %v", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:        true,
		Provider:       provider,
		AllowedSubject: allowedSubject,
		AllowedEmail:   allowedEmail,
		OAuth2Config: &oauth2.Config{
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  env("OIDC_REDIRECT_URL", "http://localhost:8080/api/auth/sso/callback"),
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email"},
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
