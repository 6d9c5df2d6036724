package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"vinoclub/internal/app/address"
	"vinoclub/internal/app/billing"
	"vinoclub/internal/app/clubs"
	"vinoclub/internal/app/events"
	"vinoclub/internal/app/ledger"
	"vinoclub/internal/app/memberships"
	"vinoclub/internal/app/onboarding"
	"vinoclub/internal/app/profile"
	"vinoclub/internal/app/settings"
	"vinoclub/internal/app/wines"
	"vinoclub/internal/http/middleware"
	"vinoclub/internal/httpapi"
	"vinoclub/internal/identity"
	"vinoclub/internal/metrics"
	"vinoclub/internal/payments"
	"vinoclub/internal/search"
	"vinoclub/internal/session"
	"vinoclub/internal/store"
	"vinoclub/internal/usps"
	"vinoclub/shared/go/config"
	sharedmw "vinoclub/shared/go/middleware"
)

type application struct {
	handler http.Handler
	redis   *redis.Client
}

func (a *application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func newApplication(ctx context.Context, cfg *config.Config, db *sql.DB, dataStore *store.Store) (*application, error) {
	app := &application{}
	m := metrics.New()

	var allowlist session.Allowlist
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		allowlist = session.NewRedisAllowlist(app.redis)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("session revocation enabled")
	} else {
		log.Warn().Msg("REDIS_ADDR not set; sessions stay valid until they expire")
	}
	sessions := session.NewManager(cfg.Security.JWTSecret, cfg.Security.SessionTTL, allowlist)

	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY not set; payment routes will fail")
	}
	processor := payments.NewStripe(payments.Config{SecretKey: cfg.Stripe.SecretKey, Recorder: m})

	if !cfg.USPS.Enabled() {
		log.Warn().Msg("USPS credentials not set; address validation will fail")
	}
	postal := usps.New(usps.Config{
		ConsumerKey:    cfg.USPS.ConsumerKey,
		ConsumerSecret: cfg.USPS.ConsumerSecret,
		BaseURL:        cfg.USPS.BaseURL,
		Recorder:       m,
	})

	api := httpapi.New(httpapi.Services{
		Auth: onboarding.New(dataStore, identity.NewPostgresProvider(db), sessions,
			onboarding.WithProfilePolling(cfg.Signup.ProfilePollAttempts, cfg.Signup.ProfilePollInterval),
			onboarding.WithRecorder(m),
		),
		Sessions:      sessions,
		Clubs:         clubs.New(dataStore),
		Memberships:   memberships.New(dataStore, m),
		Events:        events.New(dataStore, events.WithRecorder(m)),
		Ledger:        ledger.New(dataStore),
		Settings:      settings.New(dataStore),
		Profile:       profile.New(dataStore),
		Billing:       billing.New(dataStore, processor),
		Wines:         wines.New(dataStore),
		Address:       address.New(postal),
		Search:        search.NewHandler(search.NewPGStore(db)),
		Build:         httpapi.BuildInfo{Version: version, Commit: commit},
		SecureCookies: cfg.IsProduction(),
	})

	mux := http.NewServeMux()
	mux.Handle("/", m.Middleware(api.Routes()))
	mux.Handle("GET /metrics", m.Handler())

	app.handler = sharedmw.Recovery()(
		sharedmw.RequestLogging()(
			middleware.CORS(cfg.CORS.AllowedOrigins)(mux),
		),
	)
	return app, nil
}
