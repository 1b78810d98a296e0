package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expenseman/internal/auth"
	"expenseman/internal/config"
	"expenseman/internal/handlers"
	"expenseman/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.GoogleClientID)
		if err != nil {
			log.WithError(err).Fatal("failed to set up google sign-in")
		}
		google = verifier
	} else {
		log.Info("no google client ID configured, google sign-in disabled")
	}

	h := handlers.NewHandlers(db, cfg, log, tokens, google)
	router := setupRouter(h, cfg.RatePerMinute)

	go purgeSessions(db, log)

	log.WithFields(logrus.Fields{
		"addr":          cfg.Addr,
		"db":            cfg.DBPath,
		"account_limit": cfg.AccountLimit,
	}).Info("listening for requests")

	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

// setupRouter wraps the API routes with the shared rate limiter.
func setupRouter(h *handlers.Handlers, perMinute int) http.Handler {
	limiter := handlers.NewRateLimiter(perMinute)
	return handlers.RateLimitMiddleware(limiter)(h.Router())
}

// purgeSessions drops expired session rows every hour so revoked and
// stale tokens do not accumulate.
func purgeSessions(db *storage.DB, log *logrus.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if err := db.DeleteExpiredSessions(); err != nil {
			log.WithError(err).Warn("failed to purge expired sessions")
		}
	}
}
