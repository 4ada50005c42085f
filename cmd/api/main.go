package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/config"
	"tasklane.org/internal/httpapi"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/project"
	"tasklane.org/internal/store/pg"
	"tasklane.org/internal/store/redisstore"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration invalid")
	}
	if cfg.PGDSN == "" {
		log.Fatal("TASKLANE_PG_DSN is required")
	}
	if cfg.RedisURL == "" {
		log.Fatal("TASKLANE_REDIS_URL is required")
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.WithError(err).Fatal("open postgres")
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	blocklist, err := redisstore.NewBlocklist(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("open redis")
	}

	tokens, err := auth.NewTokens(cfg.AccessSecret, cfg.RefreshSecret, cfg.Algorithm, blocklist,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithTokenLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("build token service")
	}

	guard := auth.NewGuard(pg.NewLoginAttempts(store), auth.WithGuardLogger(log))
	authSvc, err := auth.NewService(pg.NewUsers(store), guard, tokens,
		auth.WithBcryptCost(cfg.BcryptCost),
		auth.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("build auth service")
	}

	grants := pg.NewGrants(store)
	authz, err := auth.NewAuthorizer(grants)
	if err != nil {
		log.WithError(err).Fatal("build authorizer")
	}
	projSvc, err := project.NewService(
		pg.NewOrganizations(store),
		pg.NewWorkspaces(store),
		pg.NewBoards(store),
		grants, authz,
		project.WithServiceLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("build project service")
	}

	opts := []httpapi.Option{
		httpapi.WithVersion(version),
		httpapi.WithReadyProbe(httpapi.ReadyProbe{DB: store, Cache: blocklist}),
		httpapi.WithCookieTTLs(cfg.AccessTTL, cfg.RefreshTTL),
	}
	if strings.EqualFold(os.Getenv("TASKLANE_INSECURE_COOKIES"), "true") {
		opts = append(opts, httpapi.WithInsecureCookies())
	}
	api := httpapi.New(authSvc, projSvc, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithField("addr", srv.Addr).Infof("starting tasklane-api %s", version)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("stopped")
}
