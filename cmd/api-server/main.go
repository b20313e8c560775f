package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/api"
	"github.com/hackgods/testing-registration/internal/captcha"
	"github.com/hackgods/testing-registration/internal/catalog"
	"github.com/hackgods/testing-registration/internal/config"
	"github.com/hackgods/testing-registration/internal/db"
	"github.com/hackgods/testing-registration/internal/hashid"
	"github.com/hackgods/testing-registration/internal/logger"
	"github.com/hackgods/testing-registration/internal/metrics"
	redisclient "github.com/hackgods/testing-registration/internal/redis"
	"github.com/hackgods/testing-registration/internal/registration"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.Bool("captcha", cfg.CaptchaEnabled()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, postgresPool(cfg))
	if err == nil {
		err = db.EnsureSchema(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		zl.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zl.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		zl.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zl.Warn("error closing redis", zap.Error(err))
		}
	}()
	zl.Info("connected to Redis")

	hasher, err := hashid.New([]byte(cfg.EmployeeHashKey))
	if err != nil {
		zl.Fatal("employee hash key", zap.Error(err))
	}

	var verifier registration.CaptchaVerifier
	if cfg.CaptchaEnabled() {
		verifier = captcha.NewRecaptcha(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.RecaptchaMinScore)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	opts := registration.Options{
		CaptchaEnabled: cfg.CaptchaEnabled(),
		PhonePrefix:    cfg.DefaultPhonePrefix,
		ImportWorkers:  cfg.ImportWorkers,
	}
	repo := registration.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)

	router := api.NewRouter(api.RouterConfig{
		Registration: registration.NewService(repo, hasher, verifier, locker, opts, zl.Named("registration"), recorder),
		Queue:        registration.NewQueueTracker(repo, verifier, opts, zl.Named("queue"), recorder),
		Importer:     registration.NewImporter(repo, hasher, locker, opts, zl.Named("import"), recorder),
		Catalog:      catalog.NewService(repo, zl.Named("catalog")),
		Keys:         api.Keys{Public: cfg.ECIESPublicKey, Private: cfg.ECIESPrivateKey},
		JWTSecret:    cfg.JWTSecret,
		Postgres:     pgPool.Ping,
		Redis:        func(ctx context.Context) error { return redisclient.Ping(ctx, rdb) },
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Log:          zl.Named("http"),
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	zl.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func postgresPool(cfg config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:        int32(cfg.PostgresMaxConns),
		MinConns:        int32(cfg.PostgresMinConns),
		MaxConnLifetime: cfg.PostgresConnLifetime,
	}
}
