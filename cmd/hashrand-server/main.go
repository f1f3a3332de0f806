// Command hashrand-server runs the authentication and shared-secret
// backend's HTTP surface: spec §6's endpoints, /health*, /metrics, and a
// background sweep for expired magic links and shared secrets.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/httpapi"
	"github.com/arkaitz-dev/hashrand/internal/logger"
	"github.com/arkaitz-dev/hashrand/internal/metrics"
	"github.com/arkaitz-dev/hashrand/mailer"
	"github.com/arkaitz-dev/hashrand/pkg/health"
	"github.com/arkaitz-dev/hashrand/pkg/version"
	"github.com/arkaitz-dev/hashrand/storage/memory"
	"github.com/arkaitz-dev/hashrand/storage/postgres"
)

const cleanupInterval = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	log := logger.NewDefaultLogger()
	log.Info("starting hashrand-server", logger.String("version", version.Version))

	cfg := config.LoadFromEnv()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open storage backend", logger.Error(err))
	}
	defer closeStore()

	m, err := mailer.FromConfig(cfg.Operational, log)
	if err != nil {
		log.Fatal("failed to configure mailer", logger.Error(err))
	}

	devMode := cfg.Operational.Environment != "production"
	server := httpapi.NewServer(*cfg, store, m, log, devMode)

	checker := health.NewHealthChecker(5 * time.Second)
	checker.RegisterCheck("storage", health.StorageHealthCheck(store.Ping))
	checker.RegisterCheck("mailer", health.MailerHealthCheck(m.Ready))

	healthSrv := health.NewServer(checker, log, healthPort())
	if err := healthSrv.Start(); err != nil {
		log.Fatal("failed to start health server", logger.Error(err))
	}

	apiMux := http.NewServeMux()
	apiMux.Handle("/", server.Routes())
	apiMux.Handle("/metrics", metrics.Handler())

	apiSrv := &http.Server{
		Addr:              cfg.Operational.ListenAddr,
		Handler:           apiMux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", logger.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runCleanupLoop(gctx, store, log)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = healthSrv.Stop(shutdownCtx)
		return apiSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func healthPort() int {
	return 8081
}

// backendStore is every storage capability main needs: the httpapi
// surface, a liveness probe, and the background cleanup sweep's deletes.
// storage/memory.Store and storage/postgres.Store both satisfy it.
type backendStore interface {
	httpapi.Store
	Ping(ctx context.Context) error
	DeleteExpiredRows(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredTracking(ctx context.Context, cutoff time.Time) (int64, error)
}

// runCleanupLoop sweeps expired magic links and shared-secret rows on a
// fixed interval until ctx is cancelled (spec §4.3/§4.7: "or by
// background sweep when expired").
func runCleanupLoop(ctx context.Context, store backendStore, log logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if n, err := store.DeleteExpired(ctx, now); err != nil {
				log.Warn("magic-link cleanup sweep failed", logger.Error(err))
			} else if n > 0 {
				log.Info("swept expired magic links", logger.Int("count", int(n)))
			}
			if n, err := store.DeleteExpiredRows(ctx, now); err != nil {
				log.Warn("shared-secret row cleanup sweep failed", logger.Error(err))
			} else if n > 0 {
				log.Info("swept expired shared-secret rows", logger.Int("count", int(n)))
			}
			if n, err := store.DeleteExpiredTracking(ctx, now); err != nil {
				log.Warn("shared-secret tracking cleanup sweep failed", logger.Error(err))
			} else if n > 0 {
				log.Info("swept expired shared-secret tracking rows", logger.Int("count", int(n)))
			}
		}
	}
}

// storageCloser is implemented by postgres.Store; the in-memory store
// needs no teardown.
type storageCloser func() error

func openStore(cfg *config.Config) (backendStore, storageCloser, error) {
	host := os.Getenv("pg_host")
	if host == "" {
		return memory.NewStore(), func() error { return nil }, nil
	}

	pgCfg := &postgres.Config{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("pg_user"),
		Password: os.Getenv("pg_password"),
		Database: os.Getenv("pg_database"),
		SSLMode:  "require",
	}
	store, err := postgres.NewStore(context.Background(), pgCfg)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
