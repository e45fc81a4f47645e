// Package main implements the catalog API server: it holds the current
// listing snapshot and serves filtered, sorted, paginated views of it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/source"
	"github.com/WessleyAI/wessley-marketplace/pkg/metrics"
	"github.com/WessleyAI/wessley-marketplace/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	Source          string // file, http, neo4j or none
	SnapshotFile    string
	UpstreamURL     string
	Neo4jURL        string
	Neo4jUser       string
	Neo4jPass       string
	Neo4jDatabase   string
	NATSURL         string
	NATSSubject     string
	ScreensFile     string
	RefreshInterval time.Duration
	CORSOrigin      string
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		Source:          strings.ToLower(envOr("CATALOG_SOURCE", "file")),
		SnapshotFile:    envOr("SNAPSHOT_FILE", "data/listings.json"),
		UpstreamURL:     envOr("UPSTREAM_URL", "http://localhost:3000/api/vehicles"),
		Neo4jURL:        envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:       envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:       envOr("NEO4J_PASS", "password"),
		Neo4jDatabase:   envOr("NEO4J_DATABASE", ""),
		NATSURL:         envOr("NATS_URL", ""),
		NATSSubject:     envOr("NATS_SUBJECT", source.SnapshotSubject),
		ScreensFile:     envOr("SCREENS_FILE", ""),
		RefreshInterval: durationOr("REFRESH_INTERVAL", 0),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles := catalog.BuiltinProfiles()
	if cfg.ScreensFile != "" {
		var err error
		if profiles, err = catalog.LoadProfilesFile(cfg.ScreensFile, profiles); err != nil {
			return err
		}
	}

	reg := metrics.New()
	srv := newServer(profiles, reg, logger)

	// --- Listing source ---
	loader, closeLoader, err := openLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()
	if loader != nil {
		fetcher := source.NewFetcher(loader, source.WithFetchLogger(logger), source.WithFetchMetrics(reg))
		srv.refresh(ctx, fetcher)
		if cfg.RefreshInterval > 0 {
			go srv.refreshEvery(ctx, fetcher, cfg.RefreshInterval)
		}
	}

	// --- Live snapshots ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("catalog-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		feed, err := source.SubscribeSnapshots(nc, cfg.NATSSubject, func(_ source.Snapshot, s *catalog.Store) {
			srv.setStore(s)
		}, source.WithFeedLogger(logger))
		if err != nil {
			return err
		}
		defer feed.Close()
	}

	// --- Build HTTP server ---
	handler := mid.Chain(srv.routes(),
		mid.RequestID(),
		mid.Recover(logger),
		mid.OTel("catalog-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog api starting", "port", cfg.Port, "source", cfg.Source, "screens", len(profiles))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// openLoader builds the configured listing source. A nil loader means the
// catalog is fed only by NATS snapshots.
func openLoader(ctx context.Context, cfg Config, logger *slog.Logger) (source.Loader, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case "file":
		return source.FileSource{Path: cfg.SnapshotFile}, noop, nil
	case "http":
		s, err := source.NewHTTPSource(cfg.UpstreamURL, source.WithHTTPLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "neo4j":
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return nil, noop, fmt.Errorf("neo4j driver: %w", err)
		}
		closeDriver := func() { driver.Close(context.Background()) }
		if err := driver.VerifyConnectivity(ctx); err != nil {
			closeDriver()
			return nil, noop, fmt.Errorf("neo4j connect: %w", err)
		}
		s, err := source.NewNeo4jSource(driver, cfg.Neo4jDatabase)
		if err != nil {
			closeDriver()
			return nil, noop, err
		}
		return s, closeDriver, nil
	case "none":
		return nil, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown CATALOG_SOURCE %q (want file, http, neo4j or none)", cfg.Source)
}
