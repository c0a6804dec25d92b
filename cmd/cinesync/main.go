// Package main wires together the catalog synchronization service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/api"
	"github.com/ldesmet/cinesync/internal/catalog/postgres"
	"github.com/ldesmet/cinesync/internal/clock/system"
	"github.com/ldesmet/cinesync/internal/config"
	collyfetcher "github.com/ldesmet/cinesync/internal/fetcher/colly"
	"github.com/ldesmet/cinesync/internal/listing"
	"github.com/ldesmet/cinesync/internal/logging"
	"github.com/ldesmet/cinesync/internal/sync"
	"github.com/ldesmet/cinesync/internal/tmdb"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMins) * time.Minute,
	}, logger.Named("store"))
	if err != nil {
		logger.Fatal("connect catalog database failed", zap.Error(err))
	}
	defer store.Close()

	fetch := collyfetcher.New(collyfetcher.Config{
		Timeout: cfg.Crawl.FetchTimeout(),
	})
	lister := listing.NewClient(fetch, listing.Config{
		BaseURL:  cfg.Listing.BaseURL,
		Region:   cfg.Listing.Region,
		RegionID: cfg.Listing.RegionID,
		Language: cfg.Listing.Language,
		PageSize: cfg.Listing.PageSize,
	}, logger.Named("listing"))
	metadata := tmdb.New(tmdb.Config{
		BaseURL:      cfg.TMDB.BaseURL,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		AccessToken:  cfg.TMDB.AccessToken,
		Language:     cfg.TMDB.Language,
		Timeout:      time.Duration(cfg.TMDB.TimeoutSeconds) * time.Second,
	})

	pipeline := sync.New(
		lister,
		metadata,
		store,
		system.New(),
		sync.NewPoliteSleeper(cfg.Crawl.PoliteDelay(), cfg.Crawl.PoliteJitter()),
		sync.Config{
			GapDays:     cfg.Crawl.GapDays,
			MaxAttempts: cfg.Crawl.MaxAttempts,
		},
		logger.Named("sync"),
	)

	apiServer := api.NewServer(pipeline, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
