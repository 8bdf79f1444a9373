package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/analysis"
	"github.com/lysyi3m/hongbao-comb/app/api"
	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/cfg"
	"github.com/lysyi3m/hongbao-comb/app/events"
	"github.com/lysyi3m/hongbao-comb/app/feed"
	"github.com/lysyi3m/hongbao-comb/app/metrics"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg)

	slog.Info("Starting Hongbao Comb", "version", appCfg.Version)

	sourceCatalog, err := catalog.Load(appCfg.CatalogFile)
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog loaded",
		"version", sourceCatalog.Version,
		"sources", len(sourceCatalog.Sources()),
		"model_platforms", len(sourceCatalog.Platforms(catalog.KindModel)),
		"info_platforms", len(sourceCatalog.Platforms(catalog.KindInfo)))

	appMetrics := metrics.New()
	httpClient := &http.Client{}

	parser := feed.NewParser(feed.NewFilterer(sourceCatalog.Keywords))
	fetcher := events.NewFetcher(httpClient, parser, appCfg.UserAgent, appCfg.FetchTimeout, appMetrics)
	aggregator := events.NewAggregator(sourceCatalog, fetcher, events.Options{
		WindowDays: appCfg.WindowDays,
		MaxEvents:  appCfg.MaxEvents,
	}, appMetrics)
	cache := events.NewCache(aggregator.Aggregate, appCfg.CacheTTL)

	primary := analysis.NewProvider("primary", appCfg.Primary)
	secondary := analysis.NewProvider("secondary", appCfg.Secondary)
	analyzer := analysis.NewClient(primary, secondary, analysis.Options{
		Timeout:    appCfg.AITimeout,
		HTTPClient: httpClient,
		Metrics:    appMetrics,
	})
	if analyzer.Enabled() {
		slog.Info("Analysis enabled",
			"model", primary.Model,
			"family", primary.Family.Name,
			"cross_vendor_fallback", primary.Family.CrossVendor && secondary.Configured())
	} else {
		slog.Info("Analysis disabled (AI_API_KEY not set)")
	}

	addr := net.JoinHostPort(appCfg.Host, appCfg.Port)
	handler := api.NewHandler(cache, aggregator.FallbackResult, analyzer,
		feed.NewGenerator("Hongbao Comb", "http://"+addr+"/"), aggregator.Sources(), appCfg.Version)

	httpServer := &http.Server{
		Addr: addr,
		Handler: api.NewServer(handler, api.ServerOptions{
			PublicDir: appCfg.PublicDir,
			APIKey:    appCfg.APIKey,
			Metrics:   appMetrics.Handler(),
		}),
		// no write timeout: analysis may walk several models
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Hongbao Comb shutdown complete")
}

func setupLogger(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
