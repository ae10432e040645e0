// Command api runs the snapdrift HTTP API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/snapdrift/internal/api"
	"github.com/finops-claw-gang/snapdrift/internal/config"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(cfg.LogLevel)
	temporalLogger := observability.NewTemporalSlogAdapter(logger)

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "snapdrift-api", cfg.TraceSampleRatio)
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	opts, err := cfg.DriftOptions()
	if err != nil {
		logger.Error("invalid comparison options", "error", err)
		os.Exit(1)
	}
	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}
	runner := drift.Runner{Root: cfg.SnapshotRoot, Options: opts, Logger: logger, Metrics: metrics}

	// Scan routes need Temporal; synchronous compare works without it.
	var q querier.ScanQuerier
	if cfg.TemporalAddress != "" {
		c, err := client.Dial(client.Options{
			HostPort: cfg.TemporalAddress,
			Logger:   temporalLogger,
		})
		if err != nil {
			logger.Error("unable to create Temporal client", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		q = querier.New(c)
	}

	oidcCfg := api.OIDCConfig{
		IssuerURL: cfg.OIDCIssuer,
		Audience:  cfg.OIDCAudience,
		Enabled:   cfg.OIDCEnabled(),
	}
	srv, err := api.New(q, runner, cfg.CORSOrigins, oidcCfg)
	if err != nil {
		logger.Error("api init failed", "error", err)
		os.Exit(1)
	}

	var handler http.Handler = srv
	if cfg.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "snapdrift-api")
	}

	addr := ":" + cfg.APIPort
	logger.Info("starting API server",
		"addr", addr,
		"oidc_enabled", oidcCfg.Enabled,
		"snapshot_root", cfg.SnapshotRoot,
		"scans_enabled", q != nil,
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
