// Command worker-drift runs the Temporal worker for drift scan workflows.
// In stub mode drift metrics are only logged; production mode publishes them
// to CloudWatch.
package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/finops-claw-gang/snapdrift/internal/config"
	awsauth "github.com/finops-claw-gang/snapdrift/internal/connectors/aws"
	"github.com/finops-claw-gang/snapdrift/internal/connectors/aws/cloudwatch"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/ratelimit"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/activities"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/queues"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/versioning"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "snapdrift-worker", cfg.TraceSampleRatio)
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	opts, err := cfg.DriftOptions()
	if err != nil {
		log.Fatalf("options: %v", err)
	}
	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	var publisher activities.Publisher
	switch cfg.Mode {
	case config.ModeProduction:
		awsCfg, err := awsauth.NewAWSConfig(context.Background(), cfg.AWSRegion, cfg.AWSProfile, cfg.CrossAccountRole)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		publisher = cloudwatch.New(awsCfg, cfg.CloudWatchNamespace)
	default: // stub mode: PublishDriftMetrics logs only
	}

	queueNames, err := queues.ParseQueues(cfg.WorkerQueues)
	if err != nil {
		log.Fatalf("queues: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   observability.NewTemporalSlogAdapter(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	acts := &activities.Activities{
		Runner:    drift.Runner{Root: cfg.SnapshotRoot, Options: opts, Logger: logger, Metrics: metrics},
		Publisher: publisher,
		Budget:    ratelimit.NewScanBudget(cfg.ScanBudget, time.Hour),
	}

	configs := queues.DefaultConfigs()
	var workers []worker.Worker
	for _, name := range queueNames {
		w := worker.New(c, name, configs[name].Options)
		if name == versioning.QueueScan {
			w.RegisterWorkflow(workflows.DriftScanWorkflow)
			w.RegisterWorkflow(workflows.ScheduledDriftWorkflow)
		}
		w.RegisterActivity(acts)
		workers = append(workers, w)
	}

	// all but the last worker run in the background
	for _, w := range workers[:len(workers)-1] {
		if err := w.Start(); err != nil {
			log.Fatalf("worker start failed: %v", err)
		}
		defer w.Stop()
	}

	logger.Info("starting worker", "queues", queueNames, "mode", cfg.Mode, "snapshot_root", cfg.SnapshotRoot)
	if err := workers[len(workers)-1].Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}
