// Command mcp-drift runs the MCP tool server for drift comparisons.
// Uses stdio transport for integration with AI assistants.
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/snapdrift/internal/config"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/mcpserver"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// stdout carries the MCP protocol
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel)

	opts, err := cfg.DriftOptions()
	if err != nil {
		log.Fatalf("options: %v", err)
	}
	runner := drift.Runner{Root: cfg.SnapshotRoot, Options: opts, Logger: logger}

	var q querier.ScanQuerier
	if cfg.TemporalAddress != "" {
		c, err := client.Dial(client.Options{
			HostPort: cfg.TemporalAddress,
			Logger:   observability.NewTemporalSlogAdapter(logger),
		})
		if err != nil {
			log.Fatalf("unable to create Temporal client: %v", err)
		}
		defer c.Close()
		q = querier.New(c)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "snapdrift",
		Version: "v1.0.0",
	}, nil)
	mcpserver.RegisterTools(server, runner, q)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
