package querier

import (
	"context"

	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

// ScanQuerier provides read access to drift scans and the ability to start
// new ones. Used by the HTTP API, the MCP server and the CLI.
type ScanQuerier interface {
	ListScans(ctx context.Context, opts ListOptions) ([]ScanSummary, error)
	GetScan(ctx context.Context, workflowID string) (*workflows.ScanResult, error)
	DescribeScan(ctx context.Context, workflowID string) (*ScanDescription, error)
	StartScan(ctx context.Context, input workflows.ScanInput) (string, error)
}
