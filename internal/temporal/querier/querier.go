package querier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"github.com/finops-claw-gang/snapdrift/internal/temporal/versioning"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

// ErrInvalidScan is returned by StartScan for input that cannot start a scan.
var ErrInvalidScan = errors.New("invalid scan input")

// Client is the subset of client.Client the querier uses.
type Client interface {
	ListWorkflow(ctx context.Context, request *workflowservice.ListWorkflowExecutionsRequest) (*workflowservice.ListWorkflowExecutionsResponse, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
	GetWorkflow(ctx context.Context, workflowID, runID string) client.WorkflowRun
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalQuerier implements ScanQuerier using a Temporal client.
type TemporalQuerier struct {
	client    Client
	taskQueue string
}

// New creates a TemporalQuerier that starts scans on the scan task queue.
func New(c Client) *TemporalQuerier {
	return &TemporalQuerier{client: c, taskQueue: versioning.QueueScan}
}

// ListScans lists scan workflow executions using Temporal's visibility API.
func (q *TemporalQuerier) ListScans(ctx context.Context, opts ListOptions) ([]ScanSummary, error) {
	clauses := []string{fmt.Sprintf("WorkflowType = %q", "DriftScanWorkflow")}
	if opts.TaskQueue != "" {
		clauses = append(clauses, fmt.Sprintf("TaskQueue = %q", opts.TaskQueue))
	}
	if opts.StatusFilter != "" {
		clauses = append(clauses, fmt.Sprintf("ExecutionStatus = %q", opts.StatusFilter))
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	resp, err := q.client.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    strings.Join(clauses, " AND "),
		PageSize: int32(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}

	summaries := make([]ScanSummary, 0, len(resp.Executions))
	for _, exec := range resp.Executions {
		s := ScanSummary{
			WorkflowID: exec.Execution.WorkflowId,
			RunID:      exec.Execution.RunId,
			Status:     exec.Status.String(),
			StartTime:  exec.StartTime.AsTime(),
			TaskQueue:  exec.TaskQueue,
		}
		if exec.CloseTime != nil {
			s.CloseTime = exec.CloseTime.AsTime()
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetScan returns the scan result.
// For completed workflows, extracts the result directly.
// For running workflows, uses the report Query handler.
func (q *TemporalQuerier) GetScan(ctx context.Context, workflowID string) (*workflows.ScanResult, error) {
	desc, err := q.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, fmt.Errorf("describe scan: %w", err)
	}

	status := desc.WorkflowExecutionInfo.Status
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		run := q.client.GetWorkflow(ctx, workflowID, "")
		var result workflows.ScanResult
		if err := run.Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("get scan result: %w", err)
		}
		return &result, nil

	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		resp, err := q.client.QueryWorkflow(ctx, workflowID, "", workflows.QueryNameReport)
		if err != nil {
			return nil, fmt.Errorf("query scan report: %w", err)
		}
		var result workflows.ScanResult
		if err := resp.Get(&result); err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
		return &result, nil
	}

	return nil, fmt.Errorf("scan %s has status %s, cannot read report", workflowID, status)
}

// DescribeScan returns detailed information about a scan workflow execution.
func (q *TemporalQuerier) DescribeScan(ctx context.Context, workflowID string) (*ScanDescription, error) {
	desc, err := q.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, fmt.Errorf("describe scan: %w", err)
	}

	info := desc.WorkflowExecutionInfo
	sd := &ScanDescription{
		ScanSummary: ScanSummary{
			WorkflowID: info.Execution.WorkflowId,
			RunID:      info.Execution.RunId,
			Status:     info.Status.String(),
			StartTime:  info.StartTime.AsTime(),
			TaskQueue:  info.TaskQueue,
		},
	}
	if info.Type != nil {
		sd.WorkflowType = info.Type.Name
	}
	if info.CloseTime != nil {
		sd.CloseTime = info.CloseTime.AsTime()
	}
	return sd, nil
}

// StartScan starts a DriftScanWorkflow and returns its workflow ID.
func (q *TemporalQuerier) StartScan(ctx context.Context, input workflows.ScanInput) (string, error) {
	if input.ScanName == "" || input.Baseline == "" || input.Current == "" {
		return "", fmt.Errorf("%w: scan_name, baseline and current are required", ErrInvalidScan)
	}
	id := fmt.Sprintf("%s-%s-%s", versioning.DriftScanV1, input.ScanName, scanSuffix(input))
	run, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: q.taskQueue,
	}, workflows.DriftScanWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("start scan: %w", err)
	}
	return run.GetID(), nil
}

// scanSuffix keeps workflow IDs stable per snapshot pair: re-submitting a
// running comparison returns the existing run.
func scanSuffix(input workflows.ScanInput) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return r.Replace(input.Baseline) + "--" + r.Replace(input.Current)
}
