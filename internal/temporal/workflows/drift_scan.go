// Package workflows defines the Temporal workflow functions.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/activities"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/versioning"
)

// QueryNameReport is the Temporal Query handler name returning the current ScanResult.
const QueryNameReport = "report"

// ScanStatus is the lifecycle position of a drift scan.
type ScanStatus string

const (
	StatusPending    ScanStatus = "pending"
	StatusComparing  ScanStatus = "comparing"
	StatusPublishing ScanStatus = "publishing"
	StatusCompleted  ScanStatus = "completed"
	StatusFailed     ScanStatus = "failed"
)

// ScanInput is the input to the drift scan workflow.
type ScanInput struct {
	TenantID  string          `json:"tenant_id,omitempty"`
	ScanName  string          `json:"scan_name"`
	Baseline  string          `json:"baseline"`
	Current   string          `json:"current"`
	Overrides drift.Overrides `json:"overrides,omitempty"`
	// SkipPublish disables metric publishing even when drift is found.
	SkipPublish bool `json:"skip_publish,omitempty"`
}

// ScanResult is the output of the drift scan workflow.
// The workflow returns this on all paths; only infra failures produce
// workflow-level errors.
type ScanResult struct {
	ScanName  string        `json:"scan_name"`
	Version   string        `json:"version"`
	Status    ScanStatus    `json:"status"`
	Report    *drift.Report `json:"report,omitempty"`
	Drift     bool          `json:"drift"`
	Totals    drift.Totals  `json:"totals"`
	Published bool          `json:"published"`
	Error     string        `json:"error,omitempty"`
}

// DriftScanWorkflow compares one baseline/current snapshot pair:
//
//	compare -> (drift?) publish -> END
//
// The report query handler exposes the in-progress result.
func DriftScanWorkflow(ctx workflow.Context, input ScanInput) (ScanResult, error) {
	logger := workflow.GetLogger(ctx)
	result := ScanResult{
		ScanName: input.ScanName,
		Version:  versioning.DriftScanV1,
		Status:   StatusPending,
	}

	if err := workflow.SetQueryHandler(ctx, QueryNameReport, func() (ScanResult, error) {
		return result, nil
	}); err != nil {
		return result, fmt.Errorf("register report query: %w", err)
	}

	// Comparisons are deterministic over the same snapshots: no retry.
	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	if input.Baseline == "" || input.Current == "" {
		result.Status = StatusFailed
		result.Error = "baseline and current are required"
		return result, nil
	}

	result.Status = StatusComparing
	var cmpOut activities.CompareOutput
	err := workflow.ExecuteActivity(actCtx, "CompareSnapshots", activities.CompareInput{
		TenantID:  input.TenantID,
		ScanName:  input.ScanName,
		Baseline:  input.Baseline,
		Current:   input.Current,
		Overrides: input.Overrides,
	}).Get(ctx, &cmpOut)
	if err != nil {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("compare failed: %v", err)
		return result, nil
	}
	result.Report = cmpOut.Report
	result.Drift = cmpOut.Drift
	result.Totals = cmpOut.Totals
	logger.Info("comparison complete",
		"scan", input.ScanName,
		"drift", cmpOut.Drift,
		"added", cmpOut.Totals.Added,
		"removed", cmpOut.Totals.Removed,
		"changed", cmpOut.Totals.Changed,
	)

	if !cmpOut.Drift || input.SkipPublish {
		result.Status = StatusCompleted
		return result, nil
	}

	// Publish failures are logged, never returned.
	result.Status = StatusPublishing
	pubCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           versioning.QueuePublish,
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	var pubOut activities.PublishOutput
	err = workflow.ExecuteActivity(pubCtx, "PublishDriftMetrics", activities.PublishInput{
		TenantID: input.TenantID,
		ScanName: input.ScanName,
		Report:   cmpOut.Report,
	}).Get(ctx, &pubOut)
	if err != nil {
		logger.Warn("publish failed", "scan", input.ScanName, "error", err)
	} else {
		result.Published = pubOut.Published
	}

	result.Status = StatusCompleted
	return result, nil
}
