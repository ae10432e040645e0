package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"
)

// ScheduleInput lists the scans one scheduled run performs.
type ScheduleInput struct {
	Scans []ScanInput `json:"scans"`
}

// ScheduleResult summarizes a scheduled run.
type ScheduleResult struct {
	Scanned int `json:"scanned"`
	Drifted int `json:"drifted"`
	Failed  int `json:"failed"`
	// DriftedScans names the scans that found drift, in input order.
	DriftedScans []string `json:"drifted_scans,omitempty"`
}

// ScheduledDriftWorkflow runs each configured scan as a child DriftScanWorkflow.
// A failing scan is counted and the run continues.
func ScheduledDriftWorkflow(ctx workflow.Context, input ScheduleInput) (ScheduleResult, error) {
	logger := workflow.GetLogger(ctx)
	result := ScheduleResult{}
	parentID := workflow.GetInfo(ctx).WorkflowExecution.ID

	for i, scan := range input.Scans {
		result.Scanned++
		name := scan.ScanName
		if name == "" {
			name = fmt.Sprintf("scan-%d", i)
			scan.ScanName = name
		}

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: fmt.Sprintf("%s-%s", parentID, name),
		})

		var child ScanResult
		err := workflow.ExecuteChildWorkflow(childCtx, DriftScanWorkflow, scan).Get(ctx, &child)
		if err != nil {
			logger.Warn("child scan failed", "scan", name, "error", err)
			result.Failed++
			continue
		}
		if child.Status == StatusFailed {
			logger.Warn("scan failed", "scan", name, "error", child.Error)
			result.Failed++
			continue
		}
		if child.Drift {
			result.Drifted++
			result.DriftedScans = append(result.DriftedScans, name)
		}
		logger.Info("scan completed", "scan", name, "drift", child.Drift)
	}

	return result, nil
}
