// Package querier provides read access to Temporal drift scan state.
package querier

import "time"

// ListOptions controls filtering for ListScans.
type ListOptions struct {
	// TaskQueue filters by task queue name. Empty means no filter.
	TaskQueue string
	// StatusFilter filters by workflow status (e.g. "Running", "Completed").
	StatusFilter string
	// PageSize limits the number of results.
	PageSize int
}

// ScanSummary is a lightweight overview of a scan workflow execution.
type ScanSummary struct {
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	CloseTime  time.Time `json:"close_time,omitempty"`
	TaskQueue  string    `json:"task_queue"`
}

// ScanDescription provides detailed info about a scan workflow execution.
type ScanDescription struct {
	ScanSummary
	WorkflowType string `json:"workflow_type"`
}
