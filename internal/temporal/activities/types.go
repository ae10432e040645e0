// Package activities defines the Temporal activity I/O structs and the
// Activities implementation that bridges Temporal's serialization boundary
// to the drift engine in internal/.
package activities

import "github.com/finops-claw-gang/snapdrift/internal/drift"

// CompareInput is the activity input for a snapshot comparison. Baseline and
// Current are resolved under the worker's snapshot root.
type CompareInput struct {
	TenantID  string          `json:"tenant_id,omitempty"`
	ScanName  string          `json:"scan_name"`
	Baseline  string          `json:"baseline"`
	Current   string          `json:"current"`
	Overrides drift.Overrides `json:"overrides,omitempty"`
}

// CompareOutput is the activity output from a snapshot comparison.
type CompareOutput struct {
	Report *drift.Report `json:"report"`
	Drift  bool          `json:"drift"`
	Totals drift.Totals  `json:"totals"`
}

// PublishInput is the activity input for metric publishing.
type PublishInput struct {
	TenantID string        `json:"tenant_id,omitempty"`
	ScanName string        `json:"scan_name"`
	Report   *drift.Report `json:"report"`
}

// PublishOutput is the activity output from metric publishing.
type PublishOutput struct {
	// Published is false when no publisher is configured (stub mode).
	Published bool `json:"published"`
}
