// Package versioning defines workflow versions and task queue names.
package versioning

const (
	// Workflow versions, recorded on scan results.
	DriftScanV1      = "drift-scan-v1"
	ScheduledDriftV1 = "scheduled-drift-v1"

	// Task queues. Comparisons read snapshot storage; publishing writes to
	// CloudWatch and runs on its own queue with tighter concurrency.
	QueueScan    = "snapdrift-scan"
	QueuePublish = "snapdrift-publish"
)
