// Package queues defines per-queue worker configuration for task-queue partitioning.
package queues

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/worker"

	"github.com/finops-claw-gang/snapdrift/internal/temporal/versioning"
)

// QueueConfig holds worker options for a single task queue.
type QueueConfig struct {
	Name    string
	Options worker.Options
}

// DefaultConfigs returns the standard per-queue worker options.
//
//   - QueueScan: workflows plus snapshot comparisons, read-heavy
//   - QueuePublish: CloudWatch writes, tight concurrency
func DefaultConfigs() map[string]QueueConfig {
	return map[string]QueueConfig{
		versioning.QueueScan: {
			Name: versioning.QueueScan,
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     8,
				MaxConcurrentWorkflowTaskExecutionSize: 10,
			},
		},
		versioning.QueuePublish: {
			Name: versioning.QueuePublish,
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     2,
				MaxConcurrentWorkflowTaskExecutionSize: 1,
			},
		},
	}
}

// ParseQueues parses a comma-separated queue list (e.g. "scan,publish")
// into queue names. Accepts both short names ("scan") and full names
// ("snapdrift-scan"). Returns an error for unknown queues.
func ParseQueues(raw string) ([]string, error) {
	all := []string{versioning.QueueScan, versioning.QueuePublish}
	if strings.TrimSpace(raw) == "" {
		return all, nil
	}

	shortNames := map[string]string{
		"scan":    versioning.QueueScan,
		"publish": versioning.QueuePublish,
	}
	fullNames := map[string]bool{
		versioning.QueueScan:    true,
		versioning.QueuePublish: true,
	}

	seen := make(map[string]bool)
	var result []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if full, ok := shortNames[name]; ok {
			name = full
		}
		if !fullNames[name] {
			return nil, fmt.Errorf("queues: unknown queue %q", name)
		}
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	if len(result) == 0 {
		return all, nil
	}
	return result, nil
}
