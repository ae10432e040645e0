package workflows_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/activities"
)

// Matchers for activity and child workflow mocks.
var (
	testAnyCtx   = mock.Anything
	testAnyInput = mock.Anything
)

// driftedReport is the vm1 removed, vm2 changed, vm3 added report.
func driftedReport() *drift.Report {
	return &drift.Report{
		Sections: []drift.Section{{
			Category: "vms",
			Added:    []string{"vm3"},
			Removed:  []string{"vm1"},
			Changed:  []string{"vm2"},
		}},
	}
}

// compareOutput wraps report the way CompareSnapshots does.
func compareOutput(report *drift.Report) activities.CompareOutput {
	return activities.CompareOutput{
		Report: report,
		Drift:  report.HasDrift(),
		Totals: report.Totals(),
	}
}
