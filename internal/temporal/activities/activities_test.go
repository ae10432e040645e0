package activities_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/ratelimit"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/activities"
	"github.com/finops-claw-gang/snapdrift/internal/testutil"
)

// Identity keys are normalized to lower case.
var goldenVM = strings.ToLower("/subscriptions/0000/resourceGroups/prod/providers/Microsoft.Compute/virtualMachines/")

func newTestActivities() *activities.Activities {
	return &activities.Activities{
		Runner: drift.Runner{Root: testutil.GoldenDir(), Options: drift.DefaultOptions()},
	}
}

func goldenInput() activities.CompareInput {
	return activities.CompareInput{
		TenantID: "tenant-a",
		ScanName: "golden",
		Baseline: "baseline",
		Current:  "current",
	}
}

func TestCompareSnapshots_Golden(t *testing.T) {
	a := newTestActivities()
	out, err := a.CompareSnapshots(context.Background(), goldenInput())
	require.NoError(t, err)
	require.NotNil(t, out.Report)

	assert.True(t, out.Drift)
	assert.Equal(t, drift.Totals{Added: 1, Removed: 1, Changed: 1}, out.Totals)

	vms, ok := out.Report.Section("vms")
	require.True(t, ok)
	assert.Equal(t, []string{goldenVM + "web-03"}, vms.Added)
	assert.Equal(t, []string{goldenVM + "web-01"}, vms.Removed)
	assert.Equal(t, []string{goldenVM + "web-02"}, vms.Changed)

	nics, ok := out.Report.Section("nics")
	require.True(t, ok)
	assert.True(t, nics.NoDifferences)

	view, ok := out.Report.Section("vms/instanceView")
	require.True(t, ok)
	assert.True(t, view.NoDifferences)
}

func TestCompareSnapshots_OverridesApplied(t *testing.T) {
	a := newTestActivities()
	in := goldenInput()
	in.Overrides = drift.Overrides{IgnoreExpr: `del(.hardwareProfile)`}

	out, err := a.CompareSnapshots(context.Background(), in)
	require.NoError(t, err)
	vms, _ := out.Report.Section("vms")
	assert.Empty(t, vms.Changed)
	assert.Equal(t, `del(.hardwareProfile)`, out.Report.Options.Filter)
}

func TestCompareSnapshots_InvalidOverrideIsNonRetryable(t *testing.T) {
	a := newTestActivities()
	in := goldenInput()
	in.Overrides = drift.Overrides{DiffMode: "words"}

	_, err := a.CompareSnapshots(context.Background(), in)
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "ConfigError", appErr.Type())
}

func TestCompareSnapshots_PathEscapingRoot(t *testing.T) {
	a := newTestActivities()
	in := goldenInput()
	in.Baseline = "../../etc"

	_, err := a.CompareSnapshots(context.Background(), in)
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}

func TestCompareSnapshots_MissingSnapshot(t *testing.T) {
	a := newTestActivities()
	in := goldenInput()
	in.Current = "does-not-exist"

	_, err := a.CompareSnapshots(context.Background(), in)
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "FatalInputError", appErr.Type())
}

func TestCompareSnapshots_TempTree(t *testing.T) {
	base, cur := testutil.VMScenario(t)
	root := filepath.Dir(base)
	a := &activities.Activities{Runner: drift.Runner{Root: root, Options: drift.DefaultOptions()}}

	out, err := a.CompareSnapshots(context.Background(), activities.CompareInput{
		ScanName: "tmp",
		Baseline: base,
		Current:  cur,
	})
	require.NoError(t, err)
	assert.Equal(t, drift.Totals{Added: 1, Removed: 1, Changed: 1}, out.Totals)
}

func TestCompareSnapshots_BudgetExceeded(t *testing.T) {
	a := newTestActivities()
	a.Budget = ratelimit.NewScanBudget(1, time.Hour)

	_, err := a.CompareSnapshots(context.Background(), goldenInput())
	require.NoError(t, err)

	_, err = a.CompareSnapshots(context.Background(), goldenInput())
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ScanBudgetExceeded", appErr.Type())

	// other tenants have their own window
	in := goldenInput()
	in.TenantID = "tenant-b"
	_, err = a.CompareSnapshots(context.Background(), in)
	assert.NoError(t, err)
}

type recordingPublisher struct {
	scans []string
	err   error
}

func (p *recordingPublisher) PublishReport(_ context.Context, scanName string, _ *drift.Report) error {
	p.scans = append(p.scans, scanName)
	return p.err
}

func TestPublishDriftMetrics(t *testing.T) {
	report := &drift.Report{Sections: []drift.Section{{Category: "vms", Added: []string{"a"}}}}

	t.Run("stub publisher", func(t *testing.T) {
		a := newTestActivities()
		out, err := a.PublishDriftMetrics(context.Background(), activities.PublishInput{ScanName: "s", Report: report})
		require.NoError(t, err)
		assert.False(t, out.Published)
	})

	t.Run("configured publisher", func(t *testing.T) {
		pub := &recordingPublisher{}
		a := newTestActivities()
		a.Publisher = pub
		out, err := a.PublishDriftMetrics(context.Background(), activities.PublishInput{ScanName: "s", Report: report})
		require.NoError(t, err)
		assert.True(t, out.Published)
		assert.Equal(t, []string{"s"}, pub.scans)
	})

	t.Run("publisher error", func(t *testing.T) {
		a := newTestActivities()
		a.Publisher = &recordingPublisher{err: errors.New("throttled")}
		_, err := a.PublishDriftMetrics(context.Background(), activities.PublishInput{ScanName: "s", Report: report})
		assert.ErrorContains(t, err, "throttled")
	})

	t.Run("nil report", func(t *testing.T) {
		a := newTestActivities()
		_, err := a.PublishDriftMetrics(context.Background(), activities.PublishInput{ScanName: "s"})
		assert.Error(t, err)
	})
}
