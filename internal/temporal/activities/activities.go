package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/ratelimit"
)

// Publisher writes report metrics somewhere durable.
// *cloudwatch.Client satisfies it.
type Publisher interface {
	PublishReport(ctx context.Context, scanName string, report *drift.Report) error
}

// Activities holds the dependencies for all Temporal activities.
// Each method is registered as a Temporal activity.
type Activities struct {
	Runner    drift.Runner
	Publisher Publisher             // nil in stub mode
	Budget    *ratelimit.ScanBudget // nil = no budget enforcement
}

func (a *Activities) logger() *slog.Logger {
	if a.Runner.Logger == nil {
		return slog.Default()
	}
	return a.Runner.Logger
}

// CompareSnapshots runs the drift engine over one baseline/current pair.
// Input errors are non-retryable: a missing snapshot will not appear on retry.
func (a *Activities) CompareSnapshots(ctx context.Context, in CompareInput) (CompareOutput, error) {
	if err := a.Budget.Allow(in.TenantID, "CompareSnapshots"); err != nil {
		return CompareOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "ScanBudgetExceeded", err)
	}

	runner := a.Runner
	runner.Logger = a.logger().With("scan", in.ScanName)
	report, err := runner.Compare(ctx, in.Baseline, in.Current, in.Overrides)
	if err != nil {
		if faults.IsFatal(err) || faults.IsCategory(err, faults.ParseError) {
			return CompareOutput{}, nonRetryable("compare activity", err)
		}
		return CompareOutput{}, fmt.Errorf("compare activity: %w", err)
	}
	return CompareOutput{Report: report, Drift: report.HasDrift(), Totals: report.Totals()}, nil
}

// PublishDriftMetrics sends report counts to the configured publisher.
func (a *Activities) PublishDriftMetrics(ctx context.Context, in PublishInput) (PublishOutput, error) {
	if in.Report == nil {
		return PublishOutput{}, temporal.NewNonRetryableApplicationError("publish activity: report required", "InvalidInput", nil)
	}
	if a.Publisher == nil {
		t := in.Report.Totals()
		a.logger().Info("drift metrics (stub publisher)",
			"scan", in.ScanName, "added", t.Added, "removed", t.Removed, "changed", t.Changed)
		return PublishOutput{}, nil
	}
	if err := a.Publisher.PublishReport(ctx, in.ScanName, in.Report); err != nil {
		return PublishOutput{}, fmt.Errorf("publish activity: %w", err)
	}
	return PublishOutput{Published: true}, nil
}

func nonRetryable(msg string, err error) error {
	errType := "DriftError"
	var typed *faults.Error
	if errors.As(err, &typed) {
		errType = string(typed.Category)
	}
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf("%s: %v", msg, err), errType, err)
}
