package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/snapdrift/internal/config"
	"github.com/finops-claw-gang/snapdrift/internal/observability"
	"github.com/finops-claw-gang/snapdrift/internal/render"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

// dial connects to Temporal using env configuration and returns a querier
// plus a close func.
func dial(cmd *cobra.Command, ro *rootOptions) (*querier.TemporalQuerier, func(), error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if ro.logLevel != "" {
		level = ro.logLevel
	}
	logger := observability.NewLogger(cmd.ErrOrStderr(), level)
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   observability.NewTemporalSlogAdapter(logger),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return querier.New(c), c.Close, nil
}

func newTriggerCmd(ro *rootOptions) *cobra.Command {
	f := &optionFlags{}
	var (
		scanName    string
		tenant      string
		skipPublish bool
	)
	cmd := &cobra.Command{
		Use:   "trigger BASELINE CURRENT",
		Short: "Start a drift scan workflow; paths are relative to the worker's snapshot root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, closeFn, err := dial(cmd, ro)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := q.StartScan(cmd.Context(), workflows.ScanInput{
				TenantID:    tenant,
				ScanName:    scanName,
				Baseline:    args[0],
				Current:     args[1],
				Overrides:   f.overrides(),
				SkipPublish: skipPublish,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started scan %s\n", id)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&scanName, "scan-name", "", "scan name (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID for scan budgeting")
	cmd.Flags().BoolVar(&skipPublish, "skip-publish", false, "do not publish drift metrics")
	_ = cmd.MarkFlagRequired("scan-name")
	return cmd
}

func newStatusCmd(ro *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status WORKFLOW_ID",
		Short: "Show a drift scan's status and report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			q, closeFn, err := dial(cmd, ro)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := q.GetScan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outFormat == render.FormatJSON {
				return printJSON(cmd, result)
			}
			fmt.Fprintf(out, "scan %s: %s\n", result.ScanName, result.Status)
			if result.Error != "" {
				fmt.Fprintf(out, "error: %s\n", result.Error)
			}
			if result.Report == nil {
				return nil
			}
			return render.Text(out, result.Report, render.TextOptions{})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format: text or json")
	return cmd
}

func newListCmd(ro *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent drift scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, closeFn, err := dial(cmd, ro)
			if err != nil {
				return err
			}
			defer closeFn()

			scans, err := q.ListScans(cmd.Context(), querier.ListOptions{StatusFilter: status})
			if err != nil {
				return err
			}
			return printJSON(cmd, scans)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by workflow status (Running, Completed, ...)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
