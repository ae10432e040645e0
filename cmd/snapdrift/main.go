// Command snapdrift compares configuration snapshots and manages drift scans.
//
// Usage:
//
//	snapdrift compare BASELINE CURRENT [flags]
//	snapdrift trigger BASELINE CURRENT --scan-name NAME
//	snapdrift status  WORKFLOW_ID
//	snapdrift list
//
// compare exits 0 when no drift is found, 1 on drift and 2 on error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	exitNoDrift = 0
	exitDrift   = 1
	exitError   = 2
)

// errDrift is returned by compare to select exit code 1 without printing.
var errDrift = errors.New("drift detected")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return exitNoDrift
	case errors.Is(err, errDrift):
		return exitDrift
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
}

type rootOptions struct {
	logLevel string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	ro := &rootOptions{}
	root := &cobra.Command{
		Use:           "snapdrift",
		Short:         "Detect configuration drift between resource snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides SNAPDRIFT_LOG_LEVEL")

	root.AddCommand(
		newCompareCmd(ro),
		newTriggerCmd(ro),
		newStatusCmd(ro),
		newListCmd(ro),
	)
	return root
}
