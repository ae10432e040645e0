// Package mcpserver exposes drift comparisons and scan history via MCP tools.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/render"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

// RegisterTools registers the drift MCP tools on the given server. Scan tools
// are only registered when q is non-nil.
func RegisterTools(server *mcp.Server, runner drift.Runner, q querier.ScanQuerier) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "compare_snapshots",
			Description: "Compare two snapshot directories and return the drift report",
		},
		compareSnapshotsHandler(runner),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "diff_documents",
			Description: "Structurally diff two JSON documents, optionally after a jq ignore filter",
		},
		diffDocumentsHandler(runner),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "diff_lines",
			Description: "Positional line diff of two texts",
		},
		diffLinesHandler(runner),
	)

	if q == nil {
		return
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_scans",
			Description: "List recent drift scan workflows with status",
		},
		listScansHandler(q),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_scan_report",
			Description: "Get the drift report of a scan workflow as text",
		},
		getScanReportHandler(q),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "start_scan",
			Description: "Start a drift scan workflow for a baseline/current snapshot pair",
		},
		startScanHandler(runner, q),
	)
}

type compareInput struct {
	Baseline  string          `json:"baseline" jsonschema:"baseline snapshot directory, relative to the snapshot root"`
	Current   string          `json:"current" jsonschema:"current snapshot directory, relative to the snapshot root"`
	Overrides drift.Overrides `json:"overrides,omitempty"`
	Format    string          `json:"format,omitempty" jsonschema:"text (default) or json"`
}

func compareSnapshotsHandler(runner drift.Runner) mcp.ToolHandlerFor[compareInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input compareInput) (*mcp.CallToolResult, any, error) {
		if input.Baseline == "" || input.Current == "" {
			return errorResult("baseline and current are required"), nil, nil
		}
		format := render.FormatText
		if input.Format != "" {
			f, err := render.ParseFormat(input.Format)
			if err != nil {
				return errorResult(err.Error()), nil, nil
			}
			format = f
		}

		report, err := runner.Compare(ctx, input.Baseline, input.Current, input.Overrides)
		if err != nil {
			if faults.IsFatal(err) {
				return errorResult(err.Error()), nil, nil
			}
			return nil, nil, fmt.Errorf("compare_snapshots: %w", err)
		}
		return reportResult(format, report)
	}
}

type diffInput struct {
	Before     string `json:"before" jsonschema:"first JSON document"`
	After      string `json:"after" jsonschema:"second JSON document"`
	IgnoreExpr string `json:"ignore_expr,omitempty" jsonschema:"jq expression applied to both documents before comparing"`
}

func diffDocumentsHandler(runner drift.Runner) mcp.ToolHandlerFor[diffInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input diffInput) (*mcp.CallToolResult, any, error) {
		engine, err := runner.Engine(drift.Overrides{IgnoreExpr: input.IgnoreExpr}, nil)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		entries, err := engine.CompareDocuments([]byte(input.Before), []byte(input.After))
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(map[string]any{"equal": len(entries) == 0, "entries": entries})
	}
}

type linesInput struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

func diffLinesHandler(runner drift.Runner) mcp.ToolHandlerFor[linesInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input linesInput) (*mcp.CallToolResult, any, error) {
		engine, err := runner.Engine(drift.Overrides{}, nil)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(map[string]any{"lines": engine.CompareText([]byte(input.Before), []byte(input.After))})
	}
}

type listScansInput struct {
	Status string `json:"status,omitempty"`
}

func listScansHandler(q querier.ScanQuerier) mcp.ToolHandlerFor[listScansInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input listScansInput) (*mcp.CallToolResult, any, error) {
		scans, err := q.ListScans(ctx, querier.ListOptions{StatusFilter: input.Status})
		if err != nil {
			return nil, nil, fmt.Errorf("list_scans: %w", err)
		}
		return textResult(scans)
	}
}

type scanIDInput struct {
	WorkflowID string `json:"workflow_id"`
	Format     string `json:"format,omitempty" jsonschema:"text (default) or json"`
}

func getScanReportHandler(q querier.ScanQuerier) mcp.ToolHandlerFor[scanIDInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input scanIDInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}
		format := render.FormatText
		if input.Format != "" {
			f, err := render.ParseFormat(input.Format)
			if err != nil {
				return errorResult(err.Error()), nil, nil
			}
			format = f
		}

		result, err := q.GetScan(ctx, input.WorkflowID)
		if err != nil {
			return nil, nil, fmt.Errorf("get_scan_report: %w", err)
		}
		if result.Report == nil {
			return errorResult(fmt.Sprintf("scan %s has no report (status %s)", input.WorkflowID, result.Status)), nil, nil
		}
		return reportResult(format, result.Report)
	}
}

func startScanHandler(runner drift.Runner, q querier.ScanQuerier) mcp.ToolHandlerFor[workflows.ScanInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input workflows.ScanInput) (*mcp.CallToolResult, any, error) {
		for _, p := range []string{input.Baseline, input.Current} {
			if _, err := runner.Resolve(p); err != nil {
				return errorResult(err.Error()), nil, nil
			}
		}
		id, err := q.StartScan(ctx, input)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(map[string]string{"workflow_id": id})
	}
}

func reportResult(format render.Format, report *drift.Report) (*mcp.CallToolResult, any, error) {
	var buf bytes.Buffer
	if err := render.Write(&buf, format, report); err != nil {
		return nil, nil, fmt.Errorf("render report: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, nil, nil
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
