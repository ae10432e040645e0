package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/linediff"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
	"github.com/finops-claw-gang/snapdrift/internal/structdiff"
)

func TestMain(m *testing.M) {
	exitCode := m.Run()

	_, err := snaps.Clean(m, snaps.CleanOpts{Sort: true})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to clean snapshots: " + err.Error() + "\n")

		os.Exit(1)
	}

	os.Exit(exitCode)
}

func sampleReport() *drift.Report {
	return &drift.Report{
		Baseline: "/snapshots/pre",
		Current:  "/snapshots/post",
		Options: drift.ReportOptions{
			Layout:   drift.LayoutCategorized,
			Strategy: snapshot.StrategyIdentifier,
			DiffMode: drift.DiffStructural,
			Equality: snapshot.EqualityStructural,
			Pattern:  "*.json",
		},
		Sections: []drift.Section{
			{
				Category: "vms",
				Added:    []string{"vm3"},
				Removed:  []string{"vm1"},
				Changed:  []string{"vm2"},
				Diffs: []drift.ResourceDiff{{
					Key:          "vm2",
					BaselinePath: "/snapshots/pre/vms/vm2.json",
					CurrentPath:  "/snapshots/post/vms/vm2.json",
					Structural: []structdiff.Entry{
						{
							Path:   "hardwareProfile.vmSize",
							Kind:   structdiff.Changed,
							Before: document.String("Standard_D2s_v3"),
							After:  document.String("Standard_D4s_v3"),
						},
						{Path: "zones", Kind: structdiff.ArrayLengthMismatch, BeforeLen: 1, AfterLen: 2},
					},
				}},
			},
			{Category: "vms/instanceView", Changed: []string{"vm2"}, Diffs: []drift.ResourceDiff{{
				Key: "vm2",
				Lines: []linediff.Entry{
					{Line: 2, Before: linediff.Present(`  "powerState": "running"`), After: linediff.Present(`  "powerState": "stopped"`)},
					{Line: 4, Before: linediff.Present("}"), After: linediff.EndOfFile()},
				},
			}}},
			{Category: "nics", Added: []string{}, Removed: []string{}, Changed: []string{}, NoDifferences: true},
		},
		Summary: &drift.SummaryCheck{Document: "summary.json", Missing: "current"},
		FileMismatches: []drift.FileMismatch{
			{Name: "vms/vm1.json", Side: snapshot.SideBaseline},
		},
		Warnings: []snapshot.Warning{{
			Kind:     snapshot.WarnParseError,
			Category: "disks",
			Side:     snapshot.SideCurrent,
			Path:     "/snapshots/post/disks/bad.json",
			Message:  "invalid JSON",
		}},
	}
}

func TestText_Snapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(), TextOptions{}))
	snaps.MatchSnapshot(t, buf.String())
}

func TestText_PlainContent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(), TextOptions{}))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "== nics ==\n  no differences\n")
	assert.Contains(t, out, `hardwareProfile.vmSize: "Standard_D2s_v3" → "Standard_D4s_v3"`)
	assert.Contains(t, out, "zones: length 1 → 2")
	assert.Contains(t, out, "+ "+linediff.EOFMarker)
	assert.Contains(t, out, "summary summary.json: missing on current")
	assert.Contains(t, out, "baseline only: vms/vm1.json")
	assert.Contains(t, out, "Totals: 1 added, 1 removed, 2 changed")
}

func TestText_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(), TextOptions{Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestJSON_RoundTripsShape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	sections := decoded["sections"].([]any)
	require.Len(t, sections, 3)

	vms := sections[0].(map[string]any)
	entry := vms["diffs"].([]any)[0].(map[string]any)["structural"].([]any)[0].(map[string]any)
	assert.Equal(t, "hardwareProfile.vmSize", entry["path"])
	assert.Equal(t, "Standard_D4s_v3", entry["after"])

	lines := sections[1].(map[string]any)["diffs"].([]any)[0].(map[string]any)["lines"].([]any)
	assert.Nil(t, lines[1].(map[string]any)["after"])
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	require.NoError(t, WriteFile(jsonPath, FormatJSON, sampleReport()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	textPath := filepath.Join(dir, "report.txt")
	require.NoError(t, WriteFile(textPath, FormatText, sampleReport()))
	data, err = os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Drift report")

	err = WriteFile(filepath.Join(dir, "report.xml"), Format("xml"), sampleReport())
	assert.True(t, faults.IsCategory(err, faults.ConfigError))
}

func TestParseFormatAndSummary(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("yaml")
	assert.Error(t, err)

	assert.Equal(t, "drift detected: 1 added, 1 removed, 2 changed, 1 warnings", Summary(sampleReport()))
	assert.Equal(t, "no drift: 0 added, 0 removed, 0 changed, 0 warnings", Summary(&drift.Report{}))
}
