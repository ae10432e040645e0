package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/render"
	"github.com/finops-claw-gang/snapdrift/internal/snapshot"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeStub, cfg.Mode)
	assert.Equal(t, drift.LayoutCategorized, cfg.Layout)
	assert.Equal(t, snapshot.StrategyIdentifier, cfg.Strategy)
	assert.Equal(t, drift.DiffStructural, cfg.DiffMode)
	assert.Equal(t, snapshot.EqualityStructural, cfg.Equality)
	assert.Equal(t, "*.json", cfg.FilePattern)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, render.FormatText, cfg.ReportFormat)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Zero(t, cfg.ReadRate)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPDRIFT_LAYOUT", "flat")
	t.Setenv("SNAPDRIFT_STRATEGY", "prefix")
	t.Setenv("SNAPDRIFT_DIFF_MODE", "lines")
	t.Setenv("SNAPDRIFT_AMBIGUITY", "exclude")
	t.Setenv("SNAPDRIFT_CONCURRENCY", "3")
	t.Setenv("SNAPDRIFT_READ_RATE", "12.5")
	t.Setenv("SNAPDRIFT_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SNAPDRIFT_OTEL_ENABLED", "true")
	t.Setenv("SNAPDRIFT_TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, drift.LayoutFlat, cfg.Layout)
	assert.Equal(t, snapshot.StrategyPrefix, cfg.Strategy)
	assert.Equal(t, drift.DiffLines, cfg.DiffMode)
	assert.Equal(t, snapshot.AmbiguityExclude, cfg.Ambiguity)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.InDelta(t, 12.5, cfg.ReadRate, 0.0001)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.OTelEnabled)
	assert.InDelta(t, 0.25, cfg.TraceSampleRatio, 0.0001)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"SNAPDRIFT_MODE":        "invalid",
		"SNAPDRIFT_STRATEGY":    "fuzzy",
		"SNAPDRIFT_EQUALITY":    "bytes",
		"SNAPDRIFT_CONCURRENCY": "many",
		"SNAPDRIFT_READ_RATE":   "-1",

		"SNAPDRIFT_TRACE_SAMPLE_RATIO": "1.5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.True(t, faults.IsCategory(err, faults.ConfigError), err.Error())
		})
	}
}

func TestDriftOptions(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPDRIFT_IGNORE_EXPR", "del(.etag)")
	t.Setenv("SNAPDRIFT_SUMMARY_DOCUMENT", "summary.json")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	opts, err := cfg.DriftOptions()
	require.NoError(t, err)
	assert.Equal(t, "del(.etag)", opts.Filter.String())
	assert.Equal(t, "summary.json", opts.SummaryDocument)
	assert.Len(t, opts.Categories, 7)

	cfg.IgnoreExpr = "del(."
	_, err = cfg.DriftOptions()
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.ConfigError))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SNAPDRIFT_MODE", "SNAPDRIFT_LOG_LEVEL", "SNAPDRIFT_LAYOUT", "SNAPDRIFT_STRATEGY",
		"SNAPDRIFT_DIFF_MODE", "SNAPDRIFT_EQUALITY", "SNAPDRIFT_FILE_PATTERN",
		"SNAPDRIFT_PREFIX_SEPARATOR", "SNAPDRIFT_IDENTIFIER_FIELD", "SNAPDRIFT_AMBIGUITY",
		"SNAPDRIFT_IGNORE_EXPR", "SNAPDRIFT_CONCURRENCY", "SNAPDRIFT_READ_RATE",
		"SNAPDRIFT_SUMMARY_DOCUMENT", "SNAPDRIFT_REPORT_FILE", "SNAPDRIFT_REPORT_FORMAT",
		"SNAPDRIFT_SNAPSHOT_ROOT", "SNAPDRIFT_SCAN_BUDGET", "SNAPDRIFT_API_PORT",
		"SNAPDRIFT_CORS_ORIGINS", "SNAPDRIFT_OIDC_ISSUER", "SNAPDRIFT_OIDC_AUDIENCE",
		"SNAPDRIFT_OTEL_ENABLED", "SNAPDRIFT_TRACE_SAMPLE_RATIO", "SNAPDRIFT_CLOUDWATCH_NAMESPACE",
		"TEMPORAL_ADDRESS", "SNAPDRIFT_WORKER_QUEUES",
		"AWS_REGION", "AWS_PROFILE", "SNAPDRIFT_CROSS_ACCOUNT_ROLE",
	} {
		// Unset for the duration of the test and restore afterwards.
		orig, wasSet := os.LookupEnv(key)
		if wasSet {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}
