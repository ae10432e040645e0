package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

// Format is a report file format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses text or json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", faults.New(faults.ConfigError, fmt.Sprintf("invalid report format %q (must be text or json)", s), "")
}

// JSON writes report as indented JSON.
func JSON(w io.Writer, report *drift.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("render: encode report: %w", err)
	}
	return nil
}

// Write renders report in format without colour.
func Write(w io.Writer, format Format, report *drift.Report) error {
	switch format {
	case FormatJSON:
		return JSON(w, report)
	case FormatText, "":
		return Text(w, report, TextOptions{})
	default:
		return faults.New(faults.ConfigError, fmt.Sprintf("invalid report format %q", format), "")
	}
}

// WriteFile renders report into path, replacing any existing file.
func WriteFile(path string, format Format, report *drift.Report) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, report); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("render: write report %s: %w", path, err)
	}
	return nil
}
