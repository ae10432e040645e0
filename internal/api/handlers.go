package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/render"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/workflows"
)

// maxBodyBytes caps request bodies, including inline documents for /diff.
const maxBodyBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type compareRequest struct {
	Baseline  string          `json:"baseline"`
	Current   string          `json:"current"`
	Overrides drift.Overrides `json:"overrides"`
	// Format is json (default) or text.
	Format string `json:"format,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if !decodeBody(w, r, &body) {
		return
	}
	format := render.FormatJSON
	if body.Format != "" {
		f, err := render.ParseFormat(body.Format)
		if err != nil {
			writeFault(w, err)
			return
		}
		format = f
	}

	baseline, err := s.runner.Resolve(body.Baseline)
	if err != nil {
		writeFault(w, err)
		return
	}
	current, err := s.runner.Resolve(body.Current)
	if err != nil {
		writeFault(w, err)
		return
	}
	engine, err := s.runner.Engine(body.Overrides, s.runner.Logger.With("request_id", w.Header().Get("X-Request-ID")))
	if err != nil {
		writeFault(w, err)
		return
	}

	report, err := engine.Run(r.Context(), baseline, current)
	if err != nil {
		writeFault(w, err)
		return
	}

	if format == render.FormatText {
		var buf bytes.Buffer
		if err := render.Write(&buf, format, report); err != nil {
			writeFault(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type diffRequest struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	// Mode is structural (default) or lines.
	Mode       string `json:"mode,omitempty"`
	IgnoreExpr string `json:"ignore_expr,omitempty"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var body diffRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Before) == 0 || len(body.After) == 0 {
		writeError(w, http.StatusBadRequest, "before and after are required")
		return
	}
	engine, err := s.runner.Engine(drift.Overrides{DiffMode: body.Mode, IgnoreExpr: body.IgnoreExpr}, nil)
	if err != nil {
		writeFault(w, err)
		return
	}
	opts := engine.Options()

	if opts.DiffMode == drift.DiffLines {
		before, after := []byte(body.Before), []byte(body.After)
		if opts.Filter != nil {
			b, err := opts.Filter.Apply(before)
			if err != nil {
				writeFault(w, err)
				return
			}
			a, err := opts.Filter.Apply(after)
			if err != nil {
				writeFault(w, err)
				return
			}
			before, after = b.JSON(), a.JSON()
		}
		writeJSON(w, http.StatusOK, map[string]any{"lines": engine.CompareText(indented(before), indented(after))})
		return
	}
	entries, err := engine.CompareDocuments(body.Before, body.After)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equal": len(entries) == 0, "entries": entries})
}

// indented re-indents inline JSON so line diffs are meaningful for
// single-line request bodies. Invalid JSON is compared as given.
func indented(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	opts := querier.ListOptions{StatusFilter: r.URL.Query().Get("status")}
	scans, err := s.querier.ListScans(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if !s.requireQuerier(w) {
		return
	}
	var input workflows.ScanInput
	if !decodeBody(w, r, &input) {
		return
	}
	if tenant := TenantFromContext(r.Context()); tenant != "" {
		input.TenantID = tenant
	}
	// reject bad paths here rather than in a failed workflow
	for _, p := range []string{input.Baseline, input.Current} {
		if _, err := s.runner.Resolve(p); err != nil {
			writeFault(w, err)
			return
		}
	}
	if _, err := input.Overrides.Apply(s.runner.Options); err != nil {
		writeFault(w, err)
		return
	}

	id, err := s.querier.StartScan(r.Context(), input)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"workflow_id": id})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	result, ok := s.scan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetScanReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.scan(w, r)
	if !ok {
		return
	}
	if result.Report == nil {
		writeError(w, http.StatusConflict, "scan has no report yet (status "+string(result.Status)+")")
		return
	}
	format := render.FormatText
	if raw := r.URL.Query().Get("format"); raw != "" {
		f, err := render.ParseFormat(raw)
		if err != nil {
			writeFault(w, err)
			return
		}
		format = f
	}
	var buf bytes.Buffer
	if err := render.Write(&buf, format, result.Report); err != nil {
		writeFault(w, err)
		return
	}
	if format == render.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) (*workflows.ScanResult, bool) {
	if !s.requireQuerier(w) {
		return nil, false
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "scan id required")
		return nil, false
	}
	result, err := s.querier.GetScan(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return result, true
}

func (s *Server) requireQuerier(w http.ResponseWriter) bool {
	if s.querier == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history unavailable: no Temporal frontend configured")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
