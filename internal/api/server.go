// Package api serves drift comparisons and scan state over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
)

// Server is the HTTP API server.
type Server struct {
	querier querier.ScanQuerier // nil when no Temporal frontend is configured
	runner  drift.Runner
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server. When oidcCfg is enabled the issuer is discovered
// immediately, so an unreachable issuer fails startup.
func New(q querier.ScanQuerier, runner drift.Runner, corsOrigins []string, oidcCfg OIDCConfig) (*Server, error) {
	if runner.Logger == nil {
		runner.Logger = slog.Default()
	}
	s := &Server{querier: q, runner: runner, mux: http.NewServeMux()}
	s.routes()

	var inner http.Handler = s.mux
	if oidcCfg.Enabled {
		provider, err := oidc.NewProvider(context.Background(), oidcCfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("api: oidc discovery: %w", err)
		}
		inner = oidcAuth(provider, oidcCfg.Audience)(inner)
	}
	s.handler = requestID(logging(cors(corsOrigins, inner)))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/compare", s.handleCompare)
	s.mux.HandleFunc("POST /api/v1/diff", s.handleDiff)
	s.mux.HandleFunc("GET /api/v1/scans", s.handleListScans)
	s.mux.HandleFunc("POST /api/v1/scans", s.handleStartScan)
	s.mux.HandleFunc("GET /api/v1/scans/{id}", s.handleGetScan)
	s.mux.HandleFunc("GET /api/v1/scans/{id}/report", s.handleGetScanReport)
}
