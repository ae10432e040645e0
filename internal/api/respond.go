package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/temporal/querier"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	var typed *faults.Error
	if errors.As(err, &typed) {
		switch typed.Category {
		case faults.ConfigError, faults.ParseError:
			return http.StatusBadRequest
		case faults.FatalInputError:
			return http.StatusNotFound
		}
	}
	if errors.Is(err, querier.ErrInvalidScan) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeFault(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
