package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/validate"
)

// maxBodyBytes bounds JSON request bodies; backup imports get the larger
// limit enforced by validate.BackupPayload.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps a store error onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConstraint),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as {"error": "..."}. Client errors carry the
// store's message; anything else is logged and reported as internal.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status != http.StatusInternalServerError {
		writeJSON(w, status, errorBody(err.Error()))
		return
	}
	var cascade *codex.CascadeError
	if errors.As(err, &cascade) {
		h.logger.Error(op+" failed",
			slog.String("step", cascade.Step), slog.String("error", err.Error()))
		writeJSON(w, status, map[string]any{"error": err.Error(), "report": cascade.Report})
		return
	}
	h.logger.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, status, errorBody("internal error"))
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 response
// itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// readPayload reads a raw JSON document such as a backup.
func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxBackupSize+1)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return nil, false
	}
	return data, true
}
