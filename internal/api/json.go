package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/omni/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Hint  string `json:"hint,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorFrom reports err itself with its hint. Only used for client errors.
func errorFrom(err error) errResponse {
	return errResponse{Error: err.Error(), Hint: apperr.Hint(err)}
}
