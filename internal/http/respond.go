package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackday/teamportal/internal/service/redirect"
	"github.com/hackday/teamportal/internal/service/submission"
	"github.com/hackday/teamportal/internal/service/team"
)

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps well-known service errors to HTTP statuses;
// anything unrecognized is treated as a bad request.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, team.ErrNotFound), errors.Is(err, redirect.ErrKeywordNotFound):
		return http.StatusNotFound
	case errors.Is(err, redirect.ErrKeywordTaken):
		return http.StatusConflict
	case errors.Is(err, redirect.ErrQuotaExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, submission.ErrAttachmentTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}
