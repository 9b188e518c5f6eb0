// backend/handlers/runs_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/models"
)

const defaultRunsLimit = 20

// ListRunsHandler returns recent pipeline runs, newest first.
// GET /api/runs?limit=N
func (h *AdminHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'limit' value '%s'. Use a positive integer.", v), "")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to list runs"))
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	respondWithJSON(w, http.StatusOK, models.RunsResponse{Runs: runs})
}
