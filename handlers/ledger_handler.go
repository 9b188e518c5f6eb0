// backend/handlers/ledger_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/models"
)

// LedgerHandler returns the ledger rows appended for one reporting date.
// GET /api/ledger?date=YYYY-MM-DD
func (h *AdminHandler) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		respondWithError(w, http.StatusNotImplemented, "Ledger rows can only be read back from the mysql ledger.", "")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required query parameter: 'date' (YYYY-MM-DD)", "")
		return
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date format '%s'. Use YYYY-MM-DD.", dateStr), "")
		return
	}

	ledgerDate := day.Format(models.LedgerDateLayout)
	rows, err := h.ledger.RowsForDate(r.Context(), ledgerDate)
	if err != nil {
		respondWithAppError(w, apperrors.Wrapf(err, apperrors.CodeDatabase, "failed to read ledger rows for %s", dateStr))
		return
	}
	if rows == nil {
		rows = []models.LedgerRecord{}
	}
	respondWithJSON(w, http.StatusOK, models.LedgerResponse{Date: ledgerDate, Rows: rows})
}
