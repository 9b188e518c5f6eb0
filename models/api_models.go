// backend/models/api_models.go
package models

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // Failure kind, e.g. "BUSY" or "NO_DATASET"
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RunsResponse is returned by GET /api/runs.
type RunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

// LedgerResponse is returned by GET /api/ledger.
type LedgerResponse struct {
	Date string         `json:"date"`
	Rows []LedgerRecord `json:"rows"`
}
