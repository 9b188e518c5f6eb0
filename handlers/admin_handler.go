// backend/handlers/admin_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/services"
)

// PipelineRunner is the part of services.Pipeline the admin API drives.
type PipelineRunner interface {
	Run(ctx context.Context, opts services.RunOptions) (*services.RunResult, error)
}

// LedgerReader reads back appended ledger rows; only the database ledger supports it.
type LedgerReader interface {
	RowsForDate(ctx context.Context, ledgerDate string) ([]models.LedgerRecord, error)
}

// AdminHandler serves the pipeline admin endpoints.
type AdminHandler struct {
	pipeline PipelineRunner
	runs     services.RunLister
	ledger   LedgerReader                    // nil unless the ledger lives in the database
	ping     func(ctx context.Context) error // Optional database health check
}

func NewAdminHandler(pipeline PipelineRunner, runs services.RunLister, ledger LedgerReader, ping func(ctx context.Context) error) *AdminHandler {
	return &AdminHandler{pipeline: pipeline, runs: runs, ledger: ledger, ping: ping}
}

// RunResponse is returned by the run endpoints.
type RunResponse struct {
	*services.RunResult
	Summary []services.ChannelSummary `json:"summary"`
}

// PreviewChannel carries one channel's merged rows in ledger form.
type PreviewChannel struct {
	Channel     string                `json:"channel"`
	MatchedRows int                   `json:"matched_rows"`
	Rows        []models.LedgerRecord `json:"rows"`
}

type PreviewResponse struct {
	RunResponse
	Channels []PreviewChannel `json:"channels"`
}

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR Handler: Marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message, errCode string) {
	log.Printf("API Error %d: %s", code, message)
	respondWithJSON(w, code, models.ErrorResponse{Error: message, Code: errCode})
}

// respondWithAppError maps a failure kind to its HTTP status.
func respondWithAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.CodeBusy):
		status = http.StatusConflict
	case apperrors.IsInputShape(err):
		status = http.StatusUnprocessableEntity
	case code == apperrors.CodeExternalService:
		status = http.StatusBadGateway
	}
	respondWithError(w, status, err.Error(), code)
}

// HealthHandler reports whether the service, and its database when one is configured, is reachable.
func (h *AdminHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			log.Printf("Health check failed: DB ping error: %v", err)
			respondWithJSON(w, http.StatusInternalServerError, models.HealthResponse{Status: "error", Message: "database connection error"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Message: "tvreport backend is healthy"})
}

// RunHandler runs the pipeline unconditionally.
// POST /api/admin/run
func (h *AdminHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, services.RunOptions{Force: true})
}

// RunIfNeededHandler runs the pipeline unless the reporting date already has a successful run.
// POST /api/admin/run-if-needed
func (h *AdminHandler) RunIfNeededHandler(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, services.RunOptions{})
}

func (h *AdminHandler) run(w http.ResponseWriter, r *http.Request, opts services.RunOptions) {
	log.Printf("Handler: Pipeline run requested (force=%t)\n", opts.Force)
	result, err := h.pipeline.Run(r.Context(), opts)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, RunResponse{RunResult: result, Summary: services.SummarizeRun(result)})
}

// PreviewHandler merges today's schedule against the metrics currently on the exchange without
// publishing, triggering or writing anything, and returns the rows the ledger would receive.
// POST /api/admin/preview
func (h *AdminHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Run(r.Context(), services.RunOptions{DryRun: true})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	channels := make([]PreviewChannel, 0, len(result.Batches))
	for _, b := range result.Batches {
		pc := PreviewChannel{Channel: b.Channel, MatchedRows: b.MatchedRows, Rows: make([]models.LedgerRecord, 0, len(b.Rows))}
		for _, row := range b.Rows {
			pc.Rows = append(pc.Rows, row.Record())
		}
		channels = append(channels, pc)
	}
	respondWithJSON(w, http.StatusOK, PreviewResponse{
		RunResponse: RunResponse{RunResult: result, Summary: services.SummarizeRun(result)},
		Channels:    channels,
	})
}
