// backend/services/run_history.go
package services

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gewnthar/tvreport/backend/models"
)

// RunLister returns the most recent runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// MemoryRunHistory keeps run records in process memory. It is used when no database is configured,
// so "run if needed" only remembers runs made since the process started.
type MemoryRunHistory struct {
	mu   sync.RWMutex
	runs []models.RunRecord
	// Reporting dates ("2006-01-02") that have a successful run.
	lastSucceeded map[string]int
}

func NewMemoryRunHistory() *MemoryRunHistory {
	log.Println("Service: Run history is held in memory; it will not survive a restart.")
	return &MemoryRunHistory{lastSucceeded: make(map[string]int)}
}

func (h *MemoryRunHistory) LastSuccessful(ctx context.Context, reportDate time.Time) (*models.RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	idx, ok := h.lastSucceeded[reportDate.Format("2006-01-02")]
	if !ok {
		return nil, nil
	}
	rec := h.runs[idx]
	return &rec, nil
}

func (h *MemoryRunHistory) SaveRun(ctx context.Context, run models.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	run.ID = int64(len(h.runs) + 1)
	h.runs = append(h.runs, run)
	if run.Status == models.RunStatusSucceeded {
		h.lastSucceeded[run.ReportDate.Format("2006-01-02")] = len(h.runs) - 1
	}
	return nil
}

func (h *MemoryRunHistory) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.RunRecord, len(h.runs))
	copy(out, h.runs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
