// backend/ledger/csv_sink.go
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/tvreport/backend/models"
)

// CSVSink appends ledger rows to a CSV file. The header is written only when the file is new or empty.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) AppendRows(ctx context.Context, rows []models.MergedRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s: %w", s.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ledger %s: %w", s.path, err)
	}

	records := make([]models.LedgerRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record())
	}

	w := csv.NewWriter(file)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = info.Size() == 0
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode ledger rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", s.path, err)
	}

	log.Printf("Service: Appended %d row(s) to CSV ledger %s\n", len(records), s.path)
	return nil
}
