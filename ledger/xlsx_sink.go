// backend/ledger/xlsx_sink.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/tvreport/backend/models"
)

// Built-in excelize number formats: 3 is "#,##0", 4 is "#,##0.00".
const (
	thousandsNumFmt = 3
	decimalNumFmt   = 4
)

// XLSXSink appends ledger rows to one tab of the master workbook, starting at the first row after the
// last non-empty cell in column A.
type XLSXSink struct {
	path    string
	tabName string
	mu      sync.Mutex
}

func NewXLSXSink(path, tabName string) *XLSXSink {
	return &XLSXSink{path: path, tabName: tabName}
}

func (s *XLSXSink) AppendRows(ctx context.Context, rows []models.MergedRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(s.tabName); idx < 0 {
		log.Printf("Service: Ledger tab '%s' not found in %s, creating it.\n", s.tabName, s.path)
		if _, err := f.NewSheet(s.tabName); err != nil {
			return fmt.Errorf("failed to create ledger tab '%s': %w", s.tabName, err)
		}
		header := make([]interface{}, len(models.LedgerHeader))
		for i, h := range models.LedgerHeader {
			header[i] = h
		}
		if err := f.SetSheetRow(s.tabName, "A1", &header); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}

	start, err := nextFreeRow(f, s.tabName)
	if err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, start+i)
		values := ledgerValues(r)
		if err := f.SetSheetRow(s.tabName, cell, &values); err != nil {
			return fmt.Errorf("failed to write ledger row %d: %w", start+i, err)
		}
	}
	end := start + len(rows) - 1

	if err := s.applyStyles(f, start, end); err != nil {
		return err
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save ledger %s: %w", s.path, err)
	}
	log.Printf("Service: Appended %d row(s) to '%s' rows %d-%d\n", len(rows), s.tabName, start, end)
	return nil
}

func (s *XLSXSink) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open ledger %s: %w", s.path, err)
	}
	return excelize.NewFile(), nil
}

// ledgerDateNumFmt renders column B's date serial as DD/MM/YYYY.
var ledgerDateNumFmt = "dd/mm/yyyy"

// Column formats of an appended block, matching the master ledger's existing layout:
// everything right-aligned except A, E, J and K; "#,##0" on E to G and "#,##0.00" on H.
var ledgerColumnStyles = []struct {
	from, to string
	style    excelize.Style
}{
	{"A", "A", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}}},
	{"B", "B", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}, CustomNumFmt: &ledgerDateNumFmt}},
	{"C", "D", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}}},
	{"E", "E", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}, NumFmt: thousandsNumFmt}},
	{"F", "G", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}, NumFmt: thousandsNumFmt}},
	{"H", "H", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}, NumFmt: decimalNumFmt}},
	{"I", "I", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}}},
	{"J", "K", excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}}},
}

func (s *XLSXSink) applyStyles(f *excelize.File, start, end int) error {
	for _, cs := range ledgerColumnStyles {
		style := cs.style
		id, err := f.NewStyle(&style)
		if err != nil {
			return fmt.Errorf("failed to create ledger style for %s:%s: %w", cs.from, cs.to, err)
		}
		if err := f.SetCellStyle(s.tabName, fmt.Sprintf("%s%d", cs.from, start), fmt.Sprintf("%s%d", cs.to, end), id); err != nil {
			return fmt.Errorf("failed to style ledger columns %s:%s: %w", cs.from, cs.to, err)
		}
	}
	return nil
}

func nextFreeRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger tab '%s': %w", sheet, err)
	}
	last := 0
	for i, row := range rows {
		if len(row) > 0 && row[0] != "" {
			last = i + 1
		}
	}
	return last + 1, nil
}

// ledgerValues is the row in ledger column order. The date and the measures stay typed so the
// column number formats apply to them.
func ledgerValues(r models.MergedRow) []interface{} {
	rec := r.Record()
	values := make([]interface{}, 0, len(models.LedgerHeader))
	for _, c := range rec.Cells() {
		values = append(values, c)
	}
	values[1] = r.Date
	if r.Metrics != nil {
		values[5] = r.Metrics.Plays
		values[6] = r.Metrics.UniqueViewers
		values[7] = r.Metrics.ConcurrentViewers
		values[8] = r.Metrics.MinutesPerViewer
	}
	return values
}
