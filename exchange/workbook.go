// backend/exchange/workbook.go
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/tvreport/backend/config"
	"github.com/gewnthar/tvreport/backend/models"
)

// metricsColumns is the width of the output table: start, end and the four measures.
const metricsColumns = 6

// Workbook is the spreadsheet shared with the analytics job. Each channel has an input sheet the
// pipeline fills with time windows and an output sheet the job fills with metrics.
type Workbook struct {
	cfg *config.Config
	mu  sync.Mutex
}

func NewWorkbook(cfg *config.Config) *Workbook {
	return &Workbook{cfg: cfg}
}

// PublishWindows replaces the rows under the header of the channel's input sheet (columns A to D)
// with one row per window: date, date, start, end. An empty window list leaves the sheet untouched.
func (w *Workbook) PublishWindows(ctx context.Context, channel string, windows []models.TimeWindow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sheet := w.cfg.InputSheet(channel)
	if len(windows) == 0 {
		log.Printf("Service: No publishable time windows for %s, leaving '%s' as is.\n", channel, sheet)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet '%s': %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Start Date", "End Date", "Start Time", "End Time"}); err != nil {
			return fmt.Errorf("failed to write header of '%s': %w", sheet, err)
		}
	}

	if err := clearBelowHeader(f, sheet, "A", "D"); err != nil {
		return err
	}

	for i, win := range windows {
		day := win.Date.Format("2006-01-02")
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{day, day, win.Start, win.End}); err != nil {
			return fmt.Errorf("failed to write row %d of '%s': %w", i+2, sheet, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return fmt.Errorf("failed to create window style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("D%d", len(windows)+1), style); err != nil {
		return fmt.Errorf("failed to style '%s': %w", sheet, err)
	}

	if err := f.SaveAs(w.cfg.Exchange.WorkbookPath); err != nil {
		return fmt.Errorf("failed to save exchange workbook %s: %w", w.cfg.Exchange.WorkbookPath, err)
	}
	return nil
}

// FetchMetrics returns the channel's output table: from row 2 onward, six columns starting at the
// configured first column. A missing output sheet yields an empty table.
func (w *Workbook) FetchMetrics(ctx context.Context, channel string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheet := w.cfg.OutputSheet(channel)

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.cfg.Exchange.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange workbook %s: %w", w.cfg.Exchange.WorkbookPath, err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		log.Printf("WARN Service: Output sheet '%s' not found, no metrics for %s.\n", sheet, channel)
		return [][]string{}, nil
	}

	first, err := excelize.ColumnNameToNumber(w.cfg.Exchange.OutputFirstColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid output first column '%s': %w", w.cfg.Exchange.OutputFirstColumn, err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
	}
	if len(rows) <= 1 {
		return [][]string{}, nil
	}

	table := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		table = append(table, window(row, first-1, metricsColumns))
	}
	return table, nil
}

func (w *Workbook) openOrCreate() (*excelize.File, error) {
	path := w.cfg.Exchange.WorkbookPath
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open exchange workbook %s: %w", path, err)
	}
	log.Printf("Service: Exchange workbook %s does not exist yet, creating it.\n", path)
	return excelize.NewFile(), nil
}

// clearBelowHeader blanks columns fromCol..toCol on every used row after the first.
func clearBelowHeader(f *excelize.File, sheet, fromCol, toCol string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
	}
	from, _ := excelize.ColumnNameToNumber(fromCol)
	to, _ := excelize.ColumnNameToNumber(toCol)
	for r := 2; r <= len(rows); r++ {
		for c := from; c <= to; c++ {
			cell, _ := excelize.CoordinatesToCellName(c, r)
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return fmt.Errorf("failed to clear %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// window returns up to width cells of row starting at offset. Short rows give a short slice.
func window(row []string, offset, width int) []string {
	if offset >= len(row) {
		return []string{}
	}
	end := offset + width
	if end > len(row) {
		end = len(row)
	}
	out := make([]string, end-offset)
	copy(out, row[offset:end])
	return out
}
