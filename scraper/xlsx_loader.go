// backend/scraper/xlsx_loader.go
package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXLoader reads one day sheet of a schedule workbook as text rows.
type XLSXLoader struct{}

// NewXLSXLoader creates a loader for .xlsx schedule workbooks.
func NewXLSXLoader() *XLSXLoader {
	return &XLSXLoader{}
}

// LoadSheet returns the rows of sheet below the header block. skipRows rows of title/banner are
// dropped, then the column header row that follows them. Cells are returned as displayed text,
// trimmed; trailing empty cells are not padded.
func (l *XLSXLoader) LoadSheet(ctx context.Context, path, sheet string, skipRows int) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet '%s' not found in %s (sheets: %s)", sheet, path, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s' of %s: %w", sheet, path, err)
	}

	start := skipRows + 1
	if start > len(rows) {
		log.Printf("WARN Scraper: sheet '%s' of %s has only %d rows, nothing below the header block\n", sheet, path, len(rows))
		return [][]string{}, nil
	}

	data := make([][]string, 0, len(rows)-start)
	for _, row := range rows[start:] {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		data = append(data, cells)
	}

	log.Printf("Scraper: Loaded %d rows from sheet '%s' of %s\n", len(data), sheet, path)
	return data, nil
}

// DaySheetName is the sheet holding a given day-of-month's schedule ("05", "16", ...).
func DaySheetName(day int) string {
	return fmt.Sprintf("%02d", day)
}
