package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/tvreport/backend/models"
)

func mergedRow(channel, start, end, prog string, metrics *models.MetricRecord) models.MergedRow {
	return models.MergedRow{
		NormalizedRow: models.NormalizedRow{
			Channel:      channel,
			Date:         time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC),
			StartTime:    start,
			EndTime:      end,
			Program:      prog,
			GenrePrimary: "News",
		},
		Metrics: metrics,
	}
}

func TestCSVSinkAppendsWithSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	require.NoError(t, sink.AppendRows(ctx, []models.MergedRow{
		mergedRow("RCTI", "06:00", "07:00", "NEWS", &models.MetricRecord{Plays: 1200, UniqueViewers: 300, ConcurrentViewers: 25, MinutesPerViewer: 3.5}),
	}))
	require.NoError(t, sink.AppendRows(ctx, []models.MergedRow{
		mergedRow("GTV", "08:00", "09:00", "Cartoon", nil),
		mergedRow("GTV", "09:00", "10:00", "Movie", nil),
	}))
	require.NoError(t, sink.AppendRows(ctx, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []models.LedgerRecord
	require.NoError(t, csvutil.Unmarshal(data, &records))
	require.Len(t, records, 3)
	assert.Equal(t, "RCTI", records[0].Channel)
	assert.Equal(t, "16/03/2025", records[0].Date)
	assert.Equal(t, "1200", records[0].Plays)
	assert.Equal(t, "3.5", records[0].MinutesPerViewer)
	assert.Equal(t, "Cartoon", records[1].Program)
	assert.Empty(t, records[1].Plays)
	assert.Equal(t, "Movie", records[2].Program)
}

func TestXLSXSinkAppendsAtNextFreeRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.xlsx")
	sink := NewXLSXSink(path, "ALL TV GDS ARRAZ")
	ctx := context.Background()

	require.NoError(t, sink.AppendRows(ctx, []models.MergedRow{
		mergedRow("RCTI", "06:00", "07:00", "NEWS", &models.MetricRecord{Plays: 1200, UniqueViewers: 300, ConcurrentViewers: 25, MinutesPerViewer: 3.5}),
		mergedRow("RCTI", "07:00", "08:00", "Talk", nil),
	}))
	require.NoError(t, sink.AppendRows(ctx, []models.MergedRow{
		mergedRow("GTV", "08:00", "09:00", "Cartoon", nil),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ALL TV GDS ARRAZ")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, models.LedgerHeader, rows[0])
	assert.Equal(t, "RCTI", rows[1][0])
	assert.Equal(t, "16/03/2025", rows[1][1])
	assert.Equal(t, "NEWS", rows[1][4])
	assert.Equal(t, "Talk", rows[2][4])
	assert.Equal(t, "GTV", rows[3][0])

	raw, err := f.GetCellValue("ALL TV GDS ARRAZ", "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1200", raw)
	mpv, err := f.GetCellValue("ALL TV GDS ARRAZ", "I2")
	require.NoError(t, err)
	assert.Equal(t, "3.5", mpv)
}

func TestXLSXSinkColumnFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.xlsx")
	tab := "ALL TV GDS ARRAZ"
	require.NoError(t, NewXLSXSink(path, tab).AppendRows(context.Background(), []models.MergedRow{
		mergedRow("RCTI", "06:00", "07:00", "NEWS", &models.MetricRecord{Plays: 1234567, UniqueViewers: 300, ConcurrentViewers: 2500, MinutesPerViewer: 3.5}),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	date, err := f.GetCellValue(tab, "B2")
	require.NoError(t, err)
	assert.Equal(t, "16/03/2025", date)
	plays, err := f.GetCellValue(tab, "F2")
	require.NoError(t, err)
	assert.Equal(t, "1,234,567", plays)
	ccu, err := f.GetCellValue(tab, "H2")
	require.NoError(t, err)
	assert.Equal(t, "2,500.00", ccu)

	alignments := map[string]string{"A2": "left", "B2": "right", "E2": "left", "F2": "right", "K2": "left"}
	for cell, want := range alignments {
		id, err := f.GetCellStyle(tab, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		require.NotNil(t, style.Alignment, cell)
		assert.Equal(t, want, style.Alignment.Horizontal, cell)
	}
}

func TestNextFreeRowIgnoresTrailingBlankRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Channel"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "RCTI"))
	require.NoError(t, f.SetCellValue("Sheet1", "C5", "stray note"))

	next, err := nextFreeRow(f, "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}
