package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/services"
)

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1,000", formatCount(1000))
	assert.Equal(t, "1,234,568", formatCount(1234567.6))
	assert.Equal(t, "-12,000", formatCount(-12000))
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary([]services.ChannelSummary{
		{Channel: "RCTI", Rows: 40, MatchedRows: 38, TotalPlays: 125000, MeanMinutesPerViewer: 3.456},
	})
	assert.Contains(t, out, "RCTI")
	assert.Contains(t, out, "125,000")
	assert.Contains(t, out, "3.46")
	assert.Contains(t, out, "Avg Min/UD")
	assert.NotContains(t, out, "Total")
}

func TestRenderSummaryTotals(t *testing.T) {
	out := renderSummary([]services.ChannelSummary{
		{Channel: "RCTI", Rows: 40, MatchedRows: 38, TotalPlays: 125000, PeakConcurrentViewers: 900},
		{Channel: "MNCTV", Rows: 10, MatchedRows: 9, TotalPlays: 1500, PeakConcurrentViewers: 1200},
	})
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "126,500")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "47")
}

func TestColorStatus(t *testing.T) {
	assert.Equal(t, "failed", colorStatus("failed", false))
	assert.Contains(t, colorStatus("failed", true), "failed")
	assert.False(t, shouldColorize(&bytes.Buffer{}))
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil, nil))
}

func TestRunsCommandWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := strings.Join([]string{
		"source:",
		"  kind: directory",
		"  directory: " + dir,
		"exchange:",
		"  workbook_path: " + filepath.Join(dir, "exchange.xlsx"),
		"ledger:",
		"  kind: csv",
		"  path: " + filepath.Join(dir, "ledger.csv"),
		"pipeline:",
		"  lock_file: " + filepath.Join(dir, "tvreport.lock"),
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "runs"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No runs recorded.")
}

func TestRunCommandReportsMissingDataset(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := strings.Join([]string{
		"source:",
		"  kind: directory",
		"  directory: " + dir,
		"exchange:",
		"  workbook_path: " + filepath.Join(dir, "exchange.xlsx"),
		"ledger:",
		"  kind: csv",
		"  path: " + filepath.Join(dir, "ledger.csv"),
		"pipeline:",
		"  lock_file: " + filepath.Join(dir, "tvreport.lock"),
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "run", "--dry-run"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schedule workbooks available")
}

func TestRunCommandInvalidConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "run"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
	assert.Contains(t, err.Error(), "error loading configuration")
}
