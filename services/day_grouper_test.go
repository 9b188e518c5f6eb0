package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var targets = []string{"RCTI", "MNCTV", "GTV", "INEWS"}

func sheetRows() [][]string {
	return [][]string{
		{"RCTI", "1", "04:30", "05:00", "Kiss Pagi", "Infotainment: Gosip"},
		{"rcti ", "2", "23:30", "24:15", "Sinetron", "Drama"},
		{"RCTI", "3", "24:15", "25:00", "Sinema", "Film: Action"},
		{"TRANS7", "1", "05:00", "06:00", "Other", ""},
		{"GTV", "1", "", "06:00", "No start", ""},
		{"GTV", "2", "n/a", "06:00", "No digits", ""},
		{"INEWS", "1", "06:00"},
		{},
	}
}

func TestGroupRowsToday(t *testing.T) {
	g := GroupRows(sheetRows(), ModeToday, targets)

	require.Len(t, g, 4)
	require.Len(t, g["RCTI"], 2)
	assert.Equal(t, "04:30", g["RCTI"][0].StartTime)
	assert.Equal(t, "Infotainment: Gosip", g["RCTI"][0].Description)
	assert.Equal(t, "RCTI", g["RCTI"][1].Channel)
	assert.Equal(t, "23:30", g["RCTI"][1].StartTime)
	assert.Empty(t, g["GTV"])
	assert.Empty(t, g["MNCTV"])

	require.Len(t, g["INEWS"], 1, "short rows are padded, not dropped")
	assert.Equal(t, "", g["INEWS"][0].EndTime)
	assert.Equal(t, "", g["INEWS"][0].Program)
}

func TestGroupRowsYesterday(t *testing.T) {
	g := GroupRows(sheetRows(), ModeYesterday, targets)

	require.Len(t, g["RCTI"], 1)
	assert.Equal(t, "24:15", g["RCTI"][0].StartTime)
	assert.Equal(t, "Sinema", g["RCTI"][0].Program)
	assert.Empty(t, g["INEWS"])
}

func TestRolledOverRowOnlyInYesterdayMode(t *testing.T) {
	rows := [][]string{{"GTV", "", "24:15", "24:45", "Late Movie", ""}}

	assert.Empty(t, GroupRows(rows, ModeToday, targets)["GTV"])
	assert.Len(t, GroupRows(rows, ModeYesterday, targets)["GTV"], 1)
}

func TestGroupRowsUnknownMode(t *testing.T) {
	g := GroupRows(sheetRows(), GroupMode("tomorrow"), targets)
	for _, ch := range targets {
		assert.Empty(t, g[ch])
	}
}

func TestCombineDaysOrder(t *testing.T) {
	yesterdayRows := [][]string{{"RCTI", "", "24:30", "25:00", "Late", ""}}
	todayRows := [][]string{{"RCTI", "", "05:00", "06:00", "Morning", ""}}

	combined := CombineDays(
		GroupRows(yesterdayRows, ModeYesterday, targets),
		GroupRows(todayRows, ModeToday, targets),
		targets,
	)
	require.Len(t, combined["RCTI"], 2)
	assert.Equal(t, "Late", combined["RCTI"][0].Program)
	assert.Equal(t, "Morning", combined["RCTI"][1].Program)
	assert.NotNil(t, combined["GTV"])
	assert.Empty(t, combined["GTV"])
}

func TestGroupRowsOverlongStartCountsAsPastMidnight(t *testing.T) {
	rows := [][]string{{"GTV", "1", "24:00 99999999999999999999", "01:00", "Garbled", ""}}

	assert.Len(t, GroupRows(rows, ModeYesterday, targets)["GTV"], 1)
	assert.Empty(t, GroupRows(rows, ModeToday, targets)["GTV"])
}
