package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/config"
	"github.com/gewnthar/tvreport/backend/models"
)

type fakeSource struct {
	files []models.DatasetFile
	err   error
}

func (s *fakeSource) ListDatasets(ctx context.Context) ([]models.DatasetFile, error) {
	return s.files, s.err
}

func (s *fakeSource) Open(ctx context.Context, file models.DatasetFile) (string, error) {
	return file.ID, nil
}

// fakeLoader serves sheets keyed by "path#sheet".
type fakeLoader struct {
	sheets map[string][][]string
	calls  int
}

func (l *fakeLoader) LoadSheet(ctx context.Context, path, sheet string, skipRows int) ([][]string, error) {
	l.calls++
	rows, ok := l.sheets[path+"#"+sheet]
	if !ok {
		return nil, fmt.Errorf("sheet '%s' not found", sheet)
	}
	return rows, nil
}

type fakeFetcher struct {
	tables map[string][][]string
}

func (f *fakeFetcher) FetchMetrics(ctx context.Context, channel string) ([][]string, error) {
	return f.tables[channel], nil
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishWindows(ctx context.Context, channel string, windows []models.TimeWindow) error {
	args := m.Called(ctx, channel, windows)
	return args.Error(0)
}

type mockTrigger struct{ mock.Mock }

func (m *mockTrigger) Trigger(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordingSink struct {
	batches [][]models.MergedRow
	failOn  int // 1-based call number that fails; 0 never fails
}

func (s *recordingSink) AppendRows(ctx context.Context, rows []models.MergedRow) error {
	if s.failOn == len(s.batches)+1 {
		return errors.New("ledger is read-only")
	}
	s.batches = append(s.batches, rows)
	return nil
}

type pipelineFixture struct {
	cfg       *config.Config
	source    *fakeSource
	loader    *fakeLoader
	fetcher   *fakeFetcher
	publisher *mockPublisher
	trigger   *mockTrigger
	sink      *recordingSink
	history   *MemoryRunHistory
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	base := time.Date(2025, time.March, 16, 7, 0, 0, 0, time.UTC)
	return &pipelineFixture{
		cfg: &config.Config{
			Source:   config.SourceConfig{SkipRows: 3},
			Channels: config.ChannelsConfig{Targets: []string{"RCTI", "MNCTV", "GTV", "INEWS"}},
			Pipeline: config.PipelineConfig{
				ChannelConcurrency: 2,
				LockFile:           filepath.Join(t.TempDir(), "tvreport.lock"),
			},
		},
		source: &fakeSource{files: []models.DatasetFile{
			{ID: "/data/today.xlsx", Label: "JADWAL 16 MAR 2025.xlsx", ModifiedAt: base},
			{ID: "/data/yesterday.xlsx", Label: "JADWAL 15 MAR 2025.xlsx", ModifiedAt: base.Add(-24 * time.Hour)},
		}},
		loader: &fakeLoader{sheets: map[string][][]string{
			"/data/today.xlsx#16": {
				{"RCTI", "", "06:00", "07:00", "NEWS", "News"},
				{"GTV", "", "08:00", "09:00", "Cartoon", "Kids: Animation"},
				{"MNCTV", "", "24:30", "25:00", "Belongs to tomorrow", ""},
			},
			"/data/yesterday.xlsx#15": {
				{"RCTI", "", "22:00", "23:00", "Prime", "Drama"},
				{"RCTI", "", "24:15", "25:00", "Late Movie", "Film: Horror"},
			},
		}},
		fetcher: &fakeFetcher{tables: map[string][][]string{
			"RCTI": {{"0015", "0100", "1,000", "500", "20", "3,5"}},
		}},
		publisher: &mockPublisher{},
		trigger:   &mockTrigger{},
		sink:      &recordingSink{},
		history:   NewMemoryRunHistory(),
	}
}

func (f *pipelineFixture) pipeline() *Pipeline {
	return NewPipeline(f.cfg, Collaborators{
		Source:    f.source,
		Loader:    f.loader,
		Publisher: f.publisher,
		Trigger:   f.trigger,
		Fetcher:   f.fetcher,
		Sink:      f.sink,
		History:   f.history,
	})
}

func (f *pipelineFixture) expectPublishAndTrigger() {
	f.publisher.On("PublishWindows", mock.Anything, "RCTI", mock.MatchedBy(func(w []models.TimeWindow) bool { return len(w) == 2 })).Return(nil).Once()
	f.publisher.On("PublishWindows", mock.Anything, "GTV", mock.MatchedBy(func(w []models.TimeWindow) bool { return len(w) == 1 })).Return(nil).Once()
	f.trigger.On("Trigger", mock.Anything).Return(nil).Once()
}

func TestPipelineRunEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)
	f.expectPublishAndTrigger()

	result, err := f.pipeline().Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	f.publisher.AssertExpectations(t)
	f.trigger.AssertExpectations(t)

	reportDate := time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, reportDate, result.ReportDate)
	assert.Equal(t, "JADWAL 15 MAR 2025.xlsx", result.YesterdayFile)
	assert.False(t, result.Skipped)

	require.Len(t, result.Batches, 2)
	assert.Equal(t, "RCTI", result.Batches[0].Channel)
	assert.Equal(t, "GTV", result.Batches[1].Channel)
	assert.Equal(t, 1, result.MatchedRows)
	assert.Equal(t, 3, result.RowsWritten)
	assert.Equal(t, 2, result.ChannelsWritten)

	require.Len(t, f.sink.batches, 2)
	rcti := f.sink.batches[0]
	require.Len(t, rcti, 2)
	assert.Equal(t, "Late Movie", rcti[0].Program)
	assert.Equal(t, "00:15", rcti[0].StartTime)
	require.NotNil(t, rcti[0].Metrics)
	assert.Equal(t, 1000.0, rcti[0].Metrics.Plays)
	assert.Equal(t, 3.5, rcti[0].Metrics.MinutesPerViewer)
	assert.Equal(t, "NEWS", rcti[1].Program)
	assert.Nil(t, rcti[1].Metrics)
	assert.Equal(t, []string{"RCTI", "16/03/2025", "00:15", "01:00", "Late Movie", "1000", "500", "20", "3.5", "Film", "Horror"},
		rcti[0].Record().Cells())

	gtv := f.sink.batches[1]
	require.Len(t, gtv, 1)
	assert.Equal(t, "GTV", gtv[0].Channel)
	assert.Equal(t, "Kids", gtv[0].GenrePrimary)

	prev, err := f.history.LastSuccessful(context.Background(), reportDate)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, result.RunID, prev.RunID)
	assert.Equal(t, 3, prev.RowsWritten)
}

func TestPipelineRunInputShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		files []models.DatasetFile
		code  string
	}{
		{"no files", nil, apperrors.CodeNoDataset},
		{"bad filename", []models.DatasetFile{{ID: "a", Label: "schedule-final.xlsx"}}, apperrors.CodeBadFilename},
		{"missing prior day", []models.DatasetFile{{ID: "a", Label: "JADWAL 16 MAR 2025.xlsx"}}, apperrors.CodeMissingPriorDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.source.files = tt.files

			_, err := f.pipeline().Run(context.Background(), RunOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.True(t, apperrors.IsInputShape(err))
			assert.Zero(t, f.loader.calls)
			assert.Empty(t, f.sink.batches)
		})
	}
}

func TestPipelineRunTodayFileCoveringBothDays(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.files = []models.DatasetFile{{ID: "/data/both.xlsx", Label: "JADWAL 15-16 MAR 2025.xlsx"}}
	f.loader.sheets = map[string][][]string{
		"/data/both.xlsx#16": {{"GTV", "", "08:00", "09:00", "Cartoon", ""}},
		"/data/both.xlsx#15": {},
	}
	f.publisher.On("PublishWindows", mock.Anything, "GTV", mock.Anything).Return(nil).Once()
	f.trigger.On("Trigger", mock.Anything).Return(nil).Once()

	result, err := f.pipeline().Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "JADWAL 15-16 MAR 2025.xlsx", result.YesterdayFile)
	require.Len(t, result.Batches, 1)
}

func TestPipelineRunLoadError(t *testing.T) {
	f := newPipelineFixture(t)
	delete(f.loader.sheets, "/data/yesterday.xlsx#15")

	_, err := f.pipeline().Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeLoad, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "sheet '15' not found")
	f.publisher.AssertNotCalled(t, "PublishWindows", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineRunTriggerFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.publisher.On("PublishWindows", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.trigger.On("Trigger", mock.Anything).Return(errors.New("login rejected")).Once()

	_, err := f.pipeline().Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	assert.Empty(t, f.sink.batches)
}

func TestPipelineRunSinkFailureKeepsEarlierBatches(t *testing.T) {
	f := newPipelineFixture(t)
	f.expectPublishAndTrigger()
	f.sink.failOn = 2

	result, err := f.pipeline().Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSink, apperrors.GetCode(err))
	require.NotNil(t, result)
	assert.Equal(t, 2, result.RowsWritten)
	assert.Equal(t, 1, result.ChannelsWritten)
	require.Len(t, f.sink.batches, 1)

	runs, err := f.history.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	assert.Equal(t, apperrors.CodeSink, runs[0].ErrorCode)
}

func TestPipelineRunSkipsProcessedDate(t *testing.T) {
	f := newPipelineFixture(t)
	f.expectPublishAndTrigger()
	p := f.pipeline()

	_, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	loads := f.loader.calls

	result, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, loads, f.loader.calls, "a skipped run loads nothing")
	assert.Len(t, f.sink.batches, 2)

	f.expectPublishAndTrigger()
	result, err = p.Run(context.Background(), RunOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Len(t, f.sink.batches, 4)
}

func TestPipelineRunEmptyScheduleStaysEligible(t *testing.T) {
	f := newPipelineFixture(t)
	filled := f.loader.sheets
	f.loader.sheets = map[string][][]string{
		"/data/today.xlsx#16":     {},
		"/data/yesterday.xlsx#15": {},
	}
	p := f.pipeline()

	result, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Empty(t, result.Batches)
	assert.Zero(t, result.RowsWritten)

	runs, err := f.history.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusEmpty, runs[0].Status)

	f.loader.sheets = filled
	f.expectPublishAndTrigger()
	result, err = p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.False(t, result.Empty)
	assert.Equal(t, 3, result.RowsWritten)
	assert.Len(t, f.sink.batches, 2)
}

func TestPipelineDryRunWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)

	result, err := f.pipeline().Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	require.Len(t, result.Batches, 2)
	assert.Equal(t, 1, result.MatchedRows)
	assert.Zero(t, result.RowsWritten)

	f.publisher.AssertNotCalled(t, "PublishWindows", mock.Anything, mock.Anything, mock.Anything)
	f.trigger.AssertNotCalled(t, "Trigger", mock.Anything)
	assert.Empty(t, f.sink.batches)

	runs, err := f.history.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPipelineRunBusyWhenLockHeld(t *testing.T) {
	f := newPipelineFixture(t)
	other := flock.New(f.cfg.Pipeline.LockFile)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	_, err = f.pipeline().Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBusy, apperrors.GetCode(err))
	assert.Zero(t, f.loader.calls)
}

func TestSummarizeRun(t *testing.T) {
	result := &RunResult{Batches: []ChannelBatch{
		{Channel: "RCTI", MatchedRows: 2, Rows: []models.MergedRow{
			{Metrics: &models.MetricRecord{Plays: 100, UniqueViewers: 10, ConcurrentViewers: 4, MinutesPerViewer: 2}},
			{Metrics: &models.MetricRecord{Plays: 50, UniqueViewers: 5, ConcurrentViewers: 9, MinutesPerViewer: 4}},
			{},
		}},
		{Channel: "GTV", Rows: []models.MergedRow{{}}},
	}}

	s := SummarizeRun(result)
	require.Len(t, s, 2)
	assert.Equal(t, 3, s[0].Rows)
	assert.Equal(t, 150.0, s[0].TotalPlays)
	assert.Equal(t, 15.0, s[0].TotalUniqueViewers)
	assert.Equal(t, 9.0, s[0].PeakConcurrentViewers)
	assert.Equal(t, 3.0, s[0].MeanMinutesPerViewer)
	assert.Zero(t, s[1].TotalPlays)
	assert.Nil(t, SummarizeRun(nil))
}

func TestMemoryRunHistory(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryRunHistory()
	day := time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, time.March, 16, 7, 0, 0, 0, time.UTC)

	require.NoError(t, h.SaveRun(ctx, models.RunRecord{RunID: "a", ReportDate: day, Status: models.RunStatusFailed, StartedAt: start}))
	prev, err := h.LastSuccessful(ctx, day)
	require.NoError(t, err)
	assert.Nil(t, prev)

	require.NoError(t, h.SaveRun(ctx, models.RunRecord{RunID: "b", ReportDate: day, Status: models.RunStatusSucceeded, StartedAt: start.Add(time.Minute)}))
	prev, err = h.LastSuccessful(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "b", prev.RunID)

	runs, err := h.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].RunID)
}
