// backend/services/pipeline_service.go
package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/config"
	"github.com/gewnthar/tvreport/backend/models"
	"github.com/gewnthar/tvreport/backend/scraper"
)

// DatasetSource lists the daily schedule workbooks and makes one available as a local file.
type DatasetSource interface {
	ListDatasets(ctx context.Context) ([]models.DatasetFile, error)
	Open(ctx context.Context, file models.DatasetFile) (string, error)
}

// TableLoader reads one sheet of a workbook as rows of trimmed text cells.
type TableLoader interface {
	LoadSheet(ctx context.Context, path, sheet string, skipRows int) ([][]string, error)
}

// WindowPublisher hands a channel's time windows to the analytics job.
type WindowPublisher interface {
	PublishWindows(ctx context.Context, channel string, windows []models.TimeWindow) error
}

// JobTrigger starts the analytics job and returns once its results can be read.
type JobTrigger interface {
	Trigger(ctx context.Context) error
}

// MetricsFetcher reads the raw metrics table the analytics job produced for a channel.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, channel string) ([][]string, error)
}

// LedgerSink appends one channel's merged rows to the master ledger.
type LedgerSink interface {
	AppendRows(ctx context.Context, rows []models.MergedRow) error
}

// RunHistory remembers past runs so a reporting date is not written twice.
type RunHistory interface {
	LastSuccessful(ctx context.Context, reportDate time.Time) (*models.RunRecord, error)
	SaveRun(ctx context.Context, run models.RunRecord) error
}

// Collaborators groups the pipeline's external dependencies. History may be nil.
type Collaborators struct {
	Source    DatasetSource
	Loader    TableLoader
	Publisher WindowPublisher
	Trigger   JobTrigger
	Fetcher   MetricsFetcher
	Sink      LedgerSink
	History   RunHistory
}

type RunOptions struct {
	Force  bool // Run even if the reporting date already has a successful run
	DryRun bool // Merge against the metrics already on the exchange; publish, trigger and write nothing
}

// ChannelBatch is one channel's contribution to a run.
type ChannelBatch struct {
	Channel     string             `json:"channel"`
	Windows     int                `json:"windows"`
	MatchedRows int                `json:"matched_rows"`
	Rows        []models.MergedRow `json:"-"`
}

type RunResult struct {
	RunID         string         `json:"run_id"`
	ReportDate    time.Time      `json:"report_date"`
	TodayFile     string         `json:"today_file"`
	YesterdayFile string         `json:"yesterday_file"`
	Skipped       bool           `json:"skipped"`
	Empty         bool           `json:"empty"`
	DryRun        bool           `json:"dry_run"`
	Batches       []ChannelBatch `json:"batches"`
	MatchedRows   int            `json:"matched_rows"`

	ChannelsWritten int `json:"channels_written"`
	RowsWritten     int `json:"rows_written"`
}

// Pipeline produces one reporting day's ledger rows from the schedule workbooks.
type Pipeline struct {
	cfg *config.Config
	Collaborators
	now func() time.Time
}

func NewPipeline(cfg *config.Config, c Collaborators) *Pipeline {
	return &Pipeline{cfg: cfg, Collaborators: c, now: time.Now}
}

// Run executes the pipeline once. Only one run may hold the lock file at a time.
// On a sink failure the returned result still describes the batches written before it.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	lock := flock.New(p.cfg.Pipeline.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInternal, "failed to acquire run lock %s", p.cfg.Pipeline.LockFile)
	}
	if !locked {
		return nil, apperrors.New(apperrors.CodeBusy, "another pipeline run is in progress")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("WARN Service: Failed to release run lock: %v\n", err)
		}
	}()

	result := &RunResult{RunID: uuid.NewString(), DryRun: opts.DryRun}
	startedAt := p.now()
	log.Printf("Service: Starting pipeline run %s (force=%t, dry_run=%t)\n", result.RunID, opts.Force, opts.DryRun)

	runErr := p.run(ctx, opts, result)
	if runErr != nil {
		log.Printf("ERROR Service: Pipeline run %s failed [%s]: %v\n", result.RunID, apperrors.GetCode(runErr), runErr)
	} else if result.Empty {
		log.Printf("WARN Service: Pipeline run %s produced no rows for %s.\n", result.RunID, result.ReportDate.Format("2006-01-02"))
	} else if result.Skipped {
		log.Printf("Service: Pipeline run %s skipped, %s was already processed.\n", result.RunID, result.ReportDate.Format("2006-01-02"))
	} else {
		log.Printf("Service: Pipeline run %s finished: %d channel(s), %d row(s), %d matched.\n",
			result.RunID, len(result.Batches), result.RowsWritten, result.MatchedRows)
	}

	if !opts.DryRun {
		p.recordRun(ctx, result, startedAt, runErr)
	}
	return result, runErr
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, result *RunResult) error {
	todayFile, yesterdayFile, today, err := p.selectDatasets(ctx)
	if err != nil {
		return err
	}
	yesterday := today.AddDate(0, 0, -1)
	result.ReportDate = today
	result.TodayFile = todayFile.Label
	result.YesterdayFile = yesterdayFile.Label
	log.Printf("Service: Reporting date %s, today's file '%s', yesterday's file '%s'.\n",
		today.Format("2006-01-02"), todayFile.Label, yesterdayFile.Label)

	if p.History != nil && !opts.Force && !opts.DryRun {
		prev, err := p.History.LastSuccessful(ctx, today)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabase, "failed to check run history")
		}
		if prev != nil {
			result.Skipped = true
			return nil
		}
	}

	todayRows, err := p.loadDay(ctx, todayFile, today)
	if err != nil {
		return err
	}
	yesterdayRows, err := p.loadDay(ctx, yesterdayFile, yesterday)
	if err != nil {
		return err
	}

	targets := p.cfg.Channels.Targets
	combined := CombineDays(
		GroupRows(yesterdayRows, ModeYesterday, targets),
		GroupRows(todayRows, ModeToday, targets),
		targets,
	)

	prepared, err := p.prepareChannels(ctx, today, combined)
	if err != nil {
		return err
	}
	if len(prepared) == 0 {
		log.Printf("WARN Service: No schedule rows survived cleaning for %s.\n", today.Format("2006-01-02"))
		result.Empty = true
		return nil
	}

	if !opts.DryRun {
		if err := p.publishAndTrigger(ctx, today, prepared); err != nil {
			return err
		}
	}

	for _, pc := range prepared {
		raw, err := p.Fetcher.FetchMetrics(ctx, pc.channel)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.CodeExternalService, "failed to fetch metrics for %s", pc.channel)
		}
		merged, matched := MergeMetrics(pc.rows, raw)
		log.Printf("Service: %s matched %d of %d row(s) against %d metric row(s).\n", pc.channel, matched, len(merged), len(raw))
		result.Batches = append(result.Batches, ChannelBatch{
			Channel:     pc.channel,
			Windows:     len(pc.windows),
			MatchedRows: matched,
			Rows:        merged,
		})
		result.MatchedRows += matched
	}

	if opts.DryRun {
		return nil
	}

	for _, b := range result.Batches {
		if err := p.Sink.AppendRows(ctx, b.Rows); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeSink, "failed to append %d %s row(s) to the ledger", len(b.Rows), b.Channel)
		}
		result.ChannelsWritten++
		result.RowsWritten += len(b.Rows)
		log.Printf("Service: Appended %d %s row(s) to the ledger.\n", len(b.Rows), b.Channel)
	}
	return nil
}

// selectDatasets picks today's workbook (the most recently modified) and the workbook covering the day before.
func (p *Pipeline) selectDatasets(ctx context.Context) (today, yesterday models.DatasetFile, reportDate time.Time, err error) {
	files, err := p.Source.ListDatasets(ctx)
	if err != nil {
		return today, yesterday, reportDate, apperrors.Wrap(err, apperrors.CodeExternalService, "failed to list schedule workbooks")
	}
	if len(files) == 0 {
		return today, yesterday, reportDate, apperrors.New(apperrors.CodeNoDataset, "no schedule workbooks available")
	}

	ordered := make([]models.DatasetFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ModifiedAt.Before(ordered[j].ModifiedAt) })

	today = ordered[len(ordered)-1]
	dates := scraper.ExtractDatesFromFilename(today.Label)
	if len(dates) == 0 {
		return today, yesterday, reportDate, apperrors.Newf(apperrors.CodeBadFilename, "bad filename: %s", today.Label)
	}
	reportDate = scraper.MaxDate(dates)

	prior := reportDate.AddDate(0, 0, -1)
	for _, f := range ordered {
		if scraper.ContainsDate(scraper.ExtractDatesFromFilename(f.Label), prior) {
			return today, f, reportDate, nil
		}
	}
	return today, yesterday, reportDate, apperrors.Newf(apperrors.CodeMissingPriorDataset,
		"missing file for %s", prior.Format("02 Jan 2006"))
}

func (p *Pipeline) loadDay(ctx context.Context, file models.DatasetFile, day time.Time) ([][]string, error) {
	path, err := p.Source.Open(ctx, file)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeLoad, "failed to open %s", file.Label)
	}
	sheet := scraper.DaySheetName(day.Day())
	rows, err := p.Loader.LoadSheet(ctx, path, sheet, p.cfg.Source.SkipRows)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeLoad, "failed to load sheet %s of %s", sheet, file.Label)
	}
	return rows, nil
}

type preparedChannel struct {
	channel string
	rows    []models.NormalizedRow
	windows []models.TimeWindow
}

// prepareChannels cleans every target channel, up to channel_concurrency at a time.
// Channels left with no rows are dropped; the rest keep configured order.
func (p *Pipeline) prepareChannels(ctx context.Context, reportDate time.Time, combined map[string][]models.ScheduleRow) ([]preparedChannel, error) {
	targets := p.cfg.Channels.Targets
	slots := make([]preparedChannel, len(targets))

	limit := p.cfg.Pipeline.ChannelConcurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ch := range targets {
		i, ch := i, ch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows := PrepareChannel(ch, reportDate, combined[ch])
			slots[i] = preparedChannel{channel: ch, rows: rows, windows: BuildTimeWindows(reportDate, rows)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "channel preparation aborted")
	}

	prepared := make([]preparedChannel, 0, len(slots))
	for _, pc := range slots {
		if len(pc.rows) == 0 {
			log.Printf("Service: %s has no rows after cleaning, skipping.\n", pc.channel)
			continue
		}
		prepared = append(prepared, pc)
	}
	return prepared, nil
}

func (p *Pipeline) publishAndTrigger(ctx context.Context, reportDate time.Time, prepared []preparedChannel) error {
	for _, pc := range prepared {
		if err := p.Publisher.PublishWindows(ctx, pc.channel, pc.windows); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeExternalService, "failed to publish %s time windows", pc.channel)
		}
		log.Printf("Service: Published %d time window(s) for %s on %s.\n", len(pc.windows), pc.channel, reportDate.Format("2006-01-02"))
	}
	if err := p.Trigger.Trigger(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeExternalService, "failed to run the analytics jobs")
	}
	return nil
}

func (p *Pipeline) recordRun(ctx context.Context, result *RunResult, startedAt time.Time, runErr error) {
	if p.History == nil {
		return
	}
	finishedAt := p.now()
	rec := models.RunRecord{
		RunID:           result.RunID,
		ReportDate:      result.ReportDate,
		Status:          models.RunStatusSucceeded,
		TodayFile:       result.TodayFile,
		YesterdayFile:   result.YesterdayFile,
		ChannelsWritten: result.ChannelsWritten,
		RowsWritten:     result.RowsWritten,
		MatchedRows:     result.MatchedRows,
		StartedAt:       startedAt,
		FinishedAt:      &finishedAt,
	}
	switch {
	case runErr != nil:
		rec.Status = models.RunStatusFailed
		rec.ErrorCode = apperrors.GetCode(runErr)
		rec.ErrorMessage = runErr.Error()
	case result.Skipped:
		rec.Status = models.RunStatusSkipped
	case result.Empty:
		rec.Status = models.RunStatusEmpty
	}
	if rec.ReportDate.IsZero() {
		// Failed before a reporting date was known.
		rec.ReportDate = time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, time.UTC)
	}

	if err := p.History.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("ERROR Service: Failed to record run %s: %v\n", rec.RunID, err)
	}
}
