// backend/root.go
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/gewnthar/tvreport/backend/apperrors"
	"github.com/gewnthar/tvreport/backend/config"
	"github.com/gewnthar/tvreport/backend/database"
	"github.com/gewnthar/tvreport/backend/exchange"
	"github.com/gewnthar/tvreport/backend/handlers"
	"github.com/gewnthar/tvreport/backend/ledger"
	"github.com/gewnthar/tvreport/backend/scraper"
	"github.com/gewnthar/tvreport/backend/services"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	app := &appContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "tvreport",
		Short:         "Daily broadcast schedule and audience ledger builder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newRunsCommand(app))
	return rootCmd
}

// appContext builds the configuration and the pipeline's collaborators once per process.
type appContext struct {
	configFlag *string

	once     sync.Once
	err      error
	cfg      *config.Config
	db       *sqlx.DB
	pipeline *services.Pipeline
	runs     services.RunLister
	ledger   handlers.LedgerReader // Only set for the mysql ledger
}

func (a *appContext) ensure() error {
	a.once.Do(func() {
		a.err = a.build()
	})
	return a.err
}

func (a *appContext) build() error {
	cfg, err := config.Load(strings.TrimSpace(*a.configFlag))
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "error loading configuration")
	}
	a.cfg = cfg
	log.Printf("Configuration loaded. Source: %s, ledger: %s, channels: %s",
		cfg.Source.Kind, cfg.Ledger.Kind, strings.Join(cfg.Channels.Targets, ", "))

	if cfg.Database.Enabled {
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}
		a.db = db
		if err := database.EnsureSchema(context.Background(), db); err != nil {
			return err
		}
	}

	var source services.DatasetSource
	switch cfg.Source.Kind {
	case "drive":
		source = scraper.NewDriveSource(cfg.Source.DriveBaseURL, cfg.Source.DriveFolderID, cfg.Source.DriveAPIKey, cfg.Source.DownloadDir)
	default:
		source = scraper.NewDirectorySource(cfg.Source.Directory)
	}

	trigger, err := scraper.NewRundeckTrigger(cfg.Rundeck.BaseURL, cfg.Rundeck.Project, cfg.Rundeck.Username,
		cfg.Rundeck.Password, cfg.Rundeck.JobIDs, cfg.Rundeck.RequestTimeout, cfg.Rundeck.Wait)
	if err != nil {
		return err
	}

	var sink services.LedgerSink
	switch cfg.Ledger.Kind {
	case "mysql":
		store := database.NewLedgerStore(a.db)
		sink = store
		a.ledger = store
	case "csv":
		sink = ledger.NewCSVSink(cfg.Ledger.Path)
	default:
		sink = ledger.NewXLSXSink(cfg.Ledger.Path, cfg.Ledger.TabName)
	}

	var history interface {
		services.RunHistory
		services.RunLister
	}
	if a.db != nil {
		history = database.NewRunStore(a.db)
	} else {
		history = services.NewMemoryRunHistory()
	}
	a.runs = history

	workbook := exchange.NewWorkbook(cfg)
	a.pipeline = services.NewPipeline(cfg, services.Collaborators{
		Source:    source,
		Loader:    scraper.NewXLSXLoader(),
		Publisher: workbook,
		Trigger:   trigger,
		Fetcher:   workbook,
		Sink:      sink,
		History:   history,
	})
	return nil
}

func (a *appContext) ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *appContext) close() {
	database.CloseDB(a.db)
}
