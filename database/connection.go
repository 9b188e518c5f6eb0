// backend/database/connection.go
package database

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/tvreport/backend/config"
)

// InitDB opens the MySQL/MariaDB connection pool and verifies it with a ping.
func InitDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dsn.DBName = cfg.DBName
	dsn.ParseTime = true
	dsn.Loc = time.UTC

	db, err := sqlx.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database: Successfully connected to the database!")
	return db, nil
}

// CloseDB closes the connection pool. Typically called on application shutdown.
func CloseDB(db *sqlx.DB) {
	if db != nil {
		db.Close()
		log.Println("Database: Connection closed.")
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_rows (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		channel VARCHAR(16) NOT NULL,
		report_date CHAR(10) NOT NULL,
		start_time CHAR(5) NOT NULL,
		end_time CHAR(5) NOT NULL,
		program VARCHAR(255) NOT NULL,
		plays VARCHAR(32) NOT NULL DEFAULT '',
		unique_viewers VARCHAR(32) NOT NULL DEFAULT '',
		concurrent_viewers VARCHAR(32) NOT NULL DEFAULT '',
		minutes_per_viewer VARCHAR(32) NOT NULL DEFAULT '',
		genre1 VARCHAR(255) NOT NULL DEFAULT '',
		genre2 VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_ledger_channel_date (channel, report_date)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id CHAR(36) NOT NULL UNIQUE,
		report_date DATE NOT NULL,
		status VARCHAR(16) NOT NULL,
		today_file VARCHAR(255) NOT NULL DEFAULT '',
		yesterday_file VARCHAR(255) NOT NULL DEFAULT '',
		channels_written INT NOT NULL DEFAULT 0,
		rows_written INT NOT NULL DEFAULT 0,
		matched_rows INT NOT NULL DEFAULT 0,
		error_code VARCHAR(64) NOT NULL DEFAULT '',
		error_message TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NULL,
		KEY idx_runs_date_status (report_date, status)
	)`,
}

// EnsureSchema creates the ledger_rows and pipeline_runs tables when they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Println("Database: Schema is up to date.")
	return nil
}
