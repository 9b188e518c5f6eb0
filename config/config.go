// backend/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// SourceConfig describes where the daily schedule workbooks come from.
type SourceConfig struct {
	Kind          string `yaml:"kind"`      // "directory" or "drive"
	Directory     string `yaml:"directory"` // Local (synced) folder for kind=directory
	DriveFolderID string `yaml:"drive_folder_id"`
	DriveAPIKey   string `yaml:"drive_api_key"`
	DriveBaseURL  string `yaml:"drive_base_url"`
	DownloadDir   string `yaml:"download_dir"` // Where Drive files are saved before loading
	SkipRows      int    `yaml:"skip_rows"`    // Header rows above the data in each day sheet
}

type ChannelsConfig struct {
	Targets    []string          `yaml:"targets"`
	SheetNames map[string]string `yaml:"sheet_names"` // Channel code -> name used in exchange sheet titles
}

// ExchangeConfig points at the workbook shared with the analytics job.
type ExchangeConfig struct {
	WorkbookPath       string `yaml:"workbook_path"`
	InputSheetPattern  string `yaml:"input_sheet_pattern"`
	OutputSheetPattern string `yaml:"output_sheet_pattern"`
	OutputFirstColumn  string `yaml:"output_first_column"` // First metrics column on the output sheet, e.g. "C"
}

type RundeckConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Project           string        `yaml:"project"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	JobIDs            []string      `yaml:"job_ids"`
	WaitStr           string        `yaml:"wait"`
	RequestTimeoutStr string        `yaml:"request_timeout"`
	Wait              time.Duration `yaml:"-"` // Parsed duration
	RequestTimeout    time.Duration `yaml:"-"`
}

// LedgerConfig selects the master ledger sink.
type LedgerConfig struct {
	Kind    string `yaml:"kind"` // "mysql", "xlsx" or "csv"
	Path    string `yaml:"path"`
	TabName string `yaml:"tab_name"`
}

type PipelineConfig struct {
	ChannelConcurrency int    `yaml:"channel_concurrency"`
	LockFile           string `yaml:"lock_file"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Channels ChannelsConfig `yaml:"channels"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Rundeck  RundeckConfig  `yaml:"rundeck"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Load reads the YAML file at configPath, applies environment overrides and defaults, and validates the result.
// An empty configPath searches the usual locations.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"config/config.yaml",
			"./backend/config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("config.yaml not found in standard locations")
		}
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(file)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	var err error
	if cfg.Rundeck.Wait, err = parseDuration(cfg.Rundeck.WaitStr, 20*time.Second); err != nil {
		return nil, fmt.Errorf("failed to parse rundeck.wait: %w", err)
	}
	if cfg.Rundeck.RequestTimeout, err = parseDuration(cfg.Rundeck.RequestTimeoutStr, 15*time.Second); err != nil {
		return nil, fmt.Errorf("failed to parse rundeck.request_timeout: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Source.DownloadDir != "" {
		if err := os.MkdirAll(cfg.Source.DownloadDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create download directory: %w", err)
		}
	}
	return cfg, nil
}

// applyEnv lets secrets live in the environment (or a .env file) instead of config.yaml.
func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &c.Database.Host},
		{"DB_PASSWORD", &c.Database.Password},
		{"DB_USER", &c.Database.User},
		{"DRIVE_API_KEY", &c.Source.DriveAPIKey},
		{"RUNDECK_USERNAME", &c.Rundeck.Username},
		{"RUNDECK_PASSWORD", &c.Rundeck.Password},
		{"SERVER_PORT", &c.Server.Port},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Port == "" {
		c.Database.Port = "3306"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "directory"
	}
	if c.Source.DriveBaseURL == "" {
		c.Source.DriveBaseURL = "https://www.googleapis.com"
	}
	if c.Source.DownloadDir == "" && c.Source.Kind == "drive" {
		c.Source.DownloadDir = filepath.Join(os.TempDir(), "tvreport")
	}
	if c.Source.SkipRows == 0 {
		c.Source.SkipRows = 3
	}
	if len(c.Channels.Targets) == 0 {
		c.Channels.Targets = []string{"RCTI", "MNCTV", "GTV", "INEWS"}
	}
	for i, ch := range c.Channels.Targets {
		c.Channels.Targets[i] = strings.ToUpper(strings.TrimSpace(ch))
	}
	if c.Channels.SheetNames == nil {
		c.Channels.SheetNames = map[string]string{}
	}
	if _, ok := c.Channels.SheetNames["INEWS"]; !ok {
		c.Channels.SheetNames["INEWS"] = "INews"
	}
	if c.Exchange.InputSheetPattern == "" {
		c.Exchange.InputSheetPattern = "Input_%s_Live_TV"
	}
	if c.Exchange.OutputSheetPattern == "" {
		c.Exchange.OutputSheetPattern = "Output_%s_Live_TV"
	}
	if c.Exchange.OutputFirstColumn == "" {
		c.Exchange.OutputFirstColumn = "C"
	}
	if c.Rundeck.Project == "" {
		c.Rundeck.Project = "Conviva"
	}
	if c.Ledger.Kind == "" {
		c.Ledger.Kind = "xlsx"
	}
	if c.Ledger.TabName == "" {
		c.Ledger.TabName = "ALL TV GDS ARRAZ"
	}
	if c.Pipeline.ChannelConcurrency <= 0 {
		c.Pipeline.ChannelConcurrency = 1
	}
	if c.Pipeline.LockFile == "" {
		c.Pipeline.LockFile = filepath.Join(os.TempDir(), "tvreport.lock")
	}
}

// Validate checks the settings every run needs.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "directory":
		if c.Source.Directory == "" {
			return fmt.Errorf("source.directory is required for source kind 'directory'")
		}
	case "drive":
		if c.Source.DriveFolderID == "" {
			return fmt.Errorf("source.drive_folder_id is required for source kind 'drive'")
		}
	default:
		return fmt.Errorf("unknown source kind '%s'", c.Source.Kind)
	}

	if c.Exchange.WorkbookPath == "" {
		return fmt.Errorf("exchange.workbook_path is required")
	}

	switch c.Ledger.Kind {
	case "mysql":
		if !c.Database.Enabled {
			return fmt.Errorf("ledger kind 'mysql' requires database.enabled")
		}
	case "xlsx", "csv":
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for ledger kind '%s'", c.Ledger.Kind)
		}
	default:
		return fmt.Errorf("unknown ledger kind '%s'", c.Ledger.Kind)
	}
	return nil
}

// SheetName maps a channel code to the name used in exchange sheet titles. Channels without an entry use their code.
func (c *Config) SheetName(channel string) string {
	if name, ok := c.Channels.SheetNames[channel]; ok && name != "" {
		return name
	}
	return channel
}

// InputSheet is the exchange sheet the channel's time windows are written to.
func (c *Config) InputSheet(channel string) string {
	return fmt.Sprintf(c.Exchange.InputSheetPattern, c.SheetName(channel))
}

// OutputSheet is the exchange sheet the analytics job fills with the channel's metrics.
func (c *Config) OutputSheet(channel string) string {
	return fmt.Sprintf(c.Exchange.OutputSheetPattern, c.SheetName(channel))
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
