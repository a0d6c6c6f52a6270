// internal/config/types.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server" json:"server"`
	Scrape   ScrapeConfig  `yaml:"scrape" json:"scrape"`
	Ledger   LedgerConfig  `yaml:"ledger" json:"ledger"`
	Assets   AssetsConfig  `yaml:"assets" json:"assets"`
	Metrics  MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes,omitempty" json:"max_upload_bytes,omitempty"`
}

// CredentialsConfig is the process-wide fallback session token pair used
// for authenticated fetches when the request supplies none.
type CredentialsConfig struct {
	RememberID    string `yaml:"remember_id,omitempty" json:"remember_id,omitempty"`
	RememberToken string `yaml:"remember_token,omitempty" json:"remember_token,omitempty"`
}

// ScrapeConfig configures activity resolution and page fetching.
type ScrapeConfig struct {
	BaseURL        string            `yaml:"base_url" json:"base_url"`
	ShortLinkHost  string            `yaml:"short_link_host" json:"short_link_host"`
	DetailSuffix   string            `yaml:"detail_suffix" json:"detail_suffix"`
	RequestTimeout time.Duration     `yaml:"request_timeout,omitempty" json:"request_timeout,omitempty"`
	RateLimit      float64           `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RateBurst      int               `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
	RedirectDelay  time.Duration     `yaml:"redirect_delay,omitempty" json:"redirect_delay,omitempty"`
	SettleDelay    time.Duration     `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
	UserAgent      string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Credentials    CredentialsConfig `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	Browser        *BrowserConfig    `yaml:"browser,omitempty" json:"browser,omitempty"`
}

// BrowserConfig configures the optional headless re-render fallback for
// pages served as a pre-render shell.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	WaitSelector string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
}

// LedgerConfig selects and configures the submission ledger backend.
type LedgerConfig struct {
	Backend  string          `yaml:"backend" json:"backend"`
	Quota    int             `yaml:"quota,omitempty" json:"quota,omitempty"`
	Excel    ExcelLedger     `yaml:"excel,omitempty" json:"excel,omitempty"`
	Database *DatabaseLedger `yaml:"database,omitempty" json:"database,omitempty"`
	Mongo    *MongoLedger    `yaml:"mongo,omitempty" json:"mongo,omitempty"`
}

// ExcelLedger configures the spreadsheet-backed ledger.
type ExcelLedger struct {
	Path               string `yaml:"path" json:"path"`
	RegistrationsSheet string `yaml:"registrations_sheet,omitempty" json:"registrations_sheet,omitempty"`
	SubmissionsSheet   string `yaml:"submissions_sheet,omitempty" json:"submissions_sheet,omitempty"`
}

// DatabaseLedger configures the SQL-backed ledgers (sqlite, postgres, mysql).
type DatabaseLedger struct {
	DSN                string `yaml:"dsn" json:"dsn"`
	RegistrationsTable string `yaml:"registrations_table,omitempty" json:"registrations_table,omitempty"`
	SubmissionsTable   string `yaml:"submissions_table,omitempty" json:"submissions_table,omitempty"`
}

// MongoLedger configures the MongoDB-backed ledger.
type MongoLedger struct {
	URI                     string `yaml:"uri" json:"uri"`
	Database                string `yaml:"database" json:"database"`
	RegistrationsCollection string `yaml:"registrations_collection,omitempty" json:"registrations_collection,omitempty"`
	SubmissionsCollection   string `yaml:"submissions_collection,omitempty" json:"submissions_collection,omitempty"`
}

// AssetsConfig configures proof-image storage.
type AssetsConfig struct {
	Dir           string `yaml:"dir" json:"dir"`
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("scrape.base_url is required")
	}
	if strings.HasSuffix(c.Scrape.BaseURL, "/") {
		return fmt.Errorf("scrape.base_url must not end with a slash")
	}
	if c.Scrape.ShortLinkHost == "" {
		return fmt.Errorf("scrape.short_link_host is required")
	}
	if c.Scrape.RateLimit < 0 {
		return fmt.Errorf("scrape.rate_limit must be non-negative")
	}
	if c.Ledger.Quota < 0 {
		return fmt.Errorf("ledger.quota must be non-negative")
	}

	switch c.Ledger.Backend {
	case "excel", "memory":
		if c.Ledger.Backend == "excel" && c.Ledger.Excel.Path == "" {
			return fmt.Errorf("ledger.excel.path is required for the excel backend")
		}
	case "sqlite", "postgres", "mysql":
		if c.Ledger.Database == nil || c.Ledger.Database.DSN == "" {
			return fmt.Errorf("ledger.database.dsn is required for the %s backend", c.Ledger.Backend)
		}
	case "mongodb":
		if c.Ledger.Mongo == nil || c.Ledger.Mongo.URI == "" {
			return fmt.Errorf("ledger.mongo.uri is required for the mongodb backend")
		}
	default:
		return fmt.Errorf("unsupported ledger backend: %s", c.Ledger.Backend)
	}

	if c.Assets.Dir == "" {
		return fmt.Errorf("assets.dir is required")
	}
	return nil
}
